package object

import (
	"context"
	"io"
)

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore saves and retrieves binary objects grouped by owner namespace.
type ObjectStore interface {
	Save(ctx context.Context, owner, fileName, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
