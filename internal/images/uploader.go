package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/remote"
	"scalp-backend/internal/shared/storage/object"
)

// Uploader hands an accepted asset to durable storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, id auth.Identity, asset Asset) (string, error)
}

// HTTPUploader posts assets to a remote upload endpoint that answers with
// {"success": bool, "imageUrl": string}.
type HTTPUploader struct {
	URL    string
	Client *http.Client
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, id auth.Identity, asset Asset) (string, error) {
	body, err := remote.PostMultipart(ctx, u.Client, "image upload", u.URL, id.Bearer(), func(w *multipart.Writer) error {
		if err := w.WriteField("user_id", id.UserID); err != nil {
			return err
		}
		if err := w.WriteField("view", string(asset.View)); err != nil {
			return err
		}
		return remote.AddFile(w, "file", asset.FileName, asset.ContentType, asset.Payload)
	})
	if err != nil {
		return "", err
	}

	if success := gjson.GetBytes(body, "success"); success.Exists() && !success.Bool() {
		if text := remote.ErrorText(body); text != "" {
			return "", fmt.Errorf("image upload: %s", text)
		}
		return "", errors.New("image upload: rejected by endpoint")
	}
	for _, path := range []string{"imageUrl", "url", "data.imageUrl", "data.url"} {
		if url := strings.TrimSpace(gjson.GetBytes(body, path).String()); url != "" {
			return url, nil
		}
	}
	return "", errors.New("image upload: response missing imageUrl")
}

// StoreUploader writes assets to an object store and builds public URLs from
// the returned storage key.
type StoreUploader struct {
	Store         object.ObjectStore
	PublicBaseURL string
}

// Upload implements Uploader.
func (u *StoreUploader) Upload(ctx context.Context, id auth.Identity, asset Asset) (string, error) {
	if u.Store == nil {
		return "", errors.New("image upload: object store not configured")
	}
	obj, err := u.Store.Save(ctx, id.UserID, string(asset.View)+"_"+asset.FileName, asset.ContentType, bytes.NewReader(asset.Payload))
	if err != nil {
		return "", fmt.Errorf("image upload: %w", err)
	}
	base := strings.TrimRight(u.PublicBaseURL, "/")
	if base == "" {
		return obj.Key, nil
	}
	return base + "/" + strings.TrimLeft(obj.Key, "/"), nil
}

var (
	_ Uploader = (*HTTPUploader)(nil)
	_ Uploader = (*StoreUploader)(nil)
)
