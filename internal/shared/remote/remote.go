package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	maxResponseBytes = 1 << 20
	// maxErrorLogBytes caps the body echoed by StatusError.Error; the full
	// body stays available to Text.
	maxErrorLogBytes = 2048
)

var ErrTimeout = errors.New("request timeout")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorLogBytes {
		body = body[:maxErrorLogBytes]
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, strings.TrimSpace(string(body)))
}

// Text returns the service's own error message, if the body carries one.
func (e *StatusError) Text() string {
	return ErrorText(e.Body)
}

var errorPaths = []string{"detail", "detail.0.msg", "error.message", "error", "message"}

// ErrorText extracts a human-readable error message from a JSON error body.
func ErrorText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range errorPaths {
		res := gjson.GetBytes(body, path)
		if res.Type != gjson.String {
			continue
		}
		if text := strings.TrimSpace(res.String()); text != "" {
			return text
		}
	}
	return ""
}

// AddFile writes a file part with an explicit content type.
func AddFile(w *multipart.Writer, field, fileName, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// PostMultipart builds a multipart body with build and posts it to url.
func PostMultipart(ctx context.Context, client *http.Client, op, url, bearer string, build func(w *multipart.Writer) error) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := build(writer); err != nil {
		return nil, fmt.Errorf("%s: build form: %w", op, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: close form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return do(client, op, req, bearer)
}

// Get issues a GET request and returns the body of a 2xx response.
func Get(ctx context.Context, client *http.Client, op, url, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	return do(client, op, req, bearer)
}

func do(client *http.Client, op string, req *http.Request, bearer string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: data}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
