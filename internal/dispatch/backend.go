package dispatch

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scalp-backend/internal/images"
	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/remote"
	"scalp-backend/internal/survey"
)

// ImageURLSeparator joins remote URLs in the image_url form field.
const ImageURLSeparator = ","

// Request is everything a backend needs for one diagnosis.
type Request struct {
	Identity auth.Identity
	Survey   survey.Profile
	Images   map[images.View]images.Asset
}

// Backend performs a diagnosis call.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, req Request) (Result, error)
}

// HTTPBackend posts images and survey answers as multipart form data.
type HTTPBackend struct {
	name   string
	url    string
	client *http.Client
	views  []images.View
}

// NewServiceA returns the male-path backend, which takes top and side images.
func NewServiceA(url string, timeout time.Duration) *HTTPBackend {
	return newHTTPBackend("service_a", url, timeout, images.ViewTop, images.ViewSide)
}

// NewServiceB returns the female-path backend, which takes the top image only.
func NewServiceB(url string, timeout time.Duration) *HTTPBackend {
	return newHTTPBackend("service_b", url, timeout, images.ViewTop)
}

func newHTTPBackend(name, url string, timeout time.Duration, views ...images.View) *HTTPBackend {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPBackend{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
		views:  views,
	}
}

// Name identifies the backend in logs and metrics.
func (b *HTTPBackend) Name() string {
	return b.name
}

// Analyze implements Backend.
func (b *HTTPBackend) Analyze(ctx context.Context, req Request) (Result, error) {
	body, err := remote.PostMultipart(ctx, b.client, b.name, b.url, req.Identity.Bearer(), func(w *multipart.Writer) error {
		for _, view := range b.views {
			asset, ok := req.Images[view]
			if !ok {
				return ErrMissingImage
			}
			if err := remote.AddFile(w, string(view)+"_image", asset.FileName, asset.ContentType, asset.Payload); err != nil {
				return err
			}
		}
		fields := [][2]string{
			{"gender", req.Survey.Gender},
			{"age", strconv.Itoa(req.Survey.Age)},
			{"family_history", req.Survey.FamilyHistory},
			{"recent_hair_loss", req.Survey.RecentHairLossSymptom},
			{"stress_level", req.Survey.StressLevel},
		}
		if req.Identity.Authenticated() {
			fields = append(fields, [2]string{"user_id", req.Identity.UserID})
		}
		if urls := b.imageURL(req); urls != "" {
			fields = append(fields, [2]string{"image_url", urls})
		}
		for _, f := range fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return decodeResult(body)
}

// imageURL joins the remote URLs of the submitted views, or returns "" when
// any of them has not finished uploading.
func (b *HTTPBackend) imageURL(req Request) string {
	urls := make([]string, 0, len(b.views))
	for _, view := range b.views {
		asset, ok := req.Images[view]
		if !ok || strings.TrimSpace(asset.RemoteURL) == "" {
			return ""
		}
		urls = append(urls, asset.RemoteURL)
	}
	return strings.Join(urls, ImageURLSeparator)
}

var _ Backend = (*HTTPBackend)(nil)
