package images

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/tidwall/gjson"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/remote"
)

// HTTPValidator asks a remote content-validation endpoint whether an image
// shows a scalp. The endpoint answers {"is_valid": bool, "message": string}.
type HTTPValidator struct {
	URL    string
	Client *http.Client
}

// Validate implements ContentValidator.
func (v *HTTPValidator) Validate(ctx context.Context, id auth.Identity, view View, f File) (Verdict, error) {
	body, err := remote.PostMultipart(ctx, v.Client, "content validation", v.URL, id.Bearer(), func(w *multipart.Writer) error {
		if err := w.WriteField("view", string(view)); err != nil {
			return err
		}
		return remote.AddFile(w, "file", f.Name, f.ContentType, f.Data)
	})
	if err != nil {
		return Verdict{}, err
	}

	valid := gjson.GetBytes(body, "is_valid")
	if !valid.Exists() {
		return Verdict{}, errors.New("content validation: response missing is_valid")
	}
	return Verdict{
		Valid:   valid.Bool(),
		Message: gjson.GetBytes(body, "message").String(),
	}, nil
}

var _ ContentValidator = (*HTTPValidator)(nil)
