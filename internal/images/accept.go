package images

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/telemetry"
)

// MaxImageBytes is the largest accepted image.
const MaxImageBytes = 10 << 20

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Rejection reasons.
const (
	ReasonEmpty           = "empty"
	ReasonTooLarge        = "too_large"
	ReasonUnsupportedType = "unsupported_type"
	ReasonContentRejected = "content_rejected"
)

const defaultContentMessage = "This photo doesn't look like a clear scalp picture. Please try another one."

// ValidationError explains why a candidate image was not accepted.
type ValidationError struct {
	View    View
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s image rejected (%s): %s", e.View, e.Reason, e.Message)
}

// CheckFile enforces size and type limits and returns the sniffed content type.
func CheckFile(view View, f File) (string, error) {
	if len(f.Data) == 0 {
		return "", &ValidationError{View: view, Reason: ReasonEmpty, Message: "The selected file is empty."}
	}
	if len(f.Data) > MaxImageBytes {
		return "", &ValidationError{View: view, Reason: ReasonTooLarge, Message: "Images must be 10MB or smaller."}
	}

	if declared := strings.TrimSpace(f.ContentType); declared != "" && !allowed(declared) {
		return "", &ValidationError{View: view, Reason: ReasonUnsupportedType, Message: "Only JPEG, PNG or WEBP images are supported."}
	}
	detected := mimetype.Detect(f.Data)
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return t, nil
		}
	}
	return "", &ValidationError{View: view, Reason: ReasonUnsupportedType, Message: "Only JPEG, PNG or WEBP images are supported."}
}

func allowed(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		mediaType = "image/jpeg"
	}
	for _, t := range allowedTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}

// Verdict is the content validator's opinion of an image.
type Verdict struct {
	Valid   bool
	Message string
}

// ContentValidator judges whether an image actually shows a scalp.
type ContentValidator interface {
	Validate(ctx context.Context, id auth.Identity, view View, f File) (Verdict, error)
}

// Acceptor turns candidate files into assets.
type Acceptor struct {
	Validator ContentValidator
	NewID     func() string
	Now       func() time.Time
}

// Accept validates f and returns an asset that owns a private copy of the data.
// A validator failure is logged and does not block acceptance; a negative
// verdict does.
func (a *Acceptor) Accept(ctx context.Context, id auth.Identity, view View, f File) (Asset, error) {
	contentType, err := CheckFile(view, f)
	if err != nil {
		return Asset{}, err
	}

	if a.Validator != nil {
		verdict, err := a.Validator.Validate(ctx, id, view, File{Name: f.Name, ContentType: contentType, Data: f.Data})
		if err != nil {
			telemetry.Warn("images.validator_unavailable", map[string]any{
				"view":    string(view),
				"user_id": id.UserID,
				"error":   err.Error(),
			})
		} else if !verdict.Valid {
			msg := strings.TrimSpace(verdict.Message)
			if msg == "" {
				msg = defaultContentMessage
			}
			return Asset{}, &ValidationError{View: view, Reason: ReasonContentRejected, Message: msg}
		}
	}

	newID := a.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	payload := make([]byte, len(f.Data))
	copy(payload, f.Data)

	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = string(view) + extensionFor(contentType)
	}

	return Asset{
		ID:          newID(),
		View:        view,
		FileName:    name,
		ContentType: contentType,
		Payload:     payload,
		AcceptedAt:  now().UTC(),
	}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
