package images

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"scalp-backend/internal/survey"
)

// View identifies which angle of the scalp an image shows.
type View string

const (
	ViewTop  View = "top"
	ViewSide View = "side"
)

var ErrUnknownView = errors.New("unknown image view")

// ParseView maps a path or form value onto a View.
func ParseView(raw string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(raw))) {
	case ViewTop:
		return ViewTop, nil
	case ViewSide:
		return ViewSide, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, raw)
	}
}

// RequiredViews returns the views needed before analysis for a gender.
func RequiredViews(gender string) []View {
	switch survey.CanonicalGender(gender) {
	case survey.GenderMale:
		return []View{ViewTop, ViewSide}
	case survey.GenderFemale:
		return []View{ViewTop}
	default:
		return nil
	}
}

// Requires reports whether view is needed for gender.
func Requires(gender string, view View) bool {
	for _, v := range RequiredViews(gender) {
		if v == view {
			return true
		}
	}
	return false
}

// UploadStatus tracks the background hand-off of an accepted image.
type UploadStatus string

const (
	UploadNone      UploadStatus = ""
	UploadUploading UploadStatus = "uploading"
	UploadUploaded  UploadStatus = "uploaded"
	UploadFailed    UploadStatus = "failed"
)

// File is a candidate image before acceptance.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Asset is an accepted image. Its payload is never mutated after acceptance;
// a replacement produces a new Asset with a new ID.
type Asset struct {
	ID           string
	View         View
	FileName     string
	ContentType  string
	Payload      []byte
	RemoteURL    string
	UploadStatus UploadStatus
	UploadError  string
	AcceptedAt   time.Time
}

// Info is the caller-visible summary of an asset.
type Info struct {
	ID           string       `json:"id"`
	View         View         `json:"view"`
	FileName     string       `json:"fileName"`
	ContentType  string       `json:"contentType"`
	SizeBytes    int          `json:"sizeBytes"`
	PreviewPath  string       `json:"previewPath"`
	RemoteURL    string       `json:"remoteUrl,omitempty"`
	UploadStatus UploadStatus `json:"uploadStatus,omitempty"`
	UploadError  string       `json:"uploadError,omitempty"`
	AcceptedAt   time.Time    `json:"acceptedAt"`
}

// Set holds at most one accepted asset per view.
type Set struct {
	assets map[View]Asset
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{assets: make(map[View]Asset)}
}

// Put replaces the asset for its view wholesale.
func (s *Set) Put(asset Asset) {
	s.assets[asset.View] = asset
}

// Get returns the asset for view.
func (s *Set) Get(view View) (Asset, bool) {
	a, ok := s.assets[view]
	return a, ok
}

// Missing returns the required views with no accepted asset.
func (s *Set) Missing(gender string) []View {
	var out []View
	for _, v := range RequiredViews(gender) {
		if _, ok := s.assets[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// IsComplete reports whether every required view for gender has an asset.
func (s *Set) IsComplete(gender string) bool {
	return len(RequiredViews(gender)) > 0 && len(s.Missing(gender)) == 0
}

// ResolveUpload records the outcome of a background upload. It is ignored
// unless assetID is still the current asset for view.
func (s *Set) ResolveUpload(view View, assetID, remoteURL string, err error) bool {
	a, ok := s.assets[view]
	if !ok || a.ID != assetID {
		return false
	}
	if err != nil {
		a.UploadStatus = UploadFailed
		a.UploadError = err.Error()
	} else {
		a.UploadStatus = UploadUploaded
		a.RemoteURL = remoteURL
		a.UploadError = ""
	}
	s.assets[view] = a
	return true
}

// Infos returns summaries ordered top then side.
func (s *Set) Infos(previewPath func(View) string) []Info {
	out := []Info{}
	for _, v := range []View{ViewTop, ViewSide} {
		a, ok := s.assets[v]
		if !ok {
			continue
		}
		info := Info{
			ID:           a.ID,
			View:         a.View,
			FileName:     a.FileName,
			ContentType:  a.ContentType,
			SizeBytes:    len(a.Payload),
			RemoteURL:    a.RemoteURL,
			UploadStatus: a.UploadStatus,
			UploadError:  a.UploadError,
			AcceptedAt:   a.AcceptedAt,
		}
		if previewPath != nil {
			info.PreviewPath = previewPath(v)
		}
		out = append(out, info)
	}
	return out
}
