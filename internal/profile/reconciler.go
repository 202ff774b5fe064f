package profile

import (
	"context"
	"errors"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/telemetry"
	"scalp-backend/internal/survey"
)

// Reconciler decides whether a stored profile may be offered as a pre-fill.
type Reconciler struct {
	Source  Source
	EditURL string
}

// Offer returns pre-fill answers when the caller is authenticated and the
// stored profile maps onto five valid answers. Any lookup failure simply
// means no offer.
func (r *Reconciler) Offer(ctx context.Context, id auth.Identity) (survey.Answers, bool) {
	if r == nil || r.Source == nil || !id.Authenticated() {
		return survey.Answers{}, false
	}

	rec, err := r.Source.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Warn("profile.fetch_failed", map[string]any{
				"user_id": id.UserID,
				"error":   err.Error(),
			})
		}
		return survey.Answers{}, false
	}
	if !rec.Complete() {
		telemetry.Info("profile.partial", map[string]any{"user_id": id.UserID})
		return survey.Answers{}, false
	}

	answers := rec.Answers()
	if !answers.IsComplete() {
		return survey.Answers{}, false
	}
	return answers, true
}
