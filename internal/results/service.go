package results

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"scalp-backend/internal/profile"
	"scalp-backend/internal/queue"
	"scalp-backend/internal/session"
	"scalp-backend/internal/shared/telemetry"
)

// Service saves finished diagnoses and serves a user's history.
type Service struct {
	Repo     Repo
	Profiles profile.Writer
	Queue    queue.Client
	NewID    func() string
	Now      func() time.Time
}

// Handoff stores the diagnosis for the authenticated caller. Updating the
// stored profile and notifying the queue are best-effort.
func (s *Service) Handoff(ctx context.Context, h session.Handoff) (string, error) {
	if !h.Identity.Authenticated() {
		return "", errors.New("handoff requires an authenticated user")
	}
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}

	rec := Record{
		ID:        newID(),
		UserID:    h.Identity.UserID,
		SessionID: h.SessionID,
		Survey:    h.Survey,
		Result:    h.Result,
		CreatedAt: now().UTC(),
	}
	if rec.Result.Advice == nil {
		rec.Result.Advice = []string{}
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return "", err
	}

	fields := map[string]any{
		"result_id":  rec.ID,
		"session_id": rec.SessionID,
		"user_id":    rec.UserID,
		"request_id": h.RequestID,
	}

	if s.Profiles != nil {
		if prof, err := profile.FromAnswers(h.Survey); err != nil {
			telemetry.Warn("results.profile_skipped", withError(fields, err))
		} else if err := s.Profiles.Save(ctx, rec.UserID, prof); err != nil {
			telemetry.Warn("results.profile_save_failed", withError(fields, err))
		}
	}

	if s.Queue != nil {
		msg := queue.Message{
			ResultID:   rec.ID,
			UserID:     rec.UserID,
			SessionID:  rec.SessionID,
			Stage:      rec.Result.Stage,
			RequestID:  h.RequestID,
			EnqueuedAt: rec.CreatedAt.Format(time.RFC3339),
			Version:    queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Warn("results.enqueue_failed", withError(fields, err))
		}
	}

	telemetry.Info("results.saved", fields)
	return rec.ID, nil
}

// Get returns a result owned by userID.
func (s *Service) Get(ctx context.Context, userID, resultID string) (Record, error) {
	rec, err := s.Repo.GetByID(ctx, resultID)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != userID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns the user's results, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func withError(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

var _ session.HandoffSink = (*Service)(nil)
