package session

import (
	"context"
	"net/url"
	"strings"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/metrics"
	"scalp-backend/internal/shared/telemetry"
)

// Finish runs the completion gate. Unauthenticated callers get a login prompt
// and keep their session; authenticated callers hand the result off and the
// session ends.
func (s *Service) Finish(ctx context.Context, id string, caller auth.Identity) (FinishOutcome, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return FinishOutcome{}, err
	}

	sess.mu.Lock()
	if sess.stage != StageResult || sess.result == nil {
		stage := sess.stage
		sess.mu.Unlock()
		return FinishOutcome{}, &TransitionError{Op: "finish", Stage: stage}
	}
	if !caller.Authenticated() {
		sess.loginURL = s.loginURLFor(sess.id)
		sess.publishLocked()
		out := FinishOutcome{LoginRequired: true, LoginURL: sess.loginURL}
		sess.mu.Unlock()
		metrics.IncGate("login_required")
		telemetry.Info("gate.login_required", map[string]any{
			"session_id": sess.id,
			"request_id": requestIDFromContext(ctx),
		})
		return out, ErrLoginRequired
	}
	if sess.handingOff {
		sess.mu.Unlock()
		return FinishOutcome{}, ErrFinishing
	}
	sess.handingOff = true
	sess.loginURL = ""
	answers := sess.answers
	result := *sess.result
	result.Advice = append([]string(nil), sess.result.Advice...)
	sess.mu.Unlock()

	handoff := Handoff{
		SessionID: sess.id,
		RequestID: requestIDFromContext(ctx),
		Identity:  caller,
		Survey:    answers,
		Result:    result,
	}
	var resultID string
	if s.Handoff != nil {
		resultID, err = s.Handoff.Handoff(ctx, handoff)
	}

	sess.mu.Lock()
	if err != nil {
		sess.handingOff = false
		sess.mu.Unlock()
		metrics.IncGate("handoff_failed")
		telemetry.Error("gate.handoff_failed", map[string]any{
			"session_id": sess.id,
			"request_id": handoff.RequestID,
			"user_id":    caller.UserID,
			"error":      err.Error(),
		})
		return FinishOutcome{}, err
	}
	sess.finished = true
	sess.publishLocked()
	sess.closeSubscribersLocked()
	sess.mu.Unlock()

	s.Store.Delete(sess.id)
	metrics.IncGate("handed_off")
	telemetry.Info("gate.handed_off", map[string]any{
		"session_id": sess.id,
		"request_id": handoff.RequestID,
		"user_id":    caller.UserID,
		"result_id":  resultID,
	})
	return FinishOutcome{ResultID: resultID, Survey: &answers, Result: &result}, nil
}

// DismissLogin clears the login prompt and leaves the session in Result.
func (s *Service) DismissLogin(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.loginURL != "" {
		sess.loginURL = ""
		metrics.IncGate("dismissed")
		sess.publishLocked()
	}
	return sess.snapshotLocked(), nil
}

func (s *Service) loginURLFor(sessionID string) string {
	base := s.LoginURL
	if base == "" {
		base = "/login"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session=" + url.QueryEscape(sessionID)
}
