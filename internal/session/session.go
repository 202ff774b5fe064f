package session

import (
	"fmt"
	"sync"
	"time"

	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/images"
	"scalp-backend/internal/progress"
	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/metrics"
	"scalp-backend/internal/shared/telemetry"
	"scalp-backend/internal/survey"
)

const subscriberBuffer = 16

// Session is one diagnosis run. All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	id        string
	owner     auth.Identity
	createdAt time.Time

	stage   Stage
	answers survey.Answers
	offer   *survey.Answers
	images  *images.Set

	analyzing       bool
	analysisError   string
	attempt         int
	plan            progress.Plan
	phaseIndex      int
	completedPhases []string
	result          *dispatch.Result

	loginURL   string
	handingOff bool
	finished   bool

	subs    map[int]chan Snapshot
	nextSub int
}

func newSession(id string, owner auth.Identity, now time.Time) *Session {
	return &Session{
		id:        id,
		owner:     owner,
		createdAt: now,
		stage:     StageSelfReport,
		images:    images.NewSet(),
		subs:      make(map[int]chan Snapshot),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// authorizeLocked checks caller against the owner. A guest-owned session is
// claimed by the first authenticated caller.
func (s *Session) authorizeLocked(caller auth.Identity) error {
	if caller.UserID == s.owner.UserID {
		s.owner = caller
		return nil
	}
	if s.owner.Guest && caller.Authenticated() {
		telemetry.Info("session.claimed", map[string]any{
			"session_id": s.id,
			"from":       s.owner.UserID,
			"user_id":    caller.UserID,
		})
		s.owner = caller
		return nil
	}
	return ErrForbidden
}

func (s *Session) transitionLocked(to Stage) {
	from := s.stage
	s.stage = to
	metrics.IncTransition(string(from), string(to))
	telemetry.Info("session.transition", map[string]any{
		"session_id":        s.id,
		"status_transition": fmt.Sprintf("%s->%s", from, to),
		"attempt":           s.attempt,
	})
}

func (s *Session) gender() string {
	return s.answers.CanonicalGender()
}

func (s *Session) previewPath(view images.View) string {
	return fmt.Sprintf("/api/v1/sessions/%s/images/%s/preview", s.id, view)
}

func (s *Session) snapshotLocked() Snapshot {
	gender := s.gender()
	snap := Snapshot{
		ID:            s.id,
		Stage:         s.stage,
		Survey:        s.answers,
		Validation:    s.answers.Validate(),
		RequiredViews: images.RequiredViews(gender),
		MissingViews:  s.images.Missing(gender),
		Images:        s.images.Infos(s.previewPath),
		IsAnalyzing:   s.analyzing,
		Attempt:       s.attempt,
		Gate:          GateView{LoginRequired: s.loginURL != "", LoginURL: s.loginURL},
		Finished:      s.finished,
	}
	if snap.RequiredViews == nil {
		snap.RequiredViews = []images.View{}
	}
	if snap.MissingViews == nil {
		snap.MissingViews = []images.View{}
	}
	if s.offer != nil {
		offer := *s.offer
		snap.ProfileOffer = &offer
	}
	if s.analysisError != "" {
		msg := s.analysisError
		snap.AnalysisError = &msg
	}
	if s.result != nil {
		res := *s.result
		res.Advice = append([]string(nil), s.result.Advice...)
		snap.Result = &res
	}
	if s.plan.Len() > 0 && (s.stage == StageAnalyzing || s.stage == StageResult) {
		pv := &ProgressView{
			PhaseIndex:           s.phaseIndex,
			TotalPhases:          s.plan.Len(),
			CompletedPhases:      append([]string{}, s.completedPhases...),
			EstimatedRemainingMs: s.plan.Remaining(s.phaseIndex).Milliseconds(),
		}
		if n := len(s.completedPhases); n > 0 && s.stage == StageAnalyzing {
			pv.CurrentPhase = s.completedPhases[n-1]
		}
		snap.Progress = pv
	}
	return snap
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full buffer: drop the oldest queued snapshot. Publishing only
		// happens under mu, so the freed slot is ours.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) subscribeLocked() (<-chan Snapshot, int) {
	ch := make(chan Snapshot, subscriberBuffer)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	return ch, id
}

func (s *Session) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) closeSubscribersLocked() {
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
