package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/images"
	"scalp-backend/internal/profile"
	"scalp-backend/internal/progress"
	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/metrics"
	"scalp-backend/internal/shared/telemetry"
)

// Analyzer performs the real diagnosis call.
type Analyzer interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

// HandoffSink receives finished diagnoses and returns a stored result ID.
type HandoffSink interface {
	Handoff(ctx context.Context, h Handoff) (string, error)
}

// Service drives sessions through the diagnosis flow.
type Service struct {
	Store      *Store
	Profiles   *profile.Reconciler
	Acceptor   *images.Acceptor
	Uploader   images.Uploader
	Dispatcher Analyzer
	Plans      *progress.Catalog
	Simulator  *progress.Simulator
	PhaseScale float64
	Handoff    HandoffSink
	// LoginURL is where unauthenticated callers are sent to finish.
	LoginURL string

	UploadTimeout time.Duration
	NewID         func() string
	Now           func() time.Time

	wg sync.WaitGroup
}

// Wait blocks until background uploads and analysis attempts have settled.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) load(id string, caller auth.Identity) (*Session, error) {
	sess, err := s.Store.Get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	err = sess.authorizeLocked(caller)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Start creates a session in SelfReport, with a profile pre-fill offer when
// the caller has a complete stored profile.
func (s *Service) Start(ctx context.Context, caller auth.Identity) (Snapshot, error) {
	if caller.UserID == "" {
		return Snapshot{}, errors.New("caller identity is required")
	}
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	sess := newSession(newID(), caller, s.now().UTC())

	if answers, ok := s.Profiles.Offer(ctx, caller); ok {
		sess.offer = &answers
	}

	s.Store.Put(sess)
	metrics.IncSessionStarted(caller.Guest)
	telemetry.Info("session.started", map[string]any{
		"session_id":    sess.id,
		"request_id":    requestIDFromContext(ctx),
		"user_id":       caller.UserID,
		"is_guest":      caller.Guest,
		"profile_offer": sess.offer != nil,
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Get returns the current snapshot.
func (s *Service) Get(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// AcceptProfile adopts the offered pre-fill and skips to ImageUpload.
func (s *Service) AcceptProfile(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageSelfReport {
		return Snapshot{}, &TransitionError{Op: "accept profile", Stage: sess.stage}
	}
	if sess.offer == nil {
		return Snapshot{}, ErrNoProfileOffer
	}
	sess.answers = *sess.offer
	sess.offer = nil
	sess.transitionLocked(StageImageUpload)
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

// DeclineProfile drops the offer and returns where the caller may edit the
// stored profile. The session stays in SelfReport.
func (s *Service) DeclineProfile(ctx context.Context, id string, caller auth.Identity) (string, Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return "", Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageSelfReport {
		return "", Snapshot{}, &TransitionError{Op: "decline profile", Stage: sess.stage}
	}
	if sess.offer == nil {
		return "", Snapshot{}, ErrNoProfileOffer
	}
	sess.offer = nil
	sess.publishLocked()
	editURL := ""
	if s.Profiles != nil {
		editURL = s.Profiles.EditURL
	}
	return editURL, sess.snapshotLocked(), nil
}

// SetSurveyField stores a raw answer. Answers are immutable once the session
// leaves SelfReport.
func (s *Service) SetSurveyField(ctx context.Context, id string, caller auth.Identity, field, value string) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageSelfReport {
		return Snapshot{}, &TransitionError{Op: "set survey field", Stage: sess.stage}
	}
	if err := sess.answers.SetField(field, value); err != nil {
		return Snapshot{}, err
	}
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

// SubmitSurvey moves to ImageUpload when every answer is valid.
func (s *Service) SubmitSurvey(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageSelfReport {
		return Snapshot{}, &TransitionError{Op: "submit survey", Stage: sess.stage}
	}
	if v := sess.answers.Validate(); !v.OK() {
		return Snapshot{}, &SurveyError{Validation: v}
	}
	sess.offer = nil
	sess.transitionLocked(StageImageUpload)
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

// SetImage validates and accepts an image for view, replacing any prior one.
// A rejected image leaves the session untouched.
func (s *Service) SetImage(ctx context.Context, id string, caller auth.Identity, view images.View, file images.File) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	stage := sess.stage
	gender := sess.gender()
	sess.mu.Unlock()
	if stage != StageImageUpload {
		return Snapshot{}, &TransitionError{Op: "set image", Stage: stage}
	}
	if !images.Requires(gender, view) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrViewNotRequired, view)
	}

	asset, err := s.Acceptor.Accept(ctx, caller, view, file)
	if err != nil {
		var verr *images.ValidationError
		if errors.As(err, &verr) {
			metrics.IncImageRejected(verr.Reason)
			telemetry.Info("images.rejected", map[string]any{
				"session_id": sess.id,
				"view":       string(view),
				"reason":     verr.Reason,
			})
		}
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StageImageUpload {
		return Snapshot{}, &TransitionError{Op: "set image", Stage: sess.stage}
	}
	if s.Uploader != nil {
		asset.UploadStatus = images.UploadUploading
	}
	sess.images.Put(asset)
	sess.publishLocked()

	if s.Uploader != nil {
		s.wg.Add(1)
		go s.upload(backgroundWithRequestID(ctx), sess, sess.owner, asset)
	}
	return sess.snapshotLocked(), nil
}

func (s *Service) upload(ctx context.Context, sess *Session, owner auth.Identity, asset images.Asset) {
	defer s.wg.Done()
	timeout := s.UploadTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	remoteURL, err := s.Uploader.Upload(ctx, owner, asset)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	applied := sess.images.ResolveUpload(asset.View, asset.ID, remoteURL, err)
	outcome := "uploaded"
	switch {
	case !applied:
		outcome = "stale"
	case err != nil:
		outcome = "failed"
	}
	metrics.IncUpload(outcome)
	fields := map[string]any{
		"session_id": sess.id,
		"request_id": requestIDFromContext(ctx),
		"view":       string(asset.View),
		"asset_id":   asset.ID,
		"outcome":    outcome,
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("images.upload", fields)
	} else {
		telemetry.Info("images.upload", fields)
	}
	if applied {
		sess.publishLocked()
	}
}

// Preview returns the accepted asset for view.
func (s *Service) Preview(ctx context.Context, id string, caller auth.Identity, view images.View) (images.Asset, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return images.Asset{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	asset, ok := sess.images.Get(view)
	if !ok {
		return images.Asset{}, fmt.Errorf("%w: %s", ErrImagesIncomplete, view)
	}
	return asset, nil
}

// StartAnalysis enters Analyzing and runs the paced pipeline in the background.
func (s *Service) StartAnalysis(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage == StageAnalyzing || sess.analyzing {
		return Snapshot{}, ErrAnalysisInFlight
	}
	if sess.stage != StageImageUpload {
		return Snapshot{}, &TransitionError{Op: "start analysis", Stage: sess.stage}
	}
	gender := sess.gender()
	if !sess.images.IsComplete(gender) {
		missing := sess.images.Missing(gender)
		return Snapshot{}, fmt.Errorf("%w: %v", ErrImagesIncomplete, missing)
	}
	surveyProfile, err := sess.answers.Profile()
	if err != nil {
		return Snapshot{}, err
	}
	plan, err := s.Plans.For(gender)
	if err != nil {
		return Snapshot{}, err
	}
	if s.PhaseScale > 0 && s.PhaseScale != 1 {
		plan = plan.Scaled(s.PhaseScale)
	}

	req := dispatch.Request{
		Identity: sess.owner,
		Survey:   surveyProfile,
		Images:   make(map[images.View]images.Asset),
	}
	for _, view := range images.RequiredViews(gender) {
		asset, _ := sess.images.Get(view)
		req.Images[view] = asset
	}

	sess.attempt++
	sess.analysisError = ""
	sess.result = nil
	sess.phaseIndex = 0
	sess.completedPhases = nil
	sess.plan = plan
	sess.analyzing = true
	sess.transitionLocked(StageAnalyzing)
	sess.publishLocked()

	s.wg.Add(1)
	go s.runAttempt(backgroundWithRequestID(ctx), sess, sess.attempt, plan, req)

	return sess.snapshotLocked(), nil
}

// Retry clears a failed attempt's error so the caller can adjust images and
// analyze again. It is only possible once the failed attempt has settled.
func (s *Service) Retry(ctx context.Context, id string, caller auth.Identity) (Snapshot, error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.analyzing {
		return Snapshot{}, ErrAnalysisInFlight
	}
	if sess.stage != StageImageUpload {
		return Snapshot{}, &TransitionError{Op: "retry", Stage: sess.stage}
	}
	if sess.analysisError == "" {
		return Snapshot{}, ErrNothingToRetry
	}
	sess.analysisError = ""
	sess.result = nil
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

func (s *Service) runAttempt(ctx context.Context, sess *Session, attempt int, plan progress.Plan, req dispatch.Request) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.failAttempt(ctx, sess, attempt, fmt.Errorf("panic: %v", r))
		}
	}()

	sim := s.Simulator
	if sim == nil {
		sim = progress.NewSimulator(nil)
	}

	var result dispatch.Result
	err := sim.Run(ctx, plan,
		func(index int, phase progress.Phase) {
			s.recordPhase(sess, attempt, index, phase)
		},
		func(ctx context.Context) error {
			if s.Dispatcher == nil {
				return errors.New("diagnosis dispatcher not configured")
			}
			res, err := s.Dispatcher.Dispatch(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
	)
	if err != nil {
		s.failAttempt(ctx, sess, attempt, err)
		return
	}
	s.completeAttempt(ctx, sess, attempt, result)
}

func (s *Service) recordPhase(sess *Session, attempt, index int, phase progress.Phase) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.attempt != attempt || sess.stage != StageAnalyzing {
		return
	}
	sess.completedPhases = append(sess.completedPhases, phase.Label)
	sess.phaseIndex = index + 1
	sess.publishLocked()
}

func (s *Service) failAttempt(ctx context.Context, sess *Session, attempt int, err error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.attempt != attempt || sess.stage != StageAnalyzing {
		telemetry.Info("analysis.stale_outcome", map[string]any{"session_id": sess.id, "attempt": attempt})
		return
	}
	gender := sess.gender()
	sess.analyzing = false
	sess.result = nil
	sess.analysisError = dispatch.UserMessage(err)
	sess.transitionLocked(StageImageUpload)
	metrics.IncAnalysis(gender, "failed")
	telemetry.Error("analysis.failed", map[string]any{
		"session_id":  sess.id,
		"request_id":  requestIDFromContext(ctx),
		"attempt":     attempt,
		"phase_index": sess.phaseIndex,
		"error":       err.Error(),
	})
	sess.publishLocked()
}

func (s *Service) completeAttempt(ctx context.Context, sess *Session, attempt int, result dispatch.Result) {
	sess.mu.Lock()
	if sess.attempt != attempt || sess.stage != StageAnalyzing {
		sess.mu.Unlock()
		telemetry.Info("analysis.stale_outcome", map[string]any{"session_id": sess.id, "attempt": attempt})
		return
	}
	if len(sess.completedPhases) != sess.plan.Len() {
		sess.mu.Unlock()
		s.failAttempt(ctx, sess, attempt, fmt.Errorf("pipeline ended after %d of %d phases", len(sess.completedPhases), sess.plan.Len()))
		return
	}
	defer sess.mu.Unlock()
	sess.analyzing = false
	res := result
	sess.result = &res
	sess.transitionLocked(StageResult)
	metrics.IncAnalysis(sess.gender(), "success")
	telemetry.Info("analysis.completed", map[string]any{
		"session_id": sess.id,
		"request_id": requestIDFromContext(ctx),
		"attempt":    attempt,
		"stage":      result.Stage,
	})
	sess.publishLocked()
}

// Subscribe streams snapshots for the session, starting with the current one.
// The returned cancel func must be called when the observer goes away.
func (s *Service) Subscribe(ctx context.Context, id string, caller auth.Identity) (<-chan Snapshot, func(), error) {
	sess, err := s.load(id, caller)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	ch, subID := sess.subscribeLocked()
	sess.mu.Unlock()
	return ch, func() { sess.unsubscribe(subID) }, nil
}
