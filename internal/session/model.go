package session

import (
	"errors"
	"fmt"

	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/images"
	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/survey"
)

// Stage is the session's position in the diagnosis flow.
type Stage string

const (
	StageSelfReport  Stage = "SelfReport"
	StageImageUpload Stage = "ImageUpload"
	StageAnalyzing   Stage = "Analyzing"
	StageResult      Stage = "Result"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrForbidden         = errors.New("session belongs to another user")
	ErrInvalidTransition = errors.New("operation not allowed in current stage")
	ErrAnalysisInFlight  = errors.New("analysis already in progress")
	ErrImagesIncomplete  = errors.New("required images missing")
	ErrViewNotRequired   = errors.New("image view not used for this gender")
	ErrNoProfileOffer    = errors.New("no profile pre-fill pending")
	ErrLoginRequired     = errors.New("login required to finish")
	ErrNothingToRetry    = errors.New("no failed analysis to retry")
	ErrFinishing         = errors.New("session is already being finished")
)

// TransitionError reports an operation attempted from the wrong stage.
type TransitionError struct {
	Op    string
	Stage Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: not allowed in stage %s", e.Op, e.Stage)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SurveyError carries per-field validation failures.
type SurveyError struct {
	Validation survey.Validation
}

func (e *SurveyError) Error() string {
	return "survey incomplete"
}

func (e *SurveyError) Unwrap() error {
	return survey.ErrIncomplete
}

// Handoff is what leaves the session when an authenticated caller finishes.
type Handoff struct {
	SessionID string
	RequestID string
	Identity  auth.Identity
	Survey    survey.Answers
	Result    dispatch.Result
}

// FinishOutcome is returned from Finish.
type FinishOutcome struct {
	LoginRequired bool             `json:"loginRequired"`
	LoginURL      string           `json:"loginUrl,omitempty"`
	ResultID      string           `json:"resultId,omitempty"`
	Survey        *survey.Answers  `json:"survey,omitempty"`
	Result        *dispatch.Result `json:"result,omitempty"`
}

// ProgressView exposes the pacing state of the current attempt.
type ProgressView struct {
	PhaseIndex           int      `json:"phaseIndex"`
	TotalPhases          int      `json:"totalPhases"`
	CurrentPhase         string   `json:"currentPhase,omitempty"`
	CompletedPhases      []string `json:"completedPhases"`
	EstimatedRemainingMs int64    `json:"estimatedRemainingMs"`
}

// GateView exposes the completion gate prompt.
type GateView struct {
	LoginRequired bool   `json:"loginRequired"`
	LoginURL      string `json:"loginUrl,omitempty"`
}

// Snapshot is an immutable view of a session for callers and observers.
type Snapshot struct {
	ID            string            `json:"id"`
	Stage         Stage             `json:"stage"`
	Survey        survey.Answers    `json:"survey"`
	Validation    survey.Validation `json:"validation"`
	ProfileOffer  *survey.Answers   `json:"profileOffer,omitempty"`
	RequiredViews []images.View     `json:"requiredViews"`
	MissingViews  []images.View     `json:"missingViews"`
	Images        []images.Info     `json:"images"`
	IsAnalyzing   bool              `json:"isAnalyzing"`
	AnalysisError *string           `json:"analysisError"`
	Attempt       int               `json:"attempt"`
	Progress      *ProgressView     `json:"progress,omitempty"`
	Result        *dispatch.Result  `json:"result"`
	Gate          GateView          `json:"gate"`
	Finished      bool              `json:"finished"`
}
