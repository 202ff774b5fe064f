package dispatch

import (
	"context"
	"fmt"
	"time"

	"scalp-backend/internal/images"
	"scalp-backend/internal/shared/metrics"
	"scalp-backend/internal/shared/telemetry"
	"scalp-backend/internal/survey"
)

// Dispatcher routes a diagnosis to the backend matching the surveyed gender.
type Dispatcher struct {
	Male   Backend
	Female Backend
	// FemaleAdviceFallback applies the stage advice lists to the female path too.
	FemaleAdviceFallback bool
	now                  func() time.Time
}

// Dispatch performs exactly one backend call. Failures are returned as *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	backend, fallback, err := d.route(req.Survey.Gender)
	if err != nil {
		return Result{}, &Error{Backend: "none", Message: GenericFailureMessage, Err: err}
	}
	for _, view := range images.RequiredViews(req.Survey.Gender) {
		if _, ok := req.Images[view]; !ok {
			return Result{}, &Error{Backend: backend.Name(), Message: GenericFailureMessage, Err: fmt.Errorf("%w: %s", ErrMissingImage, view)}
		}
	}

	now := d.now
	if now == nil {
		now = time.Now
	}
	start := now()
	res, err := backend.Analyze(ctx, req)
	elapsed := now().Sub(start)
	if err != nil {
		dErr := wrapError(backend.Name(), err)
		metrics.ObserveDispatch(backend.Name(), "failed", elapsed)
		telemetry.Error("dispatch.failed", map[string]any{
			"backend":     backend.Name(),
			"user_id":     req.Identity.UserID,
			"status":      dErr.Status,
			"error":       err.Error(),
			"duration_ms": elapsed.Milliseconds(),
		})
		return Result{}, dErr
	}

	if fallback && len(res.Advice) == 0 {
		res.Advice = DefaultAdvice(res.Stage)
	}
	if res.Advice == nil {
		res.Advice = []string{}
	}
	metrics.ObserveDispatch(backend.Name(), "success", elapsed)
	telemetry.Info("dispatch.completed", map[string]any{
		"backend":     backend.Name(),
		"user_id":     req.Identity.UserID,
		"stage":       res.Stage,
		"duration_ms": elapsed.Milliseconds(),
	})
	return res, nil
}

func (d *Dispatcher) route(gender string) (Backend, bool, error) {
	switch gender {
	case survey.GenderMale:
		if d.Male == nil {
			return nil, false, fmt.Errorf("%w: male backend not configured", ErrUnsupportedInput)
		}
		return d.Male, true, nil
	case survey.GenderFemale:
		if d.Female == nil {
			return nil, false, fmt.Errorf("%w: female backend not configured", ErrUnsupportedInput)
		}
		return d.Female, d.FemaleAdviceFallback, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedInput, gender)
	}
}
