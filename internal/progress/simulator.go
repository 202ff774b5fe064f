package progress

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Simulator walks a plan one phase at a time.
type Simulator struct {
	Sleep SleepFunc
}

// NewSimulator returns a Simulator using sleep, or wall-clock sleeping when nil.
func NewSimulator(sleep SleepFunc) *Simulator {
	if sleep == nil {
		sleep = Sleep
	}
	return &Simulator{Sleep: sleep}
}

// Run records each phase through onPhase, then waits out its duration.
// At plan.DispatchAt, work is awaited to completion before that phase's
// duration begins. An error from work aborts the run; remaining phases are
// not recorded.
func (s *Simulator) Run(ctx context.Context, plan Plan, onPhase func(index int, phase Phase), work func(ctx context.Context) error) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for i, phase := range plan.Phases {
		if onPhase != nil {
			onPhase(i, phase)
		}
		if i == plan.DispatchAt && work != nil {
			if err := work(ctx); err != nil {
				return err
			}
		}
		if err := sleep(ctx, phase.Duration); err != nil {
			return err
		}
	}
	return nil
}
