package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultCatalogHasSixPhasesPerGender(t *testing.T) {
	c := DefaultCatalog()
	for _, gender := range []string{"male", "female"} {
		plan, err := c.For(gender)
		if err != nil {
			t.Fatalf("For(%s): %v", gender, err)
		}
		if plan.Len() != 6 {
			t.Fatalf("%s: expected 6 phases, got %d", gender, plan.Len())
		}
		if plan.DispatchAt != 2 {
			t.Fatalf("%s: expected dispatch at phase 2, got %d", gender, plan.DispatchAt)
		}
	}
	male, _ := c.For("male")
	female, _ := c.For("female")
	if male.Phases[2].Label == female.Phases[2].Label {
		t.Fatalf("expected distinct wording for male and female analysis phase")
	}
}

func TestCatalogUnknownGender(t *testing.T) {
	if _, err := DefaultCatalog().For("other"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestLoadCatalogRejectsDispatchOutOfRange(t *testing.T) {
	data := []byte("dispatch_phase: 3\nplans:\n  male:\n    - label: a\n      duration_ms: 10\n")
	if _, err := LoadCatalog(data); err == nil {
		t.Fatalf("expected error for dispatch phase beyond plan")
	}
}

func TestRemainingSumsTail(t *testing.T) {
	plan := Plan{Phases: []Phase{
		{Label: "a", Duration: 100 * time.Millisecond},
		{Label: "b", Duration: 200 * time.Millisecond},
		{Label: "c", Duration: 300 * time.Millisecond},
	}}
	cases := map[int]time.Duration{
		0: 600 * time.Millisecond,
		1: 500 * time.Millisecond,
		2: 300 * time.Millisecond,
		3: 0,
	}
	for index, want := range cases {
		if got := plan.Remaining(index); got != want {
			t.Fatalf("Remaining(%d): expected %v, got %v", index, want, got)
		}
	}
	if plan.Total() != 600*time.Millisecond {
		t.Fatalf("expected total 600ms, got %v", plan.Total())
	}
	if got := plan.Scaled(0.5).Total(); got != 300*time.Millisecond {
		t.Fatalf("expected scaled total 300ms, got %v", got)
	}
}

type recordedSleep struct {
	events *[]string
}

func (r recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	*r.events = append(*r.events, "sleep:"+d.String())
	return nil
}

func TestRunAwaitsWorkBeforeDispatchPhaseSleep(t *testing.T) {
	plan, err := DefaultCatalog().For("male")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	var events []string
	sim := NewSimulator(recordedSleep{events: &events}.sleep)

	err = sim.Run(context.Background(), plan,
		func(i int, ph Phase) { events = append(events, "phase:"+ph.Label) },
		func(ctx context.Context) error {
			events = append(events, "work")
			return nil
		},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 13 {
		t.Fatalf("expected 6 phases, 6 sleeps and 1 work event, got %d: %v", len(events), events)
	}
	// phase0 sleep0 phase1 sleep1 phase2 work sleep2 ...
	if events[4] != "phase:"+plan.Phases[2].Label || events[5] != "work" {
		t.Fatalf("expected work right after third phase label, got %v", events[4:7])
	}
	if events[6] != "sleep:"+plan.Phases[2].Duration.String() {
		t.Fatalf("expected third phase sleep after work, got %s", events[6])
	}
}

func TestRunAbortsOnWorkError(t *testing.T) {
	plan, _ := DefaultCatalog().For("female")
	var labels []string
	sim := NewSimulator(func(ctx context.Context, d time.Duration) error { return nil })
	boom := errors.New("boom")

	err := sim.Run(context.Background(), plan,
		func(i int, ph Phase) { labels = append(labels, ph.Label) },
		func(ctx context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected work error, got %v", err)
	}
	if len(labels) != plan.DispatchAt+1 {
		t.Fatalf("expected %d phases recorded before abort, got %d", plan.DispatchAt+1, len(labels))
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
