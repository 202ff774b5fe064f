package progress

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

var ErrUnknownPlan = errors.New("no progress plan for gender")

// Phase is one labeled step of the pacing sequence.
type Phase struct {
	Label    string
	Duration time.Duration
}

// Plan is the ordered phase list for one gender.
type Plan struct {
	Gender     string
	Phases     []Phase
	DispatchAt int
}

// Len returns the number of phases.
func (p Plan) Len() int {
	return len(p.Phases)
}

// Total returns the summed duration of all phases.
func (p Plan) Total() time.Duration {
	return p.Remaining(0)
}

// Remaining returns the summed duration of phases[index:].
func (p Plan) Remaining(index int) time.Duration {
	if index < 0 {
		index = 0
	}
	var total time.Duration
	for i := index; i < len(p.Phases); i++ {
		total += p.Phases[i].Duration
	}
	return total
}

// Labels returns the phase labels in order.
func (p Plan) Labels() []string {
	out := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		out[i] = ph.Label
	}
	return out
}

// Scaled returns a copy with each duration multiplied by factor.
func (p Plan) Scaled(factor float64) Plan {
	if factor < 0 {
		factor = 0
	}
	out := Plan{Gender: p.Gender, DispatchAt: p.DispatchAt, Phases: make([]Phase, len(p.Phases))}
	for i, ph := range p.Phases {
		out.Phases[i] = Phase{Label: ph.Label, Duration: time.Duration(float64(ph.Duration) * factor)}
	}
	return out
}

type plansFile struct {
	DispatchPhase int                    `yaml:"dispatch_phase"`
	Plans         map[string][]phaseSpec `yaml:"plans"`
}

type phaseSpec struct {
	Label      string `yaml:"label"`
	DurationMs int64  `yaml:"duration_ms"`
}

// Catalog holds a plan per gender.
type Catalog struct {
	plans map[string]Plan
}

// LoadCatalog parses a YAML plan file.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file plansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse progress plans: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, errors.New("progress plans: no plans defined")
	}
	c := &Catalog{plans: make(map[string]Plan, len(file.Plans))}
	for gender, specs := range file.Plans {
		if len(specs) == 0 {
			return nil, fmt.Errorf("progress plans: %s has no phases", gender)
		}
		if file.DispatchPhase < 0 || file.DispatchPhase >= len(specs) {
			return nil, fmt.Errorf("progress plans: dispatch_phase %d out of range for %s", file.DispatchPhase, gender)
		}
		plan := Plan{Gender: gender, DispatchAt: file.DispatchPhase, Phases: make([]Phase, len(specs))}
		for i, s := range specs {
			if strings.TrimSpace(s.Label) == "" {
				return nil, fmt.Errorf("progress plans: %s phase %d has no label", gender, i)
			}
			if s.DurationMs < 0 {
				return nil, fmt.Errorf("progress plans: %s phase %d has negative duration", gender, i)
			}
			plan.Phases[i] = Phase{Label: s.Label, Duration: time.Duration(s.DurationMs) * time.Millisecond}
		}
		c.plans[gender] = plan
	}
	return c, nil
}

// DefaultCatalog returns the embedded plans. It panics if the embedded file is malformed.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(defaultPlans)
	if err != nil {
		panic(err)
	}
	return c
}

// For returns the plan for the given gender.
func (c *Catalog) For(gender string) (Plan, error) {
	if c == nil {
		return Plan{}, ErrUnknownPlan
	}
	plan, ok := c.plans[gender]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, gender)
	}
	return plan, nil
}
