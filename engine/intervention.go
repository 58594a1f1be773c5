package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/stratsim-xyz/go-stratsim/cascade"
	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

// ErrDecisionNotFound is returned when an intervention names a decision
// point absent from the trajectory.
var ErrDecisionNotFound = errors.New("engine: decision point not found")

// Intervention describes a strategic action applied at a decision point.
// ImpactScale multiplies cascade injections while active, DecayScale
// speeds or slows reversion, and TimeframeSteps bounds how long the
// intervention holds (zero means the rest of the horizon). CostTier is
// carried through to provenance for the caller's accounting.
type Intervention struct {
	Name           string  `json:"name"`
	ImpactScale    float64 `json:"impactScale"`
	DecayScale     float64 `json:"decayScale"`
	CostTier       string  `json:"costTier"`
	TimeframeSteps int     `json:"timeframeSteps"`
}

// TestIntervention re-projects the trajectory with the intervention
// applied from the named decision point forward. The original trajectory
// is untouched; the result is a new aggregate whose baseline equals the
// original's before the decision step and diverges after it. Provenance
// links the new trajectory to its parent.
func (e *Engine) TestIntervention(ctx context.Context, traj *trajectory.Trajectory, decisionID string, iv Intervention) (*trajectory.Trajectory, error) {
	dp := traj.Decision(decisionID)
	if dp == nil {
		return nil, fmt.Errorf("%w: %q", ErrDecisionNotFound, decisionID)
	}
	if iv.ImpactScale == 0 {
		iv.ImpactScale = 1
	}
	if iv.DecayScale == 0 {
		iv.DecayScale = 1
	}

	cf := traj.Counterfactual
	cas, err := cascade.Simulate(cascade.Trigger{Origin: cf.Origin, Magnitude: cf.Magnitude}, e.graph, e.cascadeOpts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod := &trajectory.Modifier{
		FromStep:    dp.Step,
		ImpactScale: iv.ImpactScale,
		DecayScale:  iv.DecayScale,
	}
	if iv.TimeframeSteps > 0 {
		mod.ToStep = dp.Step + iv.TimeframeSteps
	}

	integ := trajectory.NewIntegrator(e.cfg, e.graph, cas.Waves, cf.Step, traj.Horizon)
	name := iv.Name
	if name == "" {
		name = "intervention"
	}
	return e.assemble(ctx, integ, cas, cf, traj.Horizon, traj.Granularity, traj.Provenance.Seed, mod, trajectory.Provenance{
		CounterfactualID: cf.ID,
		Seed:             traj.Provenance.Seed,
		ParentID:         traj.ID,
		Intervention:     fmt.Sprintf("%s@%s[%s]", name, decisionID, iv.CostTier),
	})
}
