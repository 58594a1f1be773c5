package detect

import (
	"fmt"
	"math"

	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

// pathwayTemplate is one of the closed set of strategic choices sampled at
// every decision point.
type pathwayTemplate struct {
	name        string
	impactScale float64
	decayScale  float64
}

// Templates are ordered by how often each choice is worth surfacing; the
// MaxPathways cap truncates from the tail.
var pathwayTemplates = []pathwayTemplate{
	{"mitigate", 0.5, 1.25},
	{"contain", 0.25, 1.5},
	{"accelerate", 1.5, 0.9},
	{"deflect", 0.75, 1.1},
}

// DecisionPoints flags steps where the local gradient variance of the
// primary metric exceeds the configured multiple of its global variance.
// Candidates within one window of each other merge, keeping the
// highest-criticality step. Every returned point carries 2-4 alternative
// pathways with divergence estimated from the local state change; the
// engine replaces these estimates with measured divergences when it builds
// branches.
func DecisionPoints(points []trajectory.Point, metric string, cfg Config) ([]trajectory.DecisionPoint, error) {
	if len(points) < MinPoints {
		return nil, &InsufficientDataError{Points: len(points), Min: MinPoints}
	}
	cfg = cfg.normalized()

	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.State[metric]
	}
	grad := firstDiff(series)
	globalVar := variance(grad)
	rng := seriesRange(series)
	if rng == 0 {
		return nil, nil // flat path has no leverage anywhere
	}

	w := cfg.Window
	type candidate struct {
		step        int
		criticality float64
		impact      float64
	}
	var candidates []candidate

	for t := w; t < len(grad)-w; t++ {
		local := grad[t-w : t+w+1]
		if globalVar > 0 && variance(local) <= cfg.VarianceMultiple*globalVar {
			continue
		}
		if globalVar == 0 && variance(local) == 0 {
			continue
		}

		// Impact: state change across the following window, against range.
		end := t + w
		if end >= len(series) {
			end = len(series) - 1
		}
		impact := math.Abs(series[end]-series[t]) / rng

		reversibility := reversibilityFrom(cfg.MeanHalfLife, w)
		window := cfg.SaturationStep - t
		if window < 1 {
			window = 1
		}
		timeSens := 1 / float64(1+window)

		crit := clamp01(cfg.ImpactWeight*impact +
			cfg.ReversibilityWeight*(1-reversibility) +
			cfg.TimeWeight*timeSens)

		candidates = append(candidates, candidate{step: t, criticality: crit, impact: impact})
	}

	// Merge candidates within a window, keeping the strongest.
	var merged []candidate
	for _, c := range candidates {
		if n := len(merged); n > 0 && c.step-merged[n-1].step <= w {
			if c.criticality > merged[n-1].criticality {
				merged[n-1] = c
			}
			continue
		}
		merged = append(merged, c)
	}

	out := make([]trajectory.DecisionPoint, 0, len(merged))
	for _, c := range merged {
		window := cfg.SaturationStep - c.step
		if window < 1 {
			window = 1
		}
		dp := trajectory.DecisionPoint{
			ID:                 fmt.Sprintf("dp-%03d", c.step),
			Step:               c.step,
			Criticality:        c.criticality,
			Reversibility:      reversibilityFrom(cfg.MeanHalfLife, w),
			TimeSensitivity:    1 / float64(1+window),
			InterventionWindow: window,
			Pathways:           buildPathways(c.impact, cfg.MaxPathways),
		}
		out = append(out, dp)
	}
	return out, nil
}

// reversibilityFrom derives how recoverable a deviation is from the mean
// decay half-life: fast-decaying shocks revert on their own.
func reversibilityFrom(halfLife float64, window int) float64 {
	if halfLife <= 0 {
		return 1
	}
	return clamp01(1 - math.Exp(-math.Ln2*float64(window)/halfLife))
}

func buildPathways(impact float64, max int) []trajectory.Pathway {
	n := len(pathwayTemplates)
	if n > max {
		n = max
	}
	out := make([]trajectory.Pathway, n)
	for i, tpl := range pathwayTemplates[:n] {
		out[i] = trajectory.Pathway{
			Name:        tpl.name,
			ImpactScale: tpl.impactScale,
			DecayScale:  tpl.decayScale,
			// Estimate; measured divergence replaces this when branches
			// are generated.
			Divergence: math.Abs(1-tpl.impactScale) * impact,
		}
	}
	return out
}
