// Package detect post-processes a computed trajectory, flagging steps of
// high strategic leverage (decision points) and steps where the trend
// changes character (inflection points). Detection is a pure function of
// the path and its config: re-running it on the same trajectory yields the
// same annotations in the same order.
package detect

import "fmt"

// MinPoints is the shortest path detection operates on; second differences
// are undefined below it.
const MinPoints = 3

// InsufficientDataError reports a trajectory too short to analyze.
type InsufficientDataError struct {
	Points int
	Min    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("detect: trajectory has %d points, minimum is %d", e.Points, e.Min)
}

// Config holds the tunable detection thresholds. The source thresholds are
// model-dependent, so they are configuration rather than constants.
type Config struct {
	// Window is the sliding window, in steps, for local gradient variance
	// and for merging nearby candidates.
	Window int

	// VarianceMultiple is how many times the global gradient variance the
	// local variance must exceed to mark a decision candidate.
	VarianceMultiple float64

	// InflectionThreshold is the minimum second-difference change, as a
	// fraction of the metric's range, that qualifies an inflection.
	InflectionThreshold float64

	// SharpSlope is the post-trend slope, as a fraction of the metric's
	// range per step, beyond which a sign flip classifies as collapse or
	// recovery rather than reversal.
	SharpSlope float64

	// StabilizationBand is the post-trend magnitude, as a fraction of
	// range per step, under which a same-sign slowdown counts as
	// stabilization rather than deceleration.
	StabilizationBand float64

	// ImpactWeight, ReversibilityWeight, and TimeWeight combine into the
	// criticality score; they are normalized before use.
	ImpactWeight        float64
	ReversibilityWeight float64
	TimeWeight          float64

	// MeanHalfLife is the mean shock half-life of the model, in steps,
	// from which reversibility is derived.
	MeanHalfLife float64

	// SaturationStep is the step at which the source cascade saturated;
	// the intervention window closes there.
	SaturationStep int

	// MaxPathways caps alternative pathways per decision point (2-4).
	MaxPathways int
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		Window:              3,
		VarianceMultiple:    2.0,
		InflectionThreshold: 0.05,
		SharpSlope:          0.04,
		StabilizationBand:   0.01,
		ImpactWeight:        0.5,
		ReversibilityWeight: 0.25,
		TimeWeight:          0.25,
		MeanHalfLife:        6,
		SaturationStep:      12,
		MaxPathways:         4,
	}
}

func (c Config) normalized() Config {
	if c.Window < 1 {
		c.Window = 1
	}
	if c.MaxPathways < 2 {
		c.MaxPathways = 2
	}
	if c.MaxPathways > 4 {
		c.MaxPathways = 4
	}
	wsum := c.ImpactWeight + c.ReversibilityWeight + c.TimeWeight
	if wsum <= 0 {
		d := DefaultConfig()
		c.ImpactWeight, c.ReversibilityWeight, c.TimeWeight = d.ImpactWeight, d.ReversibilityWeight, d.TimeWeight
		wsum = c.ImpactWeight + c.ReversibilityWeight + c.TimeWeight
	}
	c.ImpactWeight /= wsum
	c.ReversibilityWeight /= wsum
	c.TimeWeight /= wsum
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func seriesRange(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	min, max := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, v := range xs {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

func firstDiff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}
