package detect

import (
	"math"
	"sort"

	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

// InflectionPoints scans every tracked metric for steps where the discrete
// second difference changes sign by more than the configured fraction of
// the metric's range. Pre and post trends are mean first differences over
// disjoint windows adjacent to the step; their relationship classifies the
// inflection type. Results are ordered by step, then metric name.
func InflectionPoints(points []trajectory.Point, metrics []string, cfg Config) ([]trajectory.InflectionPoint, error) {
	if len(points) < MinPoints {
		return nil, &InsufficientDataError{Points: len(points), Min: MinPoints}
	}
	cfg = cfg.normalized()

	var out []trajectory.InflectionPoint
	for _, metric := range metrics {
		series := make([]float64, len(points))
		for i, p := range points {
			series[i] = p.State[metric]
		}
		out = append(out, scanMetric(series, metric, cfg)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].Metric < out[j].Metric
	})
	return out, nil
}

func scanMetric(series []float64, metric string, cfg Config) []trajectory.InflectionPoint {
	rng := seriesRange(series)
	if rng == 0 {
		return nil
	}

	n := len(series)
	d2 := make([]float64, 0, n-2)
	for t := 1; t < n-1; t++ {
		d2 = append(d2, series[t+1]-2*series[t]+series[t-1])
	}

	// Track the last nonzero curvature so junctions that pass through an
	// exactly-zero second difference still register as one sign change.
	var found []trajectory.InflectionPoint
	prev := -1 // index of last nonzero d2
	for i := 0; i < len(d2); i++ {
		if d2[i] == 0 {
			continue
		}
		if prev < 0 || d2[prev]*d2[i] > 0 {
			prev = i
			continue
		}
		if math.Abs(d2[i]-d2[prev]) < cfg.InflectionThreshold*rng {
			prev = i
			continue
		}
		step := i + 1 // d2[i] is centered on series index i+1
		magnitude := math.Abs(d2[i] - d2[prev])
		prev = i

		pre := trendWindow(series, step, -cfg.Window)
		post := trendWindow(series, step, cfg.Window)

		found = append(found, trajectory.InflectionPoint{
			Step:      step,
			Type:      classify(pre, post, rng, cfg),
			Metric:    metric,
			Magnitude: magnitude,
			PreTrend:  pre,
			PostTrend: post,
		})
	}
	return found
}

// trendWindow is the mean first difference over the window of the given
// size before (negative) or after (positive) step, clipped to the series.
func trendWindow(series []float64, step, window int) float64 {
	var lo, hi int
	if window < 0 {
		lo, hi = step+window, step
	} else {
		lo, hi = step, step+window
	}
	if lo < 0 {
		lo = 0
	}
	if hi > len(series)-1 {
		hi = len(series) - 1
	}
	if hi <= lo {
		return 0
	}
	return (series[hi] - series[lo]) / float64(hi-lo)
}

// classify maps the pre/post trend pair onto the closed inflection type
// set. A sign flip into a sharply negative slope is collapse, the mirror
// case recovery, and any other flip a reversal. Without a flip, slope
// shrinking into the stabilization band is stabilization, other slowdowns
// deceleration, and speedups acceleration.
func classify(pre, post, rng float64, cfg Config) trajectory.InflectionType {
	sharp := cfg.SharpSlope * rng
	if pre*post < 0 {
		switch {
		case post < -sharp:
			return trajectory.Collapse
		case post > sharp:
			return trajectory.Recovery
		default:
			return trajectory.Reversal
		}
	}
	preMag, postMag := math.Abs(pre), math.Abs(post)
	if postMag < preMag {
		if postMag <= cfg.StabilizationBand*rng {
			return trajectory.Stabilization
		}
		return trajectory.Deceleration
	}
	return trajectory.Acceleration
}
