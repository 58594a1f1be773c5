package detect

import (
	"errors"
	"testing"

	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

// piecewise builds a 21-point series from two closures joined at t=10.
func piecewise(pre, post func(t float64) float64) []float64 {
	s := make([]float64, 21)
	for t := 0; t <= 10; t++ {
		s[t] = pre(float64(t))
	}
	for t := 11; t <= 20; t++ {
		s[t] = post(float64(t - 10))
	}
	return s
}

func singleInflection(t *testing.T, series []float64, cfg Config) trajectory.InflectionPoint {
	t.Helper()
	ips, err := InflectionPoints(mkPoints(series), []string{"outcome"}, cfg)
	if err != nil {
		t.Fatalf("InflectionPoints failed: %v", err)
	}
	if len(ips) != 1 {
		t.Fatalf("expected exactly 1 inflection, got %d: %+v", len(ips), ips)
	}
	return ips[0]
}

func TestInflectionReversal(t *testing.T) {
	// Quadratic rise turning into a shallow decline.
	s := piecewise(
		func(t float64) float64 { return t * t },
		func(u float64) float64 { return 100 - 2*u - 0.1*u*u },
	)
	ip := singleInflection(t, s, DefaultConfig())
	if ip.Step != 10 {
		t.Errorf("expected inflection at step 10, got %d", ip.Step)
	}
	if ip.Type != trajectory.Reversal {
		t.Errorf("expected reversal, got %s", ip.Type)
	}
	if ip.PreTrend <= 0 || ip.PostTrend >= 0 {
		t.Errorf("expected a trend sign flip, got pre=%f post=%f", ip.PreTrend, ip.PostTrend)
	}
}

func TestInflectionCollapse(t *testing.T) {
	s := piecewise(
		func(t float64) float64 { return t * t },
		func(u float64) float64 { return 100 - 8*u - 0.5*u*u },
	)
	ip := singleInflection(t, s, DefaultConfig())
	if ip.Type != trajectory.Collapse {
		t.Errorf("expected collapse, got %s", ip.Type)
	}
}

func TestInflectionRecovery(t *testing.T) {
	s := piecewise(
		func(t float64) float64 { return -t * t },
		func(u float64) float64 { return -100 + 8*u + 0.5*u*u },
	)
	ip := singleInflection(t, s, DefaultConfig())
	if ip.Type != trajectory.Recovery {
		t.Errorf("expected recovery, got %s", ip.Type)
	}
	if ip.PostTrend <= 0 {
		t.Errorf("recovery must have a positive post trend, got %f", ip.PostTrend)
	}
}

func TestInflectionDeceleration(t *testing.T) {
	// Accelerating rise flattening into a slower rise.
	s := piecewise(
		func(t float64) float64 { return 2 * t * t },
		func(u float64) float64 { return 200 + 10*u - 0.2*u*u },
	)
	ip := singleInflection(t, s, DefaultConfig())
	if ip.Type != trajectory.Deceleration {
		t.Errorf("expected deceleration, got %s", ip.Type)
	}
	if ip.PreTrend*ip.PostTrend <= 0 {
		t.Errorf("deceleration keeps the trend sign, got pre=%f post=%f", ip.PreTrend, ip.PostTrend)
	}
}

func TestInflectionStabilization(t *testing.T) {
	s := piecewise(
		func(t float64) float64 { return 2 * t * t },
		func(u float64) float64 { return 200 + 0.5*u },
	)
	ip := singleInflection(t, s, DefaultConfig())
	if ip.Type != trajectory.Stabilization {
		t.Errorf("expected stabilization, got %s", ip.Type)
	}
}

func TestInflectionAcceleration(t *testing.T) {
	// Decelerating rise breaking into a faster rise. The curvature change is
	// small relative to range, so the threshold is lowered.
	s := piecewise(
		func(t float64) float64 { return 20*t - 0.5*t*t },
		func(u float64) float64 { return 150 + 12*u + u*u },
	)
	cfg := DefaultConfig()
	cfg.InflectionThreshold = 0.005
	ip := singleInflection(t, s, cfg)
	if ip.Type != trajectory.Acceleration {
		t.Errorf("expected acceleration, got %s", ip.Type)
	}
}

func TestInflectionMagnitudeThreshold(t *testing.T) {
	// The same curvature break disappears when the threshold is raised past
	// its relative magnitude.
	s := piecewise(
		func(t float64) float64 { return t * t },
		func(u float64) float64 { return 100 - 2*u - 0.1*u*u },
	)
	cfg := DefaultConfig()
	cfg.InflectionThreshold = 0.5
	ips, err := InflectionPoints(mkPoints(s), []string{"outcome"}, cfg)
	if err != nil {
		t.Fatalf("InflectionPoints failed: %v", err)
	}
	if len(ips) != 0 {
		t.Errorf("expected no inflections above threshold, got %+v", ips)
	}
}

func TestInflectionOrdering(t *testing.T) {
	s := piecewise(
		func(t float64) float64 { return t * t },
		func(u float64) float64 { return 100 - 2*u - 0.1*u*u },
	)
	pts := make([]trajectory.Point, len(s))
	for i, v := range s {
		pts[i] = trajectory.Point{Step: i, State: map[string]float64{
			"alpha": v,
			"beta":  v,
		}}
	}
	// Metrics passed in reverse name order still come back sorted.
	ips, err := InflectionPoints(pts, []string{"beta", "alpha"}, DefaultConfig())
	if err != nil {
		t.Fatalf("InflectionPoints failed: %v", err)
	}
	if len(ips) != 2 {
		t.Fatalf("expected 2 inflections, got %d", len(ips))
	}
	if ips[0].Metric != "alpha" || ips[1].Metric != "beta" {
		t.Errorf("expected name-sorted output, got %s then %s", ips[0].Metric, ips[1].Metric)
	}
	if ips[0].Step != ips[1].Step {
		t.Errorf("same series must inflect at the same step")
	}
}

func TestInflectionFlatSeries(t *testing.T) {
	flat := make([]float64, 15)
	ips, err := InflectionPoints(mkPoints(flat), []string{"outcome"}, DefaultConfig())
	if err != nil {
		t.Fatalf("InflectionPoints failed: %v", err)
	}
	if len(ips) != 0 {
		t.Errorf("flat series must yield no inflections, got %+v", ips)
	}
}

func TestInflectionTooShort(t *testing.T) {
	_, err := InflectionPoints(mkPoints([]float64{1, 2}), []string{"outcome"}, DefaultConfig())
	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}
