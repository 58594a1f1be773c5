package trajectory

import (
	"math"

	"github.com/stratsim-xyz/go-stratsim/cascade"
	"github.com/stratsim-xyz/go-stratsim/domain"
)

// injection is one pre-compiled wave effect: amount lands on a metric at a
// step, attenuated by transmission depth when edge-weight scaling applies.
type injection struct {
	step   int
	metric int
	amount float64
	depth  int
}

// Scales are the perturbable knobs the uncertainty engine samples:
// trigger magnitude, edge transmission strength, and decay rate. All
// default to 1 (the declared model).
type Scales struct {
	Magnitude    float64
	Transmission float64
	Decay        float64
}

// BaseScales returns the unperturbed scales.
func BaseScales() Scales { return Scales{Magnitude: 1, Transmission: 1, Decay: 1} }

// Modifier alters integration from a step forward, used for decision-point
// pathways and intervention testing. ImpactScale multiplies injections and
// DecayScale raises the decay exponent while the modifier is active.
// ToStep bounds the active span; zero means the rest of the horizon.
type Modifier struct {
	FromStep    int
	ToStep      int
	ImpactScale float64
	DecayScale  float64
}

func (m *Modifier) active(t int) bool {
	return t >= m.FromStep && (m.ToStep == 0 || t < m.ToStep)
}

// Integrator turns a cascade into per-step state paths. It is built once
// per projection and evaluated many times with different scales, so the
// hot path is pure dense-array arithmetic with no map lookups.
type Integrator struct {
	metrics    []string
	initial    []float64
	stepDecay  []float64 // per-metric per-step decay factor
	injections []injection
	horizon    int
}

// NewIntegrator compiles the wave set against the domain impact profiles.
// Each wave's effect lands at triggerStep + wave.Delay; effects beyond the
// horizon are dropped. Wave depth (hops from the trigger) is derived from
// the parent chain for transmission scaling.
func NewIntegrator(cfg *domain.Config, g *domain.Graph, waves []cascade.Wave, triggerStep, horizon int) *Integrator {
	metricIdx := make(map[string]int, len(cfg.Metrics))
	for i, m := range cfg.Metrics {
		metricIdx[m] = i
	}

	in := &Integrator{
		metrics:   cfg.Metrics,
		initial:   make([]float64, len(cfg.Metrics)),
		stepDecay: make([]float64, len(cfg.Metrics)),
		horizon:   horizon,
	}
	for i, m := range cfg.Metrics {
		in.initial[i] = cfg.InitialState[m]
		in.stepDecay[i] = math.Exp(-math.Ln2 / cfg.HalfLives[m])
	}

	depth := make([]int, len(waves))
	for i, w := range waves {
		if w.Parent >= 0 {
			depth[i] = depth[w.Parent] + 1
		}
	}

	for i, w := range waves {
		step := triggerStep + w.Delay
		if step >= horizon {
			continue
		}
		di, ok := g.Index(w.Domain)
		if !ok {
			continue
		}
		for m, weight := range g.Domains[di].Impact {
			mi, ok := metricIdx[m]
			if !ok || weight == 0 {
				continue
			}
			in.injections = append(in.injections, injection{
				step:   step,
				metric: mi,
				amount: w.Magnitude * weight,
				depth:  depth[i],
			})
		}
	}

	return in
}

// Metrics returns the tracked metric names in order.
func (in *Integrator) Metrics() []string { return in.metrics }

// Horizon returns the compiled horizon in steps.
func (in *Integrator) Horizon() int { return in.horizon }

// Path integrates the baseline under the given scales and optional
// modifier, returning values indexed [step][metric]. Injected deviations
// decay exponentially between injections per the metric's half-life.
func (in *Integrator) Path(sc Scales, mod *Modifier) [][]float64 {
	n := len(in.metrics)
	out := make([][]float64, in.horizon)

	// Group injections by step once per call; injection counts are small.
	inj := make([]float64, in.horizon*n)
	for _, j := range in.injections {
		amount := j.amount * sc.Magnitude
		if j.depth > 0 && sc.Transmission != 1 {
			amount *= math.Pow(sc.Transmission, float64(j.depth))
		}
		if mod != nil && mod.active(j.step) {
			amount *= mod.ImpactScale
		}
		inj[j.step*n+j.metric] += amount
	}

	dev := make([]float64, n)
	for t := 0; t < in.horizon; t++ {
		row := make([]float64, n)
		for m := 0; m < n; m++ {
			decay := in.stepDecay[m]
			exp := sc.Decay
			if mod != nil && mod.active(t) {
				exp *= mod.DecayScale
			}
			if exp != 1 {
				decay = math.Pow(decay, exp)
			}
			dev[m] = dev[m]*decay + inj[t*n+m]
			row[m] = in.initial[m] + dev[m]
		}
		out[t] = row
	}
	return out
}

// PathPoints converts a dense path into Points with labeled state maps.
func (in *Integrator) PathPoints(path [][]float64) []Point {
	pts := make([]Point, len(path))
	for t, row := range path {
		state := make(map[string]float64, len(in.metrics))
		for m, name := range in.metrics {
			state[name] = row[m]
		}
		pts[t] = Point{Step: t, State: state}
	}
	return pts
}
