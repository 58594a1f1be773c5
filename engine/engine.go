// Package engine composes the cascade simulator, the uncertainty engine,
// and the detectors into full trajectory projections. It is the entry
// point external collaborators call; every projection is a pure function
// of its inputs and seed, with no I/O performed here.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stratsim-xyz/go-stratsim/cascade"
	"github.com/stratsim-xyz/go-stratsim/detect"
	"github.com/stratsim-xyz/go-stratsim/domain"
	"github.com/stratsim-xyz/go-stratsim/trajectory"
	"github.com/stratsim-xyz/go-stratsim/uncertainty"
)

// Parameter names the engine binds to integration scales. Config-declared
// parameters with other names are still sampled and ranked but do not move
// the baseline.
const (
	ParamTriggerMagnitude = "trigger_magnitude"
	ParamTransmission     = "transmission"
	ParamDecayRate        = "decay_rate"
)

// Engine projects trajectories against one validated model configuration.
// The WithX setters return a derived engine and never touch the receiver,
// so any Engine in hand is read-only and safe for concurrent use; every
// call carries its own seed and context.
type Engine struct {
	cfg    *domain.Config
	graph  *domain.Graph
	params []uncertainty.Param

	cascadeOpts cascade.Options
	detectCfg   detect.Config
	samples     int
	confidence  float64
	driftStd    float64
	shards      int
}

// New validates cfg and builds an engine with default settings. Declared
// parameters are compiled; the three scale-bound parameters get default
// distributions when the config does not declare them.
func New(cfg *domain.Config) (*Engine, error) {
	graph, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	params, err := uncertainty.FromSpecs(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	params = withDefaultParams(params)

	e := &Engine{
		cfg:         cfg,
		graph:       graph,
		params:      params,
		cascadeOpts: cascade.DefaultOptions(),
		detectCfg:   detect.DefaultConfig(),
		samples:     10000,
		confidence:  0.95,
		driftStd:    0.02,
	}
	e.detectCfg.MeanHalfLife = meanHalfLife(cfg)
	return e, nil
}

// withDefaultParams appends default distributions for the scale-bound
// parameters a config left undeclared. All three are epistemic: they are
// estimation uncertainty, reducible with better calibration data.
func withDefaultParams(params []uncertainty.Param) []uncertainty.Param {
	have := make(map[string]bool, len(params))
	for _, p := range params {
		have[p.Name] = true
	}
	defaults := []uncertainty.Param{
		{Name: ParamTriggerMagnitude, Dist: uncertainty.Normal(1, 0.15), Epistemic: true},
		{Name: ParamTransmission, Dist: uncertainty.Normal(1, 0.08), Epistemic: true},
		{Name: ParamDecayRate, Dist: uncertainty.Normal(1, 0.10), Epistemic: true},
	}
	for _, d := range defaults {
		if !have[d.Name] {
			params = append(params, d)
		}
	}
	return params
}

func meanHalfLife(cfg *domain.Config) float64 {
	if len(cfg.Metrics) == 0 {
		return 6
	}
	sum := 0.0
	for _, m := range cfg.Metrics {
		sum += cfg.HalfLives[m]
	}
	return sum / float64(len(cfg.Metrics))
}

// WithCascadeOptions overrides the propagation settings.
func (e *Engine) WithCascadeOptions(opts cascade.Options) *Engine {
	e2 := *e
	e2.cascadeOpts = opts
	return &e2
}

// WithDetectConfig overrides the detection thresholds. MeanHalfLife is
// derived from the model when left zero.
func (e *Engine) WithDetectConfig(cfg detect.Config) *Engine {
	if cfg.MeanHalfLife == 0 {
		cfg.MeanHalfLife = meanHalfLife(e.cfg)
	}
	e2 := *e
	e2.detectCfg = cfg
	return &e2
}

// WithSamples sets the Monte Carlo draw count.
func (e *Engine) WithSamples(n int) *Engine {
	e2 := *e
	e2.samples = n
	return &e2
}

// WithConfidence sets the central interval mass.
func (e *Engine) WithConfidence(c float64) *Engine {
	e2 := *e
	e2.confidence = c
	return &e2
}

// WithDriftStd sets the base per-step aleatory drift deviation.
func (e *Engine) WithDriftStd(std float64) *Engine {
	e2 := *e
	e2.driftStd = std
	return &e2
}

// WithShards fixes the Monte Carlo worker count. The aggregate output does
// not depend on this; it only partitions work.
func (e *Engine) WithShards(n int) *Engine {
	e2 := *e
	e2.shards = n
	return &e2
}

// metricDrift derives a per-metric drift deviation from domain
// volatilities: the base deviation scaled by the impact-weighted mean
// volatility of the domains feeding each metric. Models that declare no
// volatility fall back to the base deviation.
func (e *Engine) metricDrift() []float64 {
	out := make([]float64, len(e.cfg.Metrics))
	for i, m := range e.cfg.Metrics {
		var wsum, vsum float64
		for _, d := range e.cfg.Domains {
			w := d.Impact[m]
			wsum += w
			vsum += w * d.Volatility
		}
		scale := 1.0
		if wsum > 0 && vsum > 0 {
			scale = vsum / wsum
		}
		out[i] = e.driftStd * scale
	}
	return out
}

// Project produces a full trajectory for the counterfactual: cascade
// propagation, baseline integration, confidence bounds, branch generation,
// and decision/inflection annotation. Given identical inputs and seed the
// result is identical. Cancellation is cooperative, checked between
// pipeline stages and between sample batches, and never exposes a partial
// trajectory.
func (e *Engine) Project(ctx context.Context, cf domain.Counterfactual, horizon int, gran trajectory.Granularity, seed uint64) (*trajectory.Trajectory, error) {
	if horizon < 1 {
		return nil, &trajectory.InvalidHorizonError{Horizon: horizon, Granularity: gran}
	}
	if !gran.Valid() {
		return nil, domain.NewConfigError("granularity", "must be monthly, quarterly, or yearly", string(gran))
	}
	if err := cf.Validate(e.graph); err != nil {
		return nil, err
	}

	cas, err := cascade.Simulate(cascade.Trigger{Origin: cf.Origin, Magnitude: cf.Magnitude}, e.graph, e.cascadeOpts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	integ := trajectory.NewIntegrator(e.cfg, e.graph, cas.Waves, cf.Step, horizon)
	return e.assemble(ctx, integ, cas, cf, horizon, gran, seed, nil, trajectory.Provenance{
		CounterfactualID: cf.ID,
		Seed:             seed,
	})
}

// assemble runs the shared back half of a projection: baseline under an
// optional modifier, detection over the provisional baseline, confidence
// bounds, then branches.
func (e *Engine) assemble(ctx context.Context, integ *trajectory.Integrator, cas *cascade.Result, cf domain.Counterfactual, horizon int, gran trajectory.Granularity, seed uint64, mod *trajectory.Modifier, prov trajectory.Provenance) (*trajectory.Trajectory, error) {
	basePath := integ.Path(trajectory.BaseScales(), mod)
	baseline := integ.PathPoints(basePath)

	dcfg := e.detectCfg
	dcfg.SaturationStep = cf.Step + cas.HorizonSteps() + 1

	var decisions []trajectory.DecisionPoint
	var inflections []trajectory.InflectionPoint
	if horizon >= detect.MinPoints {
		var err error
		decisions, err = detect.DecisionPoints(baseline, e.cfg.Metrics[0], dcfg)
		if err != nil {
			return nil, err
		}
		inflections, err = detect.InflectionPoints(baseline, e.cfg.Metrics, dcfg)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quant, err := uncertainty.Quantify(ctx, e.evaluator(integ, mod), e.cfg.Metrics, e.params, uncertainty.Options{
		Samples:     e.samples,
		Confidence:  e.confidence,
		Seed:        seed,
		Shards:      e.shards,
		DriftStd:    e.driftStd,
		MetricDrift: e.metricDrift(),
	})
	if err != nil {
		return nil, err
	}
	applyWidths(baseline, quant.Bands, e.cfg.Metrics)

	branches, err := e.buildBranches(ctx, integ, mod, baseline, decisions)
	if err != nil {
		return nil, err
	}

	prov.CreatedAt = time.Now().UTC()
	return &trajectory.Trajectory{
		Version:        trajectory.SchemaVersion,
		ID:             projectionID(cf.ID, seed, horizon, gran, prov.Intervention),
		Horizon:        horizon,
		Granularity:    gran,
		Metrics:        e.cfg.Metrics,
		Counterfactual: cf,
		Baseline:       baseline,
		Bands:          quant.Bands,
		Waves:          cas.Waves,
		Loops:          cas.Loops,
		Decisions:      decisions,
		Inflections:    inflections,
		Branches:       branches,
		Sensitivity:    quant.Sensitivity,
		Decomposition:  quant.Decomposition,
		Provenance:     prov,
	}, nil
}

// evaluator closes the integrator over the engine's parameter order for
// the uncertainty engine. Unbound parameters are accepted and ignored.
func (e *Engine) evaluator(integ *trajectory.Integrator, mod *trajectory.Modifier) uncertainty.Evaluator {
	idx := make(map[string]int, len(e.params))
	for i, p := range e.params {
		idx[p.Name] = i
	}
	return func(vec []float64) [][]float64 {
		sc := trajectory.BaseScales()
		if i, ok := idx[ParamTriggerMagnitude]; ok {
			sc.Magnitude = vec[i]
		}
		if i, ok := idx[ParamTransmission]; ok {
			sc.Transmission = vec[i]
		}
		if i, ok := idx[ParamDecayRate]; ok {
			sc.Decay = clampPositive(vec[i])
		}
		return integ.Path(sc, mod)
	}
}

// Decay scale is an exponent; a non-positive draw from an unbounded normal
// would invert the dynamics.
func clampPositive(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	return v
}

// buildBranches evaluates every decision point's pathways, one branch per
// pathway, in parallel. Branch prefixes equal the baseline by construction
// (same integration state up to the decision step). Measured divergence
// replaces the detector's estimate.
func (e *Engine) buildBranches(ctx context.Context, integ *trajectory.Integrator, mod *trajectory.Modifier, baseline []trajectory.Point, decisions []trajectory.DecisionPoint) ([]trajectory.Branch, error) {
	type slot struct {
		di, pi int
		branch trajectory.Branch
		diverg float64
	}
	var slots []*slot
	for di := range decisions {
		for pi := range decisions[di].Pathways {
			slots = append(slots, &slot{di: di, pi: pi})
		}
	}
	if len(slots) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dp := decisions[s.di]
			pw := dp.Pathways[s.pi]
			pmod := &trajectory.Modifier{
				FromStep:    dp.Step,
				ImpactScale: pw.ImpactScale,
				DecayScale:  pw.DecayScale,
			}
			if mod != nil {
				// Compose with an active intervention from the later step.
				pmod.ImpactScale *= mod.ImpactScale
				pmod.DecayScale *= mod.DecayScale
			}
			path := integ.Path(trajectory.BaseScales(), pmod)
			s.branch = trajectory.Branch{
				DecisionID: dp.ID,
				Pathway:    pw.Name,
				Points:     integ.PathPoints(path),
			}
			s.diverg = divergence(baseline, s.branch.Points, dp.Step)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	branches := make([]trajectory.Branch, len(slots))
	for i, s := range slots {
		branches[i] = s.branch
		decisions[s.di].Pathways[s.pi].Divergence = s.diverg
	}
	return branches, nil
}

// divergence is the root-mean-square per-metric distance between two point
// series over the steps at or after from.
func divergence(a, b []trajectory.Point, from int) float64 {
	if from >= len(a) {
		return 0
	}
	ss := 0.0
	count := 0
	for t := from; t < len(a) && t < len(b); t++ {
		d := trajectory.StateDistance(a[t].State, b[t].State)
		ss += d * d
		count += len(a[t].State)
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(ss / float64(count))
}

func applyWidths(baseline []trajectory.Point, bands map[string][]uncertainty.Band, metrics []string) {
	for t := range baseline {
		sum := 0.0
		n := 0
		for _, m := range metrics {
			if mb := bands[m]; t < len(mb) {
				sum += mb[t].Width()
				n++
			}
		}
		if n > 0 {
			baseline[t].ConfidenceWidth = sum / float64(n)
		}
	}
}

// projectionID derives a stable UUID from the projection inputs so that
// identical calls produce identical aggregates.
func projectionID(cfID string, seed uint64, horizon int, gran trajectory.Granularity, intervention string) string {
	name := fmt.Sprintf("%s|%d|%d|%s|%s", cfID, seed, horizon, gran, intervention)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
