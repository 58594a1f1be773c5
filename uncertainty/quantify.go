package uncertainty

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// MinSamples is the smallest sample count that yields usable percentile
// estimates.
const MinSamples = 30

// InsufficientSampleError reports a sample count below MinSamples.
type InsufficientSampleError struct {
	Got int
	Min int
}

func (e *InsufficientSampleError) Error() string {
	return fmt.Sprintf("uncertainty: %d samples requested, minimum is %d", e.Got, e.Min)
}

// Evaluator is a deterministic mapping from a parameter vector (in declared
// parameter order) to a state path, indexed [step][metric]. The trajectory
// engine supplies this as a closure over the cascade-derived baseline.
type Evaluator func(params []float64) [][]float64

// Band is the confidence interval for one metric at one step. The invariant
// Lower <= Point <= Upper holds for every reported band.
type Band struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns the interval width.
func (b Band) Width() float64 { return b.Upper - b.Lower }

// Influence is one entry of the sensitivity ranking: the Spearman rank
// correlation between a parameter's draws and the final-step value of the
// primary metric.
type Influence struct {
	Name        string  `json:"name"`
	Correlation float64 `json:"correlation"`
}

// Decomposition splits final-step variance of the primary metric into a
// reducible (epistemic) and an irreducible (aleatory) share.
type Decomposition struct {
	Total     float64 `json:"total"`
	Epistemic float64 `json:"epistemic"`
	Aleatory  float64 `json:"aleatory"`
}

// Options configures a Quantify run.
type Options struct {
	// Samples is the Monte Carlo draw count. Must be >= MinSamples.
	Samples int

	// Confidence is the central interval mass, e.g. 0.95.
	Confidence float64

	// Seed derives every random stream. Each sample gets its own PCG
	// sub-stream keyed by (Seed, sample index), so the aggregate is
	// identical for any shard count.
	Seed uint64

	// Shards is the parallel worker count. Zero means GOMAXPROCS, capped
	// at 8.
	Shards int

	// DriftStd is the per-step standard deviation of the aleatory drift
	// applied to every metric. Drift variance scales with elapsed steps.
	DriftStd float64

	// MetricDrift optionally overrides DriftStd per metric, indexed in
	// metric order. Ignored unless its length matches the metric count.
	MetricDrift []float64
}

// DefaultOptions returns settings for a standard 95% quantification.
func DefaultOptions(seed uint64) Options {
	return Options{
		Samples:    10000,
		Confidence: 0.95,
		Seed:       seed,
		DriftStd:   0.02,
	}
}

// Result is the full quantification output.
type Result struct {
	// Bands is indexed by metric name, then step.
	Bands map[string][]Band `json:"bands"`

	Confidence    float64       `json:"confidence"`
	Samples       int           `json:"samples"`
	Sensitivity   []Influence   `json:"sensitivity"`
	Decomposition Decomposition `json:"decomposition"`
}

// Quantify runs the Monte Carlo procedure: Samples independent parameter
// vectors drawn from each parameter's distribution, the evaluator applied
// to each, and an aleatory drift layered per metric. Each sample carries a
// non-contracting deviation envelope around the point-estimate path, so
// interval widths never narrow as the horizon advances. It returns the
// empirical central interval per metric per step, the sensitivity ranking,
// and the epistemic/aleatory decomposition.
//
// Cancellation is cooperative and checked between sample batches; on
// cancellation no partial result is returned.
func Quantify(ctx context.Context, eval Evaluator, metrics []string, params []Param, opts Options) (*Result, error) {
	if opts.Samples < MinSamples {
		return nil, &InsufficientSampleError{Got: opts.Samples, Min: MinSamples}
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		opts.Confidence = 0.95
	}
	for _, p := range params {
		if err := p.Dist.Validate(); err != nil {
			return nil, err
		}
	}

	// One evaluation at point estimates fixes the path shape.
	point := make([]float64, len(params))
	for i, p := range params {
		point[i] = p.Dist.PointEstimate()
	}
	base := eval(point)
	steps := len(base)
	if steps == 0 {
		return nil, fmt.Errorf("uncertainty: evaluator produced an empty path")
	}

	full, draws, err := runSamples(ctx, eval, params, opts, base, len(metrics), false)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Bands:      make(map[string][]Band, len(metrics)),
		Confidence: opts.Confidence,
		Samples:    opts.Samples,
	}

	qLow := (1 - opts.Confidence) / 2
	scratch := make([]float64, opts.Samples)
	for m, name := range metrics {
		bands := make([]Band, steps)
		for t := 0; t < steps; t++ {
			copy(scratch, full[m][t])
			sort.Float64s(scratch)
			bands[t] = Band{
				Point: quantileSorted(scratch, 0.5),
				Lower: quantileSorted(scratch, qLow),
				Upper: quantileSorted(scratch, 1-qLow),
			}
		}
		res.Bands[name] = bands
	}

	res.Sensitivity = rankInfluence(params, draws, full[0][steps-1])

	// Secondary pass with epistemic parameters pinned to their point
	// estimates isolates the irreducible share.
	fixed, _, err := runSamples(ctx, eval, params, opts, base, len(metrics), true)
	if err != nil {
		return nil, err
	}
	totalVar := variance(full[0][steps-1])
	aleatoryVar := variance(fixed[0][steps-1])
	if aleatoryVar > totalVar {
		aleatoryVar = totalVar
	}
	res.Decomposition = Decomposition{
		Total:     totalVar,
		Epistemic: totalVar - aleatoryVar,
		Aleatory:  aleatoryVar,
	}

	return res, nil
}

// runSamples evaluates every sample, sharded across workers. Results land
// at fixed sample indices, so the merge is deterministic. When pinEpistemic
// is set, epistemic parameter draws are replaced by their point estimates
// (the draw is still consumed, keeping streams aligned with the full pass).
//
// Each sample reports its deviation from the point-estimate path through a
// running envelope: the signed deviation with the largest magnitude seen so
// far, drift included. A sample's distance from the point path never
// contracts, so interval widths are non-decreasing over the horizon even
// when the parameter-driven spread itself decays with the shock.
func runSamples(ctx context.Context, eval Evaluator, params []Param, opts Options, base [][]float64, nMetrics int, pinEpistemic bool) (vals [][][]float64, draws [][]float64, err error) {
	nSamples := opts.Samples
	steps := len(base)

	// vals[m][t][s]
	vals = make([][][]float64, nMetrics)
	for m := range vals {
		vals[m] = make([][]float64, steps)
		for t := range vals[m] {
			vals[m][t] = make([]float64, nSamples)
		}
	}
	draws = make([][]float64, len(params))
	for p := range draws {
		draws[p] = make([]float64, nSamples)
	}

	shards := opts.Shards
	if shards <= 0 {
		shards = runtime.GOMAXPROCS(0)
		if shards > 8 {
			shards = 8
		}
	}
	if shards > nSamples {
		shards = nSamples
	}

	g, gctx := errgroup.WithContext(ctx)
	per := (nSamples + shards - 1) / shards

	for w := 0; w < shards; w++ {
		lo := w * per
		hi := lo + per
		if hi > nSamples {
			hi = nSamples
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			vec := make([]float64, len(params))
			for s := lo; s < hi; s++ {
				if s%64 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				// Per-sample sub-stream: identical draws for any shard count.
				rng := rand.New(rand.NewPCG(opts.Seed, uint64(s)+1))
				for i, p := range params {
					v := p.Dist.Sample(rng)
					if pinEpistemic && p.Epistemic {
						v = p.Dist.PointEstimate()
					}
					vec[i] = v
					draws[i][s] = v
				}
				path := eval(vec)
				for m := 0; m < nMetrics; m++ {
					ds := opts.DriftStd
					if len(opts.MetricDrift) == nMetrics {
						ds = opts.MetricDrift[m]
					}
					// Aleatory drift: one standard normal per metric whose
					// effect scales with sqrt(elapsed steps), so variance
					// grows with horizon distance inside the draw itself.
					z := rng.NormFloat64()
					env := 0.0
					for t := 0; t < steps && t < len(path); t++ {
						raw := path[t][m] - base[t][m] + ds*math.Sqrt(float64(t+1))*z
						if math.Abs(raw) > math.Abs(env) {
							env = raw
						}
						vals[m][t][s] = base[t][m] + env
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vals, draws, nil
}

// quantileSorted interpolates the q-th quantile of a sorted slice.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}
