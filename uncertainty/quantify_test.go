package uncertainty

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// rampEval scales a linear ramp by the first parameter. Extra parameters are
// ignored, which makes them useful as sensitivity controls.
func rampEval(steps, metrics int) Evaluator {
	return func(params []float64) [][]float64 {
		path := make([][]float64, steps)
		for t := range path {
			row := make([]float64, metrics)
			for m := range row {
				row[m] = 1.0 + params[0]*float64(t)*0.1
			}
			path[t] = row
		}
		return path
	}
}

func TestQuantifyInsufficientSamples(t *testing.T) {
	opts := DefaultOptions(1)
	opts.Samples = MinSamples - 1
	_, err := Quantify(context.Background(), rampEval(5, 1), []string{"outcome"}, nil, opts)
	if err == nil {
		t.Fatal("expected error below the sample floor")
	}
	var ise *InsufficientSampleError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientSampleError, got %v", err)
	}
	if ise.Got != MinSamples-1 || ise.Min != MinSamples {
		t.Errorf("unexpected error fields: %+v", ise)
	}
}

func TestQuantifyBandOrdering(t *testing.T) {
	params := []Param{{Name: "slope", Dist: Normal(1, 0.2), Epistemic: true}}
	opts := DefaultOptions(17)
	opts.Samples = 500
	res, err := Quantify(context.Background(), rampEval(12, 2), []string{"outcome", "stability"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	for name, bands := range res.Bands {
		if len(bands) != 12 {
			t.Fatalf("metric %s: expected 12 bands, got %d", name, len(bands))
		}
		for i, b := range bands {
			if b.Lower > b.Point || b.Point > b.Upper {
				t.Errorf("metric %s step %d: band out of order: %+v", name, i, b)
			}
		}
	}
}

func TestQuantifyWideningWithFixedParams(t *testing.T) {
	// With every parameter pinned, interval width comes from drift alone and
	// must grow with elapsed steps.
	params := []Param{{Name: "slope", Dist: Fixed(1)}}
	opts := DefaultOptions(3)
	opts.Samples = 400
	res, err := Quantify(context.Background(), rampEval(10, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	bands := res.Bands["outcome"]
	for t2 := 1; t2 < len(bands); t2++ {
		if bands[t2].Width() <= bands[t2-1].Width() {
			t.Errorf("width not widening at step %d: %f vs %f", t2, bands[t2].Width(), bands[t2-1].Width())
		}
	}
}

// shockEval applies the first parameter to a deviation that builds for two
// steps and then decays, the shape cascade-driven baselines take.
func shockEval(steps int) Evaluator {
	return func(params []float64) [][]float64 {
		path := make([][]float64, steps)
		shape := 0.0
		for t := range path {
			switch {
			case t == 1:
				shape = 0.5
			case t == 2:
				shape = 1.0
			case t > 2:
				shape *= 0.8
			}
			path[t] = []float64{1.0 + params[0]*shape}
		}
		return path
	}
}

func TestQuantifyWideningWithShockDecay(t *testing.T) {
	// The parameter-driven spread peaks at step 2 and then decays with the
	// shock, yet reported widths must never narrow over the horizon.
	params := []Param{{Name: "magnitude", Dist: Normal(1, 0.5), Epistemic: true}}
	opts := DefaultOptions(42)
	opts.Samples = 500
	res, err := Quantify(context.Background(), shockEval(12), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	bands := res.Bands["outcome"]
	for t2 := 1; t2 < len(bands); t2++ {
		if bands[t2].Width() < bands[t2-1].Width() {
			t.Errorf("width narrowed at step %d: %f after %f", t2, bands[t2].Width(), bands[t2-1].Width())
		}
	}
	if last, early := bands[len(bands)-1].Width(), bands[1].Width(); last <= early {
		t.Errorf("final width %f not above early width %f", last, early)
	}
}

func TestQuantifyMetricDrift(t *testing.T) {
	params := []Param{{Name: "slope", Dist: Fixed(1)}}
	opts := DefaultOptions(7)
	opts.Samples = 400
	opts.MetricDrift = []float64{0.04, 0.01}
	res, err := Quantify(context.Background(), rampEval(10, 2), []string{"outcome", "stability"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	wa := res.Bands["outcome"][9].Width()
	wb := res.Bands["stability"][9].Width()
	if wa < 2*wb {
		t.Errorf("per-metric drift not applied: outcome width %f, stability width %f", wa, wb)
	}
}

func TestQuantifyShardIndependence(t *testing.T) {
	params := []Param{
		{Name: "slope", Dist: Normal(1, 0.3), Epistemic: true},
		{Name: "offset", Dist: Beta(2, 2)},
	}
	opts := DefaultOptions(99)
	opts.Samples = 256

	run := func(shards int) *Result {
		o := opts
		o.Shards = shards
		res, err := Quantify(context.Background(), rampEval(8, 1), []string{"outcome"}, params, o)
		if err != nil {
			t.Fatalf("Quantify shards=%d failed: %v", shards, err)
		}
		return res
	}

	one := run(1)
	four := run(4)
	if !reflect.DeepEqual(one, four) {
		t.Error("results differ between 1 and 4 shards")
	}
}

func TestQuantifyDeterminism(t *testing.T) {
	params := []Param{{Name: "slope", Dist: Normal(1, 0.3), Epistemic: true}}
	opts := DefaultOptions(123)
	opts.Samples = 200

	a, err := Quantify(context.Background(), rampEval(6, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	b, err := Quantify(context.Background(), rampEval(6, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different results")
	}
}

func TestQuantifySensitivityRanking(t *testing.T) {
	params := []Param{
		{Name: "slope", Dist: Normal(1, 0.5), Epistemic: true},
		{Name: "unused", Dist: Normal(1, 0.5), Epistemic: true},
	}
	opts := DefaultOptions(5)
	opts.Samples = 1000
	opts.DriftStd = 0.001
	res, err := Quantify(context.Background(), rampEval(10, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	if len(res.Sensitivity) != 2 {
		t.Fatalf("expected 2 influence entries, got %d", len(res.Sensitivity))
	}
	if res.Sensitivity[0].Name != "slope" {
		t.Errorf("expected slope ranked first, got %s", res.Sensitivity[0].Name)
	}
	if res.Sensitivity[0].Correlation < 0.9 {
		t.Errorf("driving parameter correlation too weak: %f", res.Sensitivity[0].Correlation)
	}
	if c := res.Sensitivity[1].Correlation; c < -0.2 || c > 0.2 {
		t.Errorf("inert parameter correlation too strong: %f", c)
	}
}

func TestQuantifyDecomposition(t *testing.T) {
	params := []Param{{Name: "slope", Dist: Normal(1, 0.5), Epistemic: true}}
	opts := DefaultOptions(11)
	opts.Samples = 800
	opts.DriftStd = 0.01
	res, err := Quantify(context.Background(), rampEval(10, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	d := res.Decomposition
	if d.Total < 0 || d.Epistemic < 0 || d.Aleatory < 0 {
		t.Errorf("negative variance share: %+v", d)
	}
	if diff := d.Total - d.Epistemic - d.Aleatory; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("shares do not sum to total: %+v", d)
	}
	// The wide epistemic slope dominates the tiny drift.
	if d.Epistemic <= d.Aleatory {
		t.Errorf("expected epistemic-dominated variance: %+v", d)
	}
}

func TestQuantifyDecompositionAllAleatory(t *testing.T) {
	params := []Param{{Name: "slope", Dist: Fixed(1)}}
	opts := DefaultOptions(11)
	opts.Samples = 200
	res, err := Quantify(context.Background(), rampEval(10, 1), []string{"outcome"}, params, opts)
	if err != nil {
		t.Fatalf("Quantify failed: %v", err)
	}
	if res.Decomposition.Epistemic != 0 {
		t.Errorf("fixed parameters must yield zero epistemic variance, got %f", res.Decomposition.Epistemic)
	}
	if res.Decomposition.Aleatory != res.Decomposition.Total {
		t.Errorf("expected all variance aleatory: %+v", res.Decomposition)
	}
}

func TestQuantifyCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	params := []Param{{Name: "slope", Dist: Normal(1, 0.2)}}
	opts := DefaultOptions(1)
	opts.Samples = 1000
	_, err := Quantify(ctx, rampEval(10, 1), []string{"outcome"}, params, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
