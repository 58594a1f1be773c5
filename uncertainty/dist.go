// Package uncertainty quantifies confidence bounds, parameter sensitivity,
// and the epistemic/aleatory split for a deterministic baseline function
// via seeded Monte Carlo sampling. All randomness derives from the caller's
// seed; for a fixed seed and sample count the aggregate output is identical
// regardless of how many shards evaluate in parallel.
package uncertainty

import (
	"math"
	"math/rand/v2"

	"github.com/stratsim-xyz/go-stratsim/domain"
)

// DistKind tags the closed set of supported distributions.
type DistKind int

const (
	// KindFixed is a degenerate point distribution. Fixed parameters
	// contribute zero epistemic variance.
	KindFixed DistKind = iota
	// KindNormal is a Gaussian, the default for unbounded continuous
	// parameters.
	KindNormal
	// KindBeta is a Beta distribution on [0,1], the default for bounded
	// parameters such as edge weights.
	KindBeta
)

func (k DistKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindNormal:
		return "normal"
	case KindBeta:
		return "beta"
	}
	return "unknown"
}

// Dist is one parameter distribution. Only the fields for its Kind are
// meaningful.
type Dist struct {
	Kind  DistKind
	Mean  float64 // normal
	Std   float64 // normal
	Alpha float64 // beta
	Beta  float64 // beta
	Value float64 // fixed
}

// Normal returns a Gaussian distribution.
func Normal(mean, std float64) Dist { return Dist{Kind: KindNormal, Mean: mean, Std: std} }

// Beta returns a Beta(alpha, beta) distribution on [0,1].
func Beta(alpha, beta float64) Dist { return Dist{Kind: KindBeta, Alpha: alpha, Beta: beta} }

// Fixed returns a degenerate distribution that always samples value.
func Fixed(value float64) Dist { return Dist{Kind: KindFixed, Value: value} }

// Validate rejects distributions with non-finite support.
func (d Dist) Validate() error {
	switch d.Kind {
	case KindFixed:
		if !finite(d.Value) {
			return domain.NewConfigError("dist.fixed", "value must be finite", d.Value)
		}
	case KindNormal:
		if !finite(d.Mean) || !finite(d.Std) || d.Std < 0 {
			return domain.NewConfigError("dist.normal", "mean and std must be finite, std >= 0", nil)
		}
	case KindBeta:
		if !finite(d.Alpha) || !finite(d.Beta) || d.Alpha <= 0 || d.Beta <= 0 {
			return domain.NewConfigError("dist.beta", "alpha and beta must be finite and > 0", nil)
		}
	default:
		return domain.NewConfigError("dist.kind", "unknown distribution kind", int(d.Kind))
	}
	return nil
}

// PointEstimate returns the distribution's central value, used when holding
// epistemic parameters fixed during variance decomposition.
func (d Dist) PointEstimate() float64 {
	switch d.Kind {
	case KindNormal:
		return d.Mean
	case KindBeta:
		return d.Alpha / (d.Alpha + d.Beta)
	default:
		return d.Value
	}
}

// Sample draws one value from the distribution using rng.
func (d Dist) Sample(rng *rand.Rand) float64 {
	switch d.Kind {
	case KindNormal:
		return d.Mean + d.Std*rng.NormFloat64()
	case KindBeta:
		x := sampleGamma(rng, d.Alpha)
		y := sampleGamma(rng, d.Beta)
		if x+y == 0 {
			return d.PointEstimate()
		}
		return x / (x + y)
	default:
		return d.Value
	}
}

// sampleGamma draws from Gamma(shape, 1) via Marsaglia-Tsang squeeze, with
// the standard boost for shape < 1.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Param is one perturbable input to the baseline function.
type Param struct {
	Name string
	Dist Dist
	// Epistemic marks parameter-estimation uncertainty, reducible with
	// better input data. Fixed distributions are treated as non-epistemic
	// regardless of this flag.
	Epistemic bool
}

// FromSpecs compiles declared parameter specs into Params. Every spec is
// validated; the first failure aborts compilation.
func FromSpecs(specs []domain.ParamSpec) ([]Param, error) {
	params := make([]Param, 0, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		var d Dist
		switch s.Kind {
		case "normal":
			d = Normal(s.Mean, s.Std)
		case "beta":
			d = Beta(s.Alpha, s.Beta)
		case "fixed":
			d = Fixed(s.Value)
		}
		params = append(params, Param{
			Name:      s.Name,
			Dist:      d,
			Epistemic: s.Epistemic && s.Kind != "fixed",
		})
	}
	return params, nil
}
