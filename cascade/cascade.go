// Package cascade propagates a triggering event across interacting domains
// in discrete waves. Each wave carries a signed impact magnitude into one
// domain; propagation stops when magnitudes fall below the saturation
// threshold or the wave limit is reached, which bounds the whole run to
// O(waves x domains^2).
package cascade

import (
	"math"
	"sort"

	"github.com/stratsim-xyz/go-stratsim/domain"
)

// Wave is one hop of propagation: the arrival of a signed magnitude in a
// domain. Delay is cumulative, in granularity steps after the trigger.
// Parent is the index of the originating wave, or -1 for the trigger itself.
type Wave struct {
	Index     int     `json:"index"`
	Domain    string  `json:"domain"`
	Magnitude float64 `json:"magnitude"`
	Delay     int     `json:"delay"`
	Parent    int     `json:"parent"`
}

// Options controls propagation.
type Options struct {
	// MaxWaves bounds the number of wave generations.
	MaxWaves int

	// SaturationThreshold is the minimum absolute magnitude that keeps a
	// domain active. Effects below it are dropped.
	SaturationThreshold float64

	// Decay is the per-generation attenuation base: a hop in generation k
	// is scaled by Decay^k.
	Decay float64
}

// DefaultOptions returns propagation settings suitable for most models.
func DefaultOptions() Options {
	return Options{
		MaxWaves:            8,
		SaturationThreshold: 0.01,
		Decay:               0.85,
	}
}

// Result holds the ordered wave sequence, the detected feedback loops, and
// the generation at which each domain saturated (-1 when it never activated).
type Result struct {
	Waves []Wave `json:"waves"`
	Loops []Loop `json:"loops"`

	// SaturationGen[i] is the generation after which domain i stopped
	// receiving above-threshold magnitude.
	SaturationGen []int `json:"-"`
}

// Trigger is the cascade entry point: a signed magnitude arriving in the
// origin domain.
type Trigger struct {
	Origin    string
	Magnitude float64
}

// Simulate runs breadth-first wave expansion of trigger over g. It fails
// with a *domain.ConfigError when the graph is empty or the origin domain
// is unknown; otherwise it always terminates within opts.MaxWaves
// generations.
func Simulate(trigger Trigger, g *domain.Graph, opts Options) (*Result, error) {
	if g == nil || g.Size() == 0 {
		return nil, domain.NewConfigError("graph", "at least one domain required", nil)
	}
	origin, ok := g.Index(trigger.Origin)
	if !ok {
		return nil, domain.NewConfigError("trigger.origin", "origin domain not in graph", trigger.Origin)
	}
	if opts.MaxWaves <= 0 {
		opts.MaxWaves = DefaultOptions().MaxWaves
	}
	if opts.Decay <= 0 || opts.Decay > 1 {
		opts.Decay = DefaultOptions().Decay
	}

	res := &Result{
		SaturationGen: make([]int, g.Size()),
	}
	for i := range res.SaturationGen {
		res.SaturationGen[i] = -1
	}

	// frontier entries are wave indices whose effects still propagate.
	root := Wave{
		Index:     0,
		Domain:    g.Domains[origin].Name,
		Magnitude: trigger.Magnitude,
		Delay:     g.Domains[origin].Delay,
		Parent:    -1,
	}
	res.Waves = append(res.Waves, root)
	res.SaturationGen[origin] = 0

	frontier := []int{0}
	domainOf := map[int]int{0: origin}

	for gen := 1; gen <= opts.MaxWaves && len(frontier) > 0; gen++ {
		decay := math.Pow(opts.Decay, float64(gen))

		// Accumulate incoming magnitude per target domain so saturation is
		// judged on the total injected this generation, not per edge.
		type incoming struct {
			magnitude float64
			parent    int // strongest contributing wave
			parentMag float64
		}
		inject := make(map[int]*incoming)
		order := make([]int, 0)

		for _, wi := range frontier {
			w := res.Waves[wi]
			src := domainOf[wi]
			for _, hop := range g.Out(src) {
				out := w.Magnitude * hop.Weight * hop.Sign * decay
				if out == 0 {
					continue
				}
				in, seen := inject[hop.To]
				if !seen {
					in = &incoming{}
					inject[hop.To] = in
					order = append(order, hop.To)
				}
				in.magnitude += out
				if math.Abs(out) > math.Abs(in.parentMag) {
					in.parent = wi
					in.parentMag = out
				}
			}
		}

		// Deterministic wave ordering regardless of map iteration.
		sort.Ints(order)

		next := make([]int, 0, len(order))
		for _, dst := range order {
			in := inject[dst]
			if math.Abs(in.magnitude) < opts.SaturationThreshold {
				continue // domain saturated for this generation
			}
			w := Wave{
				Index:     len(res.Waves),
				Domain:    g.Domains[dst].Name,
				Magnitude: in.magnitude,
				Delay:     res.Waves[in.parent].Delay + g.Domains[dst].Delay,
				Parent:    in.parent,
			}
			res.Waves = append(res.Waves, w)
			domainOf[w.Index] = dst
			res.SaturationGen[dst] = gen
			next = append(next, w.Index)
		}
		frontier = next
	}

	res.Loops = detectLoops(res.Waves, g)
	return res, nil
}

// HorizonSteps returns the last step, relative to the trigger, at which any
// wave lands. Zero when only the root wave exists.
func (r *Result) HorizonSteps() int {
	last := 0
	for _, w := range r.Waves {
		if w.Delay > last {
			last = w.Delay
		}
	}
	return last
}
