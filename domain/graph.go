// Package domain defines the static cross-domain interaction model the
// projection engine runs against: a directed weighted graph of domains,
// per-domain propagation delays, and the counterfactual descriptor that
// triggers a projection. The graph is a read-only snapshot; the engine
// never mutates it.
package domain

// Domain is one sphere of effect (economic, political, social, ...).
type Domain struct {
	// Name identifies the domain and is referenced by edges and triggers.
	Name string `json:"name" yaml:"name"`

	// Delay is the propagation lag, in granularity steps, before an effect
	// entering this domain becomes visible in the state variables.
	Delay int `json:"delay" yaml:"delay"`

	// Volatility scales the aleatory noise attributed to this domain. It
	// feeds each metric's drift deviation through the domain's impact
	// weights; zero everywhere leaves the base drift unscaled.
	Volatility float64 `json:"volatility" yaml:"volatility"`

	// Impact maps metric names to the weight a unit-magnitude shock in this
	// domain contributes to each state variable.
	Impact map[string]float64 `json:"impact" yaml:"impact"`
}

// Edge is a directed interaction between two domains. Weight is the
// cross-domain transmission strength in [0,1]. Sign is +1 when an increase
// in the source drives the target the same direction, -1 when it opposes.
type Edge struct {
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to" yaml:"to"`
	Weight float64 `json:"weight" yaml:"weight"`
	Sign   float64 `json:"sign" yaml:"sign"`
}

// Adj is one outgoing hop in index form.
type Adj struct {
	To     int
	Weight float64
	Sign   float64
}

// Graph is the validated interaction graph with index-based adjacency.
// Domain order is the order of declaration and is stable across calls.
type Graph struct {
	Domains []Domain
	Edges   []Edge

	index map[string]int
	out   [][]Adj
}

// NewGraph validates the domain set and edges and builds the adjacency
// index. It fails with a *ConfigError on an empty domain set, duplicate
// names, dangling edge endpoints, or out-of-range weights.
func NewGraph(domains []Domain, edges []Edge) (*Graph, error) {
	if len(domains) == 0 {
		return nil, NewConfigError("domains", "at least one domain required", nil)
	}

	index := make(map[string]int, len(domains))
	for i, d := range domains {
		if d.Name == "" {
			return nil, NewConfigError("domains", "domain name must be non-empty", i)
		}
		if _, dup := index[d.Name]; dup {
			return nil, NewConfigError("domains", "duplicate domain name", d.Name)
		}
		if d.Delay < 0 {
			return nil, NewConfigError("domains."+d.Name+".delay", "delay must be >= 0", d.Delay)
		}
		index[d.Name] = i
	}

	out := make([][]Adj, len(domains))
	for i, e := range edges {
		src, ok := index[e.From]
		if !ok {
			return nil, NewConfigError("edges", "edge source not a declared domain", e.From)
		}
		dst, ok := index[e.To]
		if !ok {
			return nil, NewConfigError("edges", "edge target not a declared domain", e.To)
		}
		if e.Weight < 0 || e.Weight > 1 {
			return nil, NewConfigError("edges", "weight must be in [0,1]", e.Weight)
		}
		sign := e.Sign
		if sign == 0 {
			sign = 1
			edges[i].Sign = 1
		}
		if sign != 1 && sign != -1 {
			return nil, NewConfigError("edges", "sign must be +1 or -1", e.Sign)
		}
		out[src] = append(out[src], Adj{To: dst, Weight: e.Weight, Sign: sign})
	}

	return &Graph{Domains: domains, Edges: edges, index: index, out: out}, nil
}

// Index returns the position of a named domain, or false when unknown.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Out returns the outgoing hops from domain i. The slice is shared; callers
// must not modify it.
func (g *Graph) Out(i int) []Adj { return g.out[i] }

// Size returns the number of domains.
func (g *Graph) Size() int { return len(g.Domains) }

// MaxDelay returns the largest per-domain delay, used to bound injection
// scheduling.
func (g *Graph) MaxDelay() int {
	max := 0
	for _, d := range g.Domains {
		if d.Delay > max {
			max = d.Delay
		}
	}
	return max
}

// Counterfactual describes the triggering event a projection starts from.
type Counterfactual struct {
	ID        string  `json:"id" yaml:"id"`
	Label     string  `json:"label" yaml:"label"`
	Origin    string  `json:"origin" yaml:"origin"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	Step      int     `json:"step" yaml:"step"`
}

// Validate checks the counterfactual against the graph it will run on.
func (c Counterfactual) Validate(g *Graph) error {
	if c.Origin == "" {
		return NewConfigError("counterfactual.origin", "origin domain required", nil)
	}
	if _, ok := g.Index(c.Origin); !ok {
		return NewConfigError("counterfactual.origin", "origin domain not in graph", c.Origin)
	}
	if c.Step < 0 {
		return NewConfigError("counterfactual.step", "trigger step must be >= 0", c.Step)
	}
	return nil
}
