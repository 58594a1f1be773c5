package cascade

import (
	"math"

	"github.com/stratsim-xyz/go-stratsim/domain"
)

// Loop is a detected cycle in the realized propagation graph. Domains lists
// the cycle in traversal order (first element repeated implicitly).
// Reinforcing loops amplify their own trigger; dampening loops oppose it.
// Gain is the magnitude ratio after one full traversal of the cycle.
type Loop struct {
	Domains     []string `json:"domains"`
	Reinforcing bool     `json:"reinforcing"`
	Gain        float64  `json:"gain"`
}

// realizedEdge is a domain-to-domain transition that actually occurred
// during propagation, with the observed magnitude transfer ratio.
type realizedEdge struct {
	to    int
	ratio float64 // signed child/parent magnitude ratio
}

// detectLoops runs cycle detection over the realized wave-to-wave trigger
// graph collapsed to domain level. Self-loops (length 1) are excluded by
// definition. Each simple cycle is reported once, anchored at its
// smallest domain index.
func detectLoops(waves []Wave, g *domain.Graph) []Loop {
	if len(waves) < 2 {
		return nil
	}

	// Collapse the wave tree to realized domain transitions, keeping the
	// strongest observed ratio per (from, to) pair.
	adj := make(map[int][]realizedEdge)
	seen := make(map[[2]int]int) // (from,to) -> slot in adj[from]
	for _, w := range waves {
		if w.Parent < 0 {
			continue
		}
		p := waves[w.Parent]
		from, _ := g.Index(p.Domain)
		to, _ := g.Index(w.Domain)
		if from == to {
			continue
		}
		if p.Magnitude == 0 {
			continue
		}
		ratio := w.Magnitude / p.Magnitude
		key := [2]int{from, to}
		if slot, ok := seen[key]; ok {
			if math.Abs(ratio) > math.Abs(adj[from][slot].ratio) {
				adj[from][slot].ratio = ratio
			}
			continue
		}
		seen[key] = len(adj[from])
		adj[from] = append(adj[from], realizedEdge{to: to, ratio: ratio})
	}

	var loops []Loop
	n := g.Size()
	path := make([]int, 0, n)
	ratios := make([]float64, 0, n)
	onPath := make([]bool, n)

	// DFS from each start node; a cycle is only reported from its smallest
	// member so each simple cycle appears exactly once.
	var dfs func(start, at int)
	dfs = func(start, at int) {
		for _, e := range adj[at] {
			if e.to == start && len(path) >= 2 {
				loops = append(loops, buildLoop(path, append(ratios, e.ratio), g))
				continue
			}
			if e.to <= start || onPath[e.to] {
				continue
			}
			path = append(path, e.to)
			ratios = append(ratios, e.ratio)
			onPath[e.to] = true
			dfs(start, e.to)
			onPath[e.to] = false
			path = path[:len(path)-1]
			ratios = ratios[:len(ratios)-1]
		}
	}

	for start := 0; start < n; start++ {
		path = append(path[:0], start)
		ratios = ratios[:0]
		onPath[start] = true
		dfs(start, start)
		onPath[start] = false
	}

	return loops
}

func buildLoop(path []int, ratios []float64, g *domain.Graph) Loop {
	names := make([]string, len(path))
	for i, idx := range path {
		names[i] = g.Domains[idx].Name
	}
	signed := 1.0
	gain := 1.0
	for _, r := range ratios {
		signed *= r
		gain *= math.Abs(r)
	}
	return Loop{
		Domains:     names,
		Reinforcing: signed > 0,
		Gain:        gain,
	}
}
