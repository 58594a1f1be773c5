package uncertainty

import (
	"math"
	"sort"
)

// rankInfluence computes the Spearman rank correlation between each
// parameter's draws and the final-step outcome values, returning the
// ranking highest absolute influence first. Fixed parameters have zero
// rank variance and report zero correlation.
func rankInfluence(params []Param, draws [][]float64, outcome []float64) []Influence {
	outRanks := ranks(outcome)
	infl := make([]Influence, len(params))
	for i, p := range params {
		infl[i] = Influence{
			Name:        p.Name,
			Correlation: pearson(ranks(draws[i]), outRanks),
		}
	}
	sort.SliceStable(infl, func(a, b int) bool {
		return math.Abs(infl[a].Correlation) > math.Abs(infl[b].Correlation)
	})
	return infl
}

// ranks assigns fractional ranks (average rank for ties).
func ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	r := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// pearson computes the Pearson correlation of two equal-length series.
// Zero-variance input yields zero.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
