package trajectory

import "math"

// State helpers for the map-form state variables carried by Points. The
// integrator works on dense vectors internally; these helpers cover the
// map facade used at package boundaries.

// DiffState returns a-b per metric, over the union of keys.
func DiffState(a, b map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(a))
	for k, v := range a {
		out[k] = v - b[k]
	}
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = -v
		}
	}
	return out
}

// StateEqualTol reports whether two states match within tol on every key.
func StateEqualTol(a, b map[string]float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || math.Abs(v-bv) > tol {
			return false
		}
	}
	return true
}

// StateDistance returns the Euclidean distance between two states over the
// keys of a.
func StateDistance(a, b map[string]float64) float64 {
	ss := 0.0
	for k, v := range a {
		d := v - b[k]
		ss += d * d
	}
	return math.Sqrt(ss)
}
