// Package trajectory defines the projection aggregate and the deterministic
// baseline integration that turns cascade waves into state-variable paths.
// A Trajectory is assembled once by the engine and is read-only afterward;
// intervention testing produces a new Trajectory instead of mutating the
// original.
package trajectory

import (
	"fmt"
	"time"

	"github.com/stratsim-xyz/go-stratsim/cascade"
	"github.com/stratsim-xyz/go-stratsim/domain"
	"github.com/stratsim-xyz/go-stratsim/uncertainty"
)

// SchemaVersion identifies the serialized trajectory layout. Field names
// are stable across calls so export layers can render trajectories without
// engine knowledge.
const SchemaVersion = "1.0.0"

// Granularity is the fixed step size of a projection.
type Granularity string

const (
	Monthly   Granularity = "monthly"
	Quarterly Granularity = "quarterly"
	Yearly    Granularity = "yearly"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// StepsPerYear returns how many granularity steps make one year.
func (g Granularity) StepsPerYear() int {
	switch g {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	default:
		return 1
	}
}

// InvalidHorizonError reports a horizon below one granularity step.
type InvalidHorizonError struct {
	Horizon     int
	Granularity Granularity
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("trajectory: horizon %d below one %s step", e.Horizon, e.Granularity)
}

// Point is one sample on a projected path.
type Point struct {
	Step int `json:"step"`

	// State holds every tracked metric at this step.
	State map[string]float64 `json:"state"`

	// ConfidenceWidth is the mean confidence interval width across metrics
	// at this step. Zero until bounds are computed.
	ConfidenceWidth float64 `json:"confidenceWidth"`
}

// Pathway is one alternative strategic choice at a decision point, with the
// projected divergence magnitude it would cause.
type Pathway struct {
	Name        string  `json:"name"`
	ImpactScale float64 `json:"impactScale"`
	DecayScale  float64 `json:"decayScale"`
	Divergence  float64 `json:"divergence"`
}

// DecisionPoint is a step of high strategic leverage. Criticality is in
// [0,1] and every decision point carries 2-4 pathways.
type DecisionPoint struct {
	ID                 string    `json:"id"`
	Step               int       `json:"step"`
	Criticality        float64   `json:"criticality"`
	Reversibility      float64   `json:"reversibility"`
	TimeSensitivity    float64   `json:"timeSensitivity"`
	InterventionWindow int       `json:"interventionWindow"`
	Pathways           []Pathway `json:"pathways"`
}

// InflectionType classifies how the trend changes character.
type InflectionType string

const (
	Acceleration  InflectionType = "acceleration"
	Deceleration  InflectionType = "deceleration"
	Reversal      InflectionType = "reversal"
	Stabilization InflectionType = "stabilization"
	Collapse      InflectionType = "collapse"
	Recovery      InflectionType = "recovery"
)

// InflectionPoint is a step where a metric's trend changes character.
// PreTrend and PostTrend are mean first differences over disjoint windows
// adjacent to Step.
type InflectionPoint struct {
	Step      int            `json:"step"`
	Type      InflectionType `json:"type"`
	Metric    string         `json:"metric"`
	Magnitude float64        `json:"magnitude"`
	PreTrend  float64        `json:"preTrend"`
	PostTrend float64        `json:"postTrend"`
}

// Branch is an alternative path diverging from the baseline at the step of
// its owning decision point. Points spans the full horizon; the prefix up
// to the decision step equals the baseline by construction.
type Branch struct {
	DecisionID string  `json:"decisionId"`
	Pathway    string  `json:"pathway"`
	Points     []Point `json:"points"`
}

// Provenance records what produced a trajectory.
type Provenance struct {
	CounterfactualID string    `json:"counterfactualId"`
	Seed             uint64    `json:"seed"`
	ParentID         string    `json:"parentId,omitempty"`
	Intervention     string    `json:"intervention,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Trajectory is the aggregate root of one projection: the baseline path,
// its confidence bands, the cascade it was derived from, and the detected
// decision and inflection annotations.
type Trajectory struct {
	Version     string      `json:"version"`
	ID          string      `json:"id"`
	Horizon     int         `json:"horizon"`
	Granularity Granularity `json:"granularity"`
	Metrics     []string    `json:"metrics"`

	Counterfactual domain.Counterfactual `json:"counterfactual"`

	Baseline []Point                       `json:"baseline"`
	Bands    map[string][]uncertainty.Band `json:"bands"`

	Waves []cascade.Wave `json:"waves"`
	Loops []cascade.Loop `json:"loops"`

	Decisions   []DecisionPoint   `json:"decisions"`
	Inflections []InflectionPoint `json:"inflections"`
	Branches    []Branch          `json:"branches"`

	Sensitivity   []uncertainty.Influence   `json:"sensitivity"`
	Decomposition uncertainty.Decomposition `json:"decomposition"`

	Provenance Provenance `json:"provenance"`
}

// Decision returns the decision point with the given ID, or nil.
func (t *Trajectory) Decision(id string) *DecisionPoint {
	for i := range t.Decisions {
		if t.Decisions[i].ID == id {
			return &t.Decisions[i]
		}
	}
	return nil
}

// Series extracts one metric's baseline values in step order.
func (t *Trajectory) Series(metric string) []float64 {
	out := make([]float64, len(t.Baseline))
	for i, p := range t.Baseline {
		out[i] = p.State[metric]
	}
	return out
}
