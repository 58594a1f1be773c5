package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParamSpec declares the sampling distribution of one perturbable parameter.
// Kind is one of "normal", "beta", "fixed". Epistemic marks the parameter as
// reducible estimation uncertainty; fixed parameters are never epistemic.
type ParamSpec struct {
	Name      string  `json:"name" yaml:"name"`
	Kind      string  `json:"kind" yaml:"kind"`
	Mean      float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std       float64 `json:"std,omitempty" yaml:"std,omitempty"`
	Alpha     float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Beta      float64 `json:"beta,omitempty" yaml:"beta,omitempty"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Epistemic bool    `json:"epistemic,omitempty" yaml:"epistemic,omitempty"`
}

// Validate checks the declaration for finite, usable support.
func (p ParamSpec) Validate() error {
	if p.Name == "" {
		return NewConfigError("parameters", "parameter name required", nil)
	}
	switch p.Kind {
	case "normal":
		if !isFinite(p.Mean) || !isFinite(p.Std) || p.Std < 0 {
			return NewConfigError("parameters."+p.Name, "normal requires finite mean and std >= 0", nil)
		}
	case "beta":
		if !isFinite(p.Alpha) || !isFinite(p.Beta) || p.Alpha <= 0 || p.Beta <= 0 {
			return NewConfigError("parameters."+p.Name, "beta requires finite alpha > 0 and beta > 0", nil)
		}
	case "fixed":
		if !isFinite(p.Value) {
			return NewConfigError("parameters."+p.Name, "fixed requires a finite value", p.Value)
		}
	default:
		return NewConfigError("parameters."+p.Name, "kind must be normal, beta, or fixed", p.Kind)
	}
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Config is the on-disk model: the interaction graph, the tracked state
// variables and their dynamics, and the perturbable parameter declarations.
type Config struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Domains []Domain `json:"domains" yaml:"domains"`
	Edges   []Edge   `json:"edges" yaml:"edges"`

	// Metrics lists the tracked state variables in reporting order.
	// The first metric is the primary outcome.
	Metrics []string `json:"metrics" yaml:"metrics"`

	// InitialState is the pre-trigger value of each metric.
	InitialState map[string]float64 `json:"initialState" yaml:"initialState"`

	// HalfLives gives the per-metric decay half-life, in granularity steps,
	// of an injected shock.
	HalfLives map[string]float64 `json:"halfLives" yaml:"halfLives"`

	Parameters []ParamSpec `json:"parameters" yaml:"parameters"`
}

// DefaultMetrics is the standard tracked variable set, used when a config
// declares none. The first entry is the primary outcome metric.
var DefaultMetrics = []string{
	"outcome",
	"economic_output",
	"stability",
	"resources",
	"capability",
	"cohesion",
}

// Normalize fills defaulted fields in place: metric list, initial state
// (1.0 per metric), half-lives (6 steps), and uniform impact profiles for
// domains that declare none.
func (c *Config) Normalize() {
	if len(c.Metrics) == 0 {
		c.Metrics = append([]string(nil), DefaultMetrics...)
	}
	if c.InitialState == nil {
		c.InitialState = make(map[string]float64, len(c.Metrics))
	}
	if c.HalfLives == nil {
		c.HalfLives = make(map[string]float64, len(c.Metrics))
	}
	for _, m := range c.Metrics {
		if _, ok := c.InitialState[m]; !ok {
			c.InitialState[m] = 1.0
		}
		if hl, ok := c.HalfLives[m]; !ok || hl <= 0 {
			c.HalfLives[m] = 6
		}
	}
	for i := range c.Domains {
		if len(c.Domains[i].Impact) == 0 {
			impact := make(map[string]float64, len(c.Metrics))
			for _, m := range c.Metrics {
				impact[m] = 1.0 / float64(len(c.Metrics))
			}
			c.Domains[i].Impact = impact
		}
	}
}

// Validate normalizes the config, builds the graph, and checks every
// declaration. On success it returns the validated graph.
func (c *Config) Validate() (*Graph, error) {
	c.Normalize()
	g, err := NewGraph(c.Domains, c.Edges)
	if err != nil {
		return nil, err
	}
	for _, d := range c.Domains {
		for m := range d.Impact {
			if !contains(c.Metrics, m) {
				return nil, NewConfigError("domains."+d.Name+".impact", "impact references unknown metric", m)
			}
		}
	}
	for _, p := range c.Parameters {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FromJSON parses a model config from JSON bytes.
func FromJSON(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse model json: %w", err)
	}
	return &c, nil
}

// FromYAML parses a model config from YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse model yaml: %w", err)
	}
	return &c, nil
}

// LoadFile reads a model config from path, choosing the parser from the
// file extension (.yaml/.yml, anything else is treated as JSON).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FromYAML(data)
	}
	return FromJSON(data)
}
