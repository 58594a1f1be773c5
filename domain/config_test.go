package domain

import (
	"math"
	"reflect"
	"testing"
)

const jsonModel = `{
  "name": "test",
  "domains": [
    {"name": "economic", "delay": 1},
    {"name": "political", "delay": 2}
  ],
  "edges": [
    {"from": "economic", "to": "political", "weight": 0.6}
  ],
  "metrics": ["outcome", "stability"],
  "halfLives": {"outcome": 4, "stability": 8},
  "parameters": [
    {"name": "trigger_magnitude", "kind": "normal", "mean": 1, "std": 0.2, "epistemic": true}
  ]
}`

const yamlModel = `
name: test
domains:
  - name: economic
    delay: 1
  - name: political
    delay: 2
edges:
  - from: economic
    to: political
    weight: 0.6
metrics: [outcome, stability]
halfLives:
  outcome: 4
  stability: 8
parameters:
  - name: trigger_magnitude
    kind: normal
    mean: 1
    std: 0.2
    epistemic: true
`

func TestFromJSONAndYAMLAgree(t *testing.T) {
	jc, err := FromJSON([]byte(jsonModel))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	yc, err := FromYAML([]byte(yamlModel))
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	jc.Normalize()
	yc.Normalize()
	if !reflect.DeepEqual(jc, yc) {
		t.Errorf("JSON and YAML configs differ:\n%+v\n%+v", jc, yc)
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	c := &Config{
		Domains: []Domain{{Name: "economic", Delay: 1}},
	}
	c.Normalize()

	if len(c.Metrics) != len(DefaultMetrics) {
		t.Fatalf("expected default metrics, got %v", c.Metrics)
	}
	for _, m := range c.Metrics {
		if c.InitialState[m] != 1.0 {
			t.Errorf("expected initial state 1.0 for %s, got %f", m, c.InitialState[m])
		}
		if c.HalfLives[m] != 6 {
			t.Errorf("expected half-life 6 for %s, got %f", m, c.HalfLives[m])
		}
	}
	impact := c.Domains[0].Impact
	if len(impact) != len(c.Metrics) {
		t.Fatalf("expected uniform impact profile, got %v", impact)
	}
	total := 0.0
	for _, w := range impact {
		total += w
	}
	if math.Abs(total-1.0) > 1e-12 {
		t.Errorf("expected impact weights summing to 1, got %f", total)
	}
}

func TestConfigValidate(t *testing.T) {
	c, err := FromJSON([]byte(jsonModel))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	g, err := c.Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if g.Size() != 2 {
		t.Errorf("expected 2 domains, got %d", g.Size())
	}
}

func TestConfigValidateRejectsUnknownImpactMetric(t *testing.T) {
	c := &Config{
		Domains: []Domain{{Name: "economic", Impact: map[string]float64{"nonsense": 1}}},
		Metrics: []string{"outcome"},
	}
	if _, err := c.Validate(); err == nil {
		t.Error("expected error for impact on unknown metric")
	}
}

func TestParamSpecValidate(t *testing.T) {
	cases := []struct {
		name string
		spec ParamSpec
		ok   bool
	}{
		{"normal ok", ParamSpec{Name: "p", Kind: "normal", Mean: 1, Std: 0.1}, true},
		{"beta ok", ParamSpec{Name: "p", Kind: "beta", Alpha: 2, Beta: 5}, true},
		{"fixed ok", ParamSpec{Name: "p", Kind: "fixed", Value: 3}, true},
		{"missing name", ParamSpec{Kind: "fixed", Value: 1}, false},
		{"unknown kind", ParamSpec{Name: "p", Kind: "cauchy"}, false},
		{"negative std", ParamSpec{Name: "p", Kind: "normal", Std: -1}, false},
		{"infinite mean", ParamSpec{Name: "p", Kind: "normal", Mean: math.Inf(1)}, false},
		{"nan value", ParamSpec{Name: "p", Kind: "fixed", Value: math.NaN()}, false},
		{"zero alpha", ParamSpec{Name: "p", Kind: "beta", Alpha: 0, Beta: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
