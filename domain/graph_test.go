package domain

import (
	"errors"
	"testing"
)

func testDomains() []Domain {
	return []Domain{
		{Name: "economic", Delay: 1, Volatility: 0.3},
		{Name: "political", Delay: 2, Volatility: 0.5},
		{Name: "social", Delay: 2, Volatility: 0.4},
	}
}

func testEdges() []Edge {
	return []Edge{
		{From: "economic", To: "political", Weight: 0.6},
		{From: "political", To: "economic", Weight: 0.5},
		{From: "economic", To: "social", Weight: 0.4},
	}
}

func TestNewGraph(t *testing.T) {
	g, err := NewGraph(testDomains(), testEdges())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if g.Size() != 3 {
		t.Errorf("expected 3 domains, got %d", g.Size())
	}
	i, ok := g.Index("political")
	if !ok || i != 1 {
		t.Errorf("expected political at index 1, got %d (ok=%v)", i, ok)
	}
	if len(g.Out(0)) != 2 {
		t.Errorf("expected 2 outgoing hops from economic, got %d", len(g.Out(0)))
	}
	if g.MaxDelay() != 2 {
		t.Errorf("expected max delay 2, got %d", g.MaxDelay())
	}
}

func TestNewGraphDefaultsSign(t *testing.T) {
	g, err := NewGraph(testDomains(), []Edge{{From: "economic", To: "social", Weight: 0.4}})
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if g.Out(0)[0].Sign != 1 {
		t.Errorf("expected default sign +1, got %f", g.Out(0)[0].Sign)
	}
}

func TestNewGraphErrors(t *testing.T) {
	cases := []struct {
		name    string
		domains []Domain
		edges   []Edge
	}{
		{"empty graph", nil, nil},
		{"duplicate domain", []Domain{{Name: "a"}, {Name: "a"}}, nil},
		{"unnamed domain", []Domain{{Name: ""}}, nil},
		{"negative delay", []Domain{{Name: "a", Delay: -1}}, nil},
		{"dangling source", testDomains(), []Edge{{From: "missing", To: "economic", Weight: 0.5}}},
		{"dangling target", testDomains(), []Edge{{From: "economic", To: "missing", Weight: 0.5}}},
		{"weight above one", testDomains(), []Edge{{From: "economic", To: "social", Weight: 1.5}}},
		{"bad sign", testDomains(), []Edge{{From: "economic", To: "social", Weight: 0.5, Sign: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGraph(tc.domains, tc.edges)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("expected ErrConfig class, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestCounterfactualValidate(t *testing.T) {
	g, err := NewGraph(testDomains(), testEdges())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	cf := Counterfactual{ID: "cf-1", Origin: "economic", Magnitude: 1.0}
	if err := cf.Validate(g); err != nil {
		t.Errorf("valid counterfactual rejected: %v", err)
	}

	bad := Counterfactual{Origin: "martian"}
	if err := bad.Validate(g); err == nil {
		t.Error("expected error for unknown origin domain")
	}
	neg := Counterfactual{Origin: "economic", Step: -1}
	if err := neg.Validate(g); err == nil {
		t.Error("expected error for negative trigger step")
	}
}
