package agentmodel

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", Default},
		{"   ", Default},
		{"openrouter/anthropic/claude-3.5-sonnet", "anthropic/claude-3.5-sonnet"},
		{"openai/gpt-5-mini", Default},
		{"openrouter/openai/gpt-5-nano", Default},
		{"fal-ai/image-creation", Default},
		{"google/gemini-2.5-flash-image", Default},
		{"google/gemini-2.5-flash-image-preview:free", Default},
		{"openai/gpt-4o-mini", "openai/gpt-4o-mini"},
		{"some/unknown-model", "some/unknown-model"},
		{"openrouter/", Default},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, m := range Catalog() {
		once := Normalize(m.Value)
		if twice := Normalize(once); twice != once {
			t.Errorf("%s: %s != %s", m.Value, once, twice)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost("anthropic/claude-3.5-sonnet", 1_000_000, 100_000)
	if math.Abs(got-4.5) > 1e-9 {
		t.Errorf("cost = %v, want 4.5", got)
	}
	if EstimateCost("unknown/model", 1000, 1000) != 0 {
		t.Error("unknown model should cost 0")
	}
}

func TestCatalogContainsDefault(t *testing.T) {
	if _, ok := Lookup(Default); !ok {
		t.Fatal("default model missing from catalog")
	}
}
