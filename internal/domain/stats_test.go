package domain

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	counts := []EventCount{
		{Variant: "control", EventName: EventImpression, Count: 100, Sessions: 90},
		{Variant: "control", EventName: EventCTAClick, Count: 5, Sessions: 5},
		{Variant: "treatment", EventName: EventImpression, Count: 80, Sessions: 80},
		{Variant: "treatment", EventName: EventCTAClick, Count: 12, Sessions: 10},
		{Variant: "treatment", EventName: EventScrollDepth, Count: 40, Sessions: 20},
	}

	s := Summarize("t-1", counts)

	if s.TestID != "t-1" {
		t.Errorf("TestID = %q, want t-1", s.TestID)
	}
	if len(s.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(s.Variants))
	}

	control := s.Variants[0]
	if control.Variant != "control" || control.Impressions != 100 || control.Clicks != 5 || control.Sessions != 90 {
		t.Errorf("unexpected control summary: %+v", control)
	}

	treatment := s.Variants[1]
	if treatment.Events[EventScrollDepth] != 40 {
		t.Errorf("scroll_depth count = %d, want 40", treatment.Events[EventScrollDepth])
	}
}

func TestVariantSummary_ComputeRates(t *testing.T) {
	tests := []struct {
		name     string
		summary  VariantSummary
		expected SummaryRates
	}{
		{
			name:    "normal case",
			summary: VariantSummary{Impressions: 200, Clicks: 10, Sessions: 100},
			expected: SummaryRates{
				ClickThroughRate:      0.05,
				ClicksPerSession:      0.1,
				ImpressionsPerSession: 2,
			},
		},
		{
			name:     "no impressions",
			summary:  VariantSummary{},
			expected: SummaryRates{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.summary.ComputeRates()
			assertFloat(t, "ClickThroughRate", tt.expected.ClickThroughRate, got.ClickThroughRate)
			assertFloat(t, "ClicksPerSession", tt.expected.ClicksPerSession, got.ClicksPerSession)
			assertFloat(t, "ImpressionsPerSession", tt.expected.ImpressionsPerSession, got.ImpressionsPerSession)
		})
	}
}

func assertFloat(t *testing.T, field string, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("%s: want %v, got %v", field, want, got)
	}
}
