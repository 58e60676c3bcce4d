package domain

import "time"

// TrackedEvent is an event record as received and stored by the collector.
type TrackedEvent struct {
	ID         string
	Name       string
	TestID     string
	TestName   string
	Variant    string
	SessionID  string
	Payload    []byte
	ReceivedAt time.Time
}

// EventCount holds how often one event fired for one variant.
type EventCount struct {
	Variant   string
	EventName string
	Count     int64
	Sessions  int64
}

// VariantSummary aggregates the event counts of a single variant.
type VariantSummary struct {
	Variant     string
	Impressions int64
	Clicks      int64
	Sessions    int64
	Events      map[string]int64
}

// ExperimentSummary holds per-variant totals for one experiment.
// Only descriptive totals are reported; no significance testing.
type ExperimentSummary struct {
	TestID   string
	Variants []VariantSummary
}

// SummaryRates holds derived per-variant ratios for side-by-side comparison.
type SummaryRates struct {
	ClickThroughRate      float64
	ClicksPerSession      float64
	ImpressionsPerSession float64
}

// Summarize folds raw counts into one VariantSummary per variant, in the
// order variants first appear in counts.
func Summarize(testID string, counts []EventCount) ExperimentSummary {
	summary := ExperimentSummary{TestID: testID}
	index := make(map[string]int)

	for _, c := range counts {
		i, ok := index[c.Variant]
		if !ok {
			i = len(summary.Variants)
			index[c.Variant] = i
			summary.Variants = append(summary.Variants, VariantSummary{
				Variant: c.Variant,
				Events:  make(map[string]int64),
			})
		}
		vs := &summary.Variants[i]
		vs.Events[c.EventName] += c.Count
		switch c.EventName {
		case EventImpression:
			vs.Impressions += c.Count
			if c.Sessions > vs.Sessions {
				vs.Sessions = c.Sessions
			}
		case EventCTAClick:
			vs.Clicks += c.Count
		}
	}
	return summary
}

// ComputeRates derives click-through and per-session ratios.
func (s VariantSummary) ComputeRates() SummaryRates {
	var r SummaryRates
	if s.Impressions > 0 {
		r.ClickThroughRate = float64(s.Clicks) / float64(s.Impressions)
	}
	if s.Sessions > 0 {
		r.ClicksPerSession = float64(s.Clicks) / float64(s.Sessions)
		r.ImpressionsPerSession = float64(s.Impressions) / float64(s.Sessions)
	}
	return r
}
