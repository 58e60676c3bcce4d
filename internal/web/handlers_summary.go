package web

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/util"
	"github.com/emiliopalmerini/abcta/internal/web/templates"
)

const (
	sourceDatabase   = "database"
	sourcePrometheus = "prometheus"

	defaultWindowHours = 24
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

var errPrometheusUnavailable = errors.New("prometheus is not available")

type variantSummaryJSON struct {
	Variant               string           `json:"variant"`
	Impressions           int64            `json:"impressions"`
	Clicks                int64            `json:"clicks"`
	Sessions              int64            `json:"sessions"`
	ClickThroughRate      float64          `json:"click_through_rate"`
	ClicksPerSession      float64          `json:"clicks_per_session"`
	ImpressionsPerSession float64          `json:"impressions_per_session"`
	Events                map[string]int64 `json:"events"`
}

type summaryJSON struct {
	TestID   string               `json:"test_id"`
	Source   string               `json:"source"`
	Variants []variantSummaryJSON `json:"variants"`
}

type eventJSON struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	Variant    string `json:"variant"`
	SessionID  string `json:"session_id"`
	ReceivedAt string `json:"received_at"`
}

// summarize loads counts from the requested source and folds them per variant.
func (s *Server) summarize(ctx context.Context, testID string, r *http.Request) (domain.ExperimentSummary, string, error) {
	source := r.URL.Query().Get("source")
	if source != sourcePrometheus {
		counts, err := s.events.CountByVariant(ctx, testID)
		if err != nil {
			return domain.ExperimentSummary{}, sourceDatabase, err
		}
		return domain.Summarize(testID, counts), sourceDatabase, nil
	}

	if s.prometheus == nil || !s.prometheus.IsAvailable(ctx) {
		return domain.ExperimentSummary{}, source, errPrometheusUnavailable
	}

	hours := defaultWindowHours
	if h, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && h > 0 {
		hours = h
	}
	counts, err := s.prometheus.GetVariantEventCounts(ctx, testID, hours)
	if err != nil {
		return domain.ExperimentSummary{}, source, err
	}
	return domain.Summarize(testID, counts), source, nil
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	testID := r.PathValue("testID")

	summary, source, err := s.summarize(r.Context(), testID, r)
	if err != nil {
		s.summaryError(w, testID, err)
		return
	}

	out := summaryJSON{TestID: testID, Source: source, Variants: []variantSummaryJSON{}}
	for _, v := range summary.Variants {
		rates := v.ComputeRates()
		out.Variants = append(out.Variants, variantSummaryJSON{
			Variant:               v.Variant,
			Impressions:           v.Impressions,
			Clicks:                v.Clicks,
			Sessions:              v.Sessions,
			ClickThroughRate:      rates.ClickThroughRate,
			ClicksPerSession:      rates.ClicksPerSession,
			ImpressionsPerSession: rates.ImpressionsPerSession,
			Events:                v.Events,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	testID := r.PathValue("testID")

	limit := defaultRecentLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, maxRecentLimit)
	}

	events, err := s.events.ListRecent(r.Context(), testID, limit)
	if err != nil {
		s.logger.Error("failed to list events", "test_id", testID, "error", err)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:         e.ID,
			Event:      e.Name,
			Variant:    e.Variant,
			SessionID:  e.SessionID,
			ReceivedAt: domain.Timestamp(e.ReceivedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID := r.PathValue("testID")

	summary, source, err := s.summarize(ctx, testID, r)
	if err != nil {
		s.summaryError(w, testID, err)
		return
	}

	page := templates.SummaryPage{TestID: testID, Source: source}
	if testID == s.experiment.TestID {
		page.TestName = s.experiment.TestName
	}

	for _, v := range summary.Variants {
		row := templates.VariantRow{
			Variant:     v.Variant,
			Impressions: v.Impressions,
			Clicks:      v.Clicks,
			Sessions:    v.Sessions,
			CTR:         v.ComputeRates().ClickThroughRate,
		}
		for name, count := range v.Events {
			row.Events = append(row.Events, templates.EventRow{Name: name, Count: count})
		}
		sort.Slice(row.Events, func(i, j int) bool { return row.Events[i].Name < row.Events[j].Name })
		page.Variants = append(page.Variants, row)
	}

	if recent, err := s.events.ListRecent(ctx, testID, 20); err == nil {
		for _, e := range recent {
			page.Recent = append(page.Recent, templates.RecentEvent{
				Name:       e.Name,
				Variant:    e.Variant,
				SessionID:  e.SessionID,
				ReceivedAt: util.FormatDateTime(e.ReceivedAt),
			})
		}
	} else {
		s.logger.Warn("failed to list recent events", "test_id", testID, "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Summary(page).Render(ctx, w); err != nil {
		s.logger.Error("failed to render summary", "test_id", testID, "error", err)
	}
}

func (s *Server) summaryError(w http.ResponseWriter, testID string, err error) {
	if errors.Is(err, errPrometheusUnavailable) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Error("failed to summarize experiment", "test_id", testID, "error", err)
	http.Error(w, "failed to summarize experiment", http.StatusInternalServerError)
}
