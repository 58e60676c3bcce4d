// Package sinks adapts third-party analytics SDKs to ports.Sink. Each
// adapter wraps the SDK's call surface as a function so it can be backed
// by a real client, a server-side HTTP API or a test recorder.
package sinks

import (
	"context"
	"log/slog"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// TrackFunc is the track(eventName, properties) surface shared by
// Segment, Mixpanel and Amplitude style clients.
type TrackFunc func(ctx context.Context, event string, properties domain.Properties) error

// TrackerSink forwards the merged record to a track-style SDK.
type TrackerSink struct {
	name  string
	track TrackFunc
}

// NewSegmentSink wraps a Segment analytics.track call.
func NewSegmentSink(track TrackFunc) *TrackerSink {
	return &TrackerSink{name: "segment", track: track}
}

// NewMixpanelSink wraps a Mixpanel track call.
func NewMixpanelSink(track TrackFunc) *TrackerSink {
	return &TrackerSink{name: "mixpanel", track: track}
}

// NewAmplitudeSink wraps an Amplitude logEvent call.
func NewAmplitudeSink(track TrackFunc) *TrackerSink {
	return &TrackerSink{name: "amplitude", track: track}
}

func (s *TrackerSink) Name() string { return s.name }

func (s *TrackerSink) Track(ctx context.Context, e domain.Event) error {
	return s.track(ctx, e.Name, e.Record())
}

// GtagFunc is gtag('event', name, params).
type GtagFunc func(ctx context.Context, command, event string, params domain.Properties) error

// GtagSink reports each event twice: once with the full record for
// Universal Analytics and once in GA4 shape.
type GtagSink struct {
	gtag GtagFunc
}

func NewGtagSink(gtag GtagFunc) *GtagSink {
	return &GtagSink{gtag: gtag}
}

func (s *GtagSink) Name() string { return "gtag" }

func (s *GtagSink) Track(ctx context.Context, e domain.Event) error {
	if err := s.gtag(ctx, "event", e.Name, e.Record()); err != nil {
		return err
	}

	ga4 := make(domain.Properties, len(e.Properties)+2)
	ga4["event_category"] = "ab_test"
	ga4["event_label"] = e.TestName
	for k, v := range e.Properties {
		ga4[k] = v
	}
	return s.gtag(ctx, "event", e.Name, ga4)
}

// LogSink writes every record to a structured logger.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Track(ctx context.Context, e domain.Event) error {
	attrs := make([]any, 0, len(e.Properties))
	for k, v := range e.Record() {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.Log(ctx, s.level, "[AB Test Event]", attrs...)
	return nil
}
