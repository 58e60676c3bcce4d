package otel

import (
	"context"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) Name() string { return "otel-noop" }

func (e *NoOpExporter) Track(ctx context.Context, ev domain.Event) error {
	return nil
}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
