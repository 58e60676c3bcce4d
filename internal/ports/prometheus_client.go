package ports

import (
	"context"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// PrometheusClient queries Prometheus for event counters exported by the collector.
type PrometheusClient interface {
	// GetVariantEventCounts returns the increase of each event per variant
	// over the rolling window.
	GetVariantEventCounts(ctx context.Context, testID string, hours int) ([]domain.EventCount, error)
	// IsAvailable checks if Prometheus is reachable.
	IsAvailable(ctx context.Context) bool
}
