package ports

import (
	"context"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// Sink is an analytics backend that accepts experiment events.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Track runs on the dispatch path, under its lock. It must not wait on
	// the network: remote backends queue the call and deliver it later.
	Track(ctx context.Context, e domain.Event) error
}

// Transport delivers a merged event record to the custom analytics
// endpoint. Delivery is best-effort: failures are handled internally and
// Send never blocks on the network.
type Transport interface {
	Send(record domain.Properties)
}

// MetricsExporter exports experiment events to an external observability system.
type MetricsExporter interface {
	Sink
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}

// StarChecker reports whether the current visitor has starred a repository.
type StarChecker interface {
	HasStarred(ctx context.Context, repo string) (bool, error)
}
