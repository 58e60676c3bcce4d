package prometheus

import (
	"context"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// NoOpClient is a Prometheus client that always returns unavailable.
type NoOpClient struct{}

// NewNoOpClient creates a new no-op client for graceful degradation.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

func (c *NoOpClient) GetVariantEventCounts(ctx context.Context, testID string, hours int) ([]domain.EventCount, error) {
	return nil, nil
}

func (c *NoOpClient) IsAvailable(ctx context.Context) bool {
	return false
}
