package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

type EventRepository interface {
	Create(ctx context.Context, event *domain.TrackedEvent) error
	ListRecent(ctx context.Context, testID string, limit int) ([]*domain.TrackedEvent, error)
	CountByVariant(ctx context.Context, testID string) ([]domain.EventCount, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
