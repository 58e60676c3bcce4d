package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const maxRetries = 2

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.TrackedEvent) error {
	_, err := WithRetry(ctx, maxRetries, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			INSERT INTO events (id, name, test_id, test_name, variant, session_id, payload, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.TestID, e.TestName, e.Variant, e.SessionID,
			string(e.Payload), e.ReceivedAt.UTC().UnixMilli(),
		)
	})
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListRecent(ctx context.Context, testID string, limit int) ([]*domain.TrackedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, test_id, test_name, variant, session_id, payload, received_at
		FROM events
		WHERE test_id = ?
		ORDER BY received_at DESC, id
		LIMIT ?`, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.TrackedEvent
	for rows.Next() {
		var (
			e          domain.TrackedEvent
			payload    string
			receivedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.TestID, &e.TestName, &e.Variant, &e.SessionID, &payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = []byte(payload)
		e.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// CountByVariant groups the stored events of a test by variant and event name.
func (r *EventRepository) CountByVariant(ctx context.Context, testID string) ([]domain.EventCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant, name, COUNT(*), COUNT(DISTINCT session_id)
		FROM events
		WHERE test_id = ?
		GROUP BY variant, name
		ORDER BY variant, name`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	var counts []domain.EventCount
	for rows.Next() {
		var c domain.EventCount
		if err := rows.Scan(&c.Variant, &c.EventName, &c.Count, &c.Sessions); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}

func (r *EventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE received_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted events: %w", err)
	}
	return n, nil
}
