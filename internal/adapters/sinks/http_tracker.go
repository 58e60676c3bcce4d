package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const (
	defaultTrackerQueue   = 64
	defaultTrackerTimeout = 10 * time.Second
)

var (
	// ErrTrackerQueueFull is returned when a call cannot be queued.
	ErrTrackerQueueFull = errors.New("track queue full")
	// ErrTrackerClosed is returned for calls made after Close.
	ErrTrackerClosed = errors.New("tracker closed")
)

// HTTPTracker relays SDK calls to an HTTP endpoint. Track posts
// {"event": name, "properties": {...}} and Gtag posts
// {"command": c, "event": name, "params": {...}}.
//
// Calls are queued and posted by a single worker, so they return without
// waiting on the network. Close drains the queue.
type HTTPTracker struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	queue  chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.RWMutex
	stopped bool

	worker sync.WaitGroup
}

// NewHTTPTracker starts a tracker. client and logger may be nil.
func NewHTTPTracker(url string, client *http.Client, logger *slog.Logger) *HTTPTracker {
	if client == nil {
		client = &http.Client{Timeout: defaultTrackerTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &HTTPTracker{
		url:     url,
		client:  client,
		timeout: defaultTrackerTimeout,
		logger:  logger,
		queue:   make(chan []byte, defaultTrackerQueue),
		closed:  make(chan struct{}),
	}
	t.worker.Add(1)
	go t.run()
	return t
}

// Track satisfies TrackFunc.
func (t *HTTPTracker) Track(_ context.Context, event string, properties domain.Properties) error {
	return t.enqueue(map[string]any{
		"event":      event,
		"properties": properties,
	})
}

// Gtag satisfies GtagFunc.
func (t *HTTPTracker) Gtag(_ context.Context, command, event string, params domain.Properties) error {
	return t.enqueue(map[string]any{
		"command": command,
		"event":   event,
		"params":  params,
	})
}

// Close stops accepting calls and waits for queued ones to be posted, or
// until ctx is done.
func (t *HTTPTracker) Close(ctx context.Context) error {
	t.once.Do(func() {
		t.mu.Lock()
		t.stopped = true
		close(t.queue)
		t.mu.Unlock()

		go func() {
			t.worker.Wait()
			close(t.closed)
		}()
	})

	select {
	case <-t.closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("track relay close: %w", ctx.Err())
	}
}

func (t *HTTPTracker) enqueue(call map[string]any) error {
	body, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("failed to encode track call: %w", err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.stopped {
		return ErrTrackerClosed
	}
	select {
	case t.queue <- body:
		return nil
	default:
		return ErrTrackerQueueFull
	}
}

func (t *HTTPTracker) run() {
	defer t.worker.Done()
	for body := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		if err := t.post(ctx, body); err != nil {
			t.logger.Error("track relay error", "url", t.url, "error", err)
		}
		cancel()
	}
}

func (t *HTTPTracker) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build track request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("track request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("track endpoint returned %s", resp.Status)
	}
	return nil
}
