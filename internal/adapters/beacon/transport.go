// Package beacon delivers event records to the custom analytics endpoint.
//
// Beacons are queued without blocking and sent by a single worker; Close
// drains whatever is still queued, so records dispatched while a page is
// being torn down are still attempted. When the beacon queue is disabled
// or full the record falls back to a direct POST that outlives the
// caller. Failures are logged and dropped, never retried.
package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const (
	defaultQueueSize = 64
	defaultTimeout   = 10 * time.Second
)

// Config controls how records are delivered.
type Config struct {
	// Endpoint is the absolute URL records are POSTed to.
	Endpoint string
	// Beacon enables the queued transport. When false every record uses
	// the fetch fallback.
	Beacon    bool
	QueueSize int
	Timeout   time.Duration
}

// Transport implements ports.Transport over HTTP.
type Transport struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger

	queue  chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.RWMutex
	stopped bool

	worker  sync.WaitGroup
	fetches sync.WaitGroup
}

// New starts a transport. client may be nil.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Transport{
		endpoint: cfg.Endpoint,
		client:   client,
		timeout:  timeout,
		logger:   logger,
		closed:   make(chan struct{}),
	}

	if cfg.Beacon {
		size := cfg.QueueSize
		if size <= 0 {
			size = defaultQueueSize
		}
		t.queue = make(chan []byte, size)
		t.worker.Add(1)
		go t.run()
	}
	return t
}

// Send queues a record for delivery. It never blocks on the network.
func (t *Transport) Send(record domain.Properties) {
	body, err := json.Marshal(record)
	if err != nil {
		t.logger.Error("failed to encode analytics record", "error", err)
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.stopped {
		t.logger.Warn("analytics transport closed, dropping record", "event", record[domain.KeyEvent])
		return
	}

	if t.queue != nil {
		select {
		case t.queue <- body:
			return
		default:
			t.logger.Debug("beacon queue full, falling back to fetch")
		}
	}

	t.fetches.Add(1)
	go func() {
		defer t.fetches.Done()
		// keepalive: the request is not tied to any caller context
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.post(ctx, body); err != nil {
			t.logger.Error("analytics error", "transport", "fetch", "error", err)
		}
	}()
}

// Close stops accepting records, drains queued beacons and waits for
// in-flight fetches, or until ctx is done.
func (t *Transport) Close(ctx context.Context) error {
	t.once.Do(func() {
		t.mu.Lock()
		t.stopped = true
		if t.queue != nil {
			close(t.queue)
		}
		t.mu.Unlock()

		go func() {
			t.worker.Wait()
			t.fetches.Wait()
			close(t.closed)
		}()
	})

	select {
	case <-t.closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("analytics transport close: %w", ctx.Err())
	}
}

func (t *Transport) run() {
	defer t.worker.Done()
	for body := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		if err := t.post(ctx, body); err != nil {
			t.logger.Error("analytics error", "transport", "beacon", "error", err)
		}
		cancel()
	}
}

func (t *Transport) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send record: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}
