package beacon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

type collector struct {
	mu          sync.Mutex
	records     []map[string]any
	contentType string
	method      string
	release     chan struct{}
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.release != nil {
		<-c.release
	}
	body, _ := io.ReadAll(r.Body)
	var rec map[string]any
	_ = json.Unmarshal(body, &rec)

	c.mu.Lock()
	c.records = append(c.records, rec)
	c.contentType = r.Header.Get("Content-Type")
	c.method = r.Method
	c.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_BeaconDeliversAndCloseDrains(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	tr := New(Config{Endpoint: srv.URL + domain.DefaultEndpoint, Beacon: true}, srv.Client(), quietLogger())

	for i := 0; i < 5; i++ {
		tr.Send(domain.Properties{domain.KeyEvent: domain.EventScrollDepth, "depth": i})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))

	assert.Equal(t, 5, col.count())
	assert.Equal(t, "application/json", col.contentType)
	assert.Equal(t, http.MethodPost, col.method)
	assert.Equal(t, domain.EventScrollDepth, col.records[0][domain.KeyEvent])
}

func TestTransport_FetchFallbackWithoutBeacon(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	tr := New(Config{Endpoint: srv.URL, Beacon: false}, srv.Client(), quietLogger())
	tr.Send(domain.Properties{domain.KeyEvent: domain.EventImpression})

	require.NoError(t, tr.Close(context.Background()))
	assert.Equal(t, 1, col.count())
}

func TestTransport_FallsBackWhenQueueFull(t *testing.T) {
	col := &collector{release: make(chan struct{})}
	srv := httptest.NewServer(col)
	defer srv.Close()

	tr := New(Config{Endpoint: srv.URL, Beacon: true, QueueSize: 1}, srv.Client(), quietLogger())

	// The worker blocks on the first request, the second fills the queue
	// and the rest must not block the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			tr.Send(domain.Properties{domain.KeyEvent: domain.EventCTAClick, "n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a full queue")
	}

	close(col.release)
	require.NoError(t, tr.Close(context.Background()))
	assert.Equal(t, 4, col.count())
}

func TestTransport_FailuresAreDropped(t *testing.T) {
	attempts := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New(Config{Endpoint: srv.URL, Beacon: true}, srv.Client(), quietLogger())
	tr.Send(domain.Properties{domain.KeyEvent: domain.EventImpression})
	tr.Send(domain.Properties{domain.KeyEvent: domain.EventCTAClick})
	require.NoError(t, tr.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts, "each record is attempted once and never retried")
}

func TestTransport_SendAfterCloseIsDropped(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	tr := New(Config{Endpoint: srv.URL, Beacon: true}, srv.Client(), quietLogger())
	require.NoError(t, tr.Close(context.Background()))

	assert.NotPanics(t, func() {
		tr.Send(domain.Properties{domain.KeyEvent: domain.EventImpression})
	})
	assert.Zero(t, col.count())
}

func TestTransport_UnreachableEndpoint(t *testing.T) {
	tr := New(Config{Endpoint: "http://127.0.0.1:1/api/analytics/track", Timeout: time.Second}, nil, quietLogger())

	tr.Send(domain.Properties{domain.KeyEvent: domain.EventImpression})

	require.NoError(t, tr.Close(context.Background()))
}
