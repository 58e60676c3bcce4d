package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

func sampleEvent() domain.Event {
	return domain.Event{
		Name:     domain.EventCTAClick,
		TestID:   "ab-test-nav-cta-001",
		TestName: "navigation-cta-button",
		Properties: domain.Properties{
			domain.KeyVariant: "treatment",
			"button_text":     "Contribute",
		},
	}
}

type gtagCall struct {
	command string
	event   string
	params  domain.Properties
}

func TestGtagSink_SendsUniversalAndGA4Shapes(t *testing.T) {
	var calls []gtagCall
	s := NewGtagSink(func(ctx context.Context, command, event string, params domain.Properties) error {
		calls = append(calls, gtagCall{command, event, params})
		return nil
	})

	require.NoError(t, s.Track(context.Background(), sampleEvent()))
	require.Len(t, calls, 2)

	ua := calls[0]
	assert.Equal(t, "event", ua.command)
	assert.Equal(t, domain.EventCTAClick, ua.event)
	assert.Equal(t, "ab-test-nav-cta-001", ua.params[domain.KeyTestID])
	assert.Equal(t, domain.EventCTAClick, ua.params[domain.KeyEvent])

	ga4 := calls[1]
	assert.Equal(t, "ab_test", ga4.params["event_category"])
	assert.Equal(t, "navigation-cta-button", ga4.params["event_label"])
	assert.Equal(t, "Contribute", ga4.params["button_text"])
	assert.NotContains(t, ga4.params, domain.KeyTestID)
}

func TestGtagSink_StopsOnError(t *testing.T) {
	calls := 0
	s := NewGtagSink(func(ctx context.Context, command, event string, params domain.Properties) error {
		calls++
		return errors.New("gtag not loaded")
	})

	assert.Error(t, s.Track(context.Background(), sampleEvent()))
	assert.Equal(t, 1, calls)
}

func TestTrackerSinks(t *testing.T) {
	constructors := map[string]func(TrackFunc) *TrackerSink{
		"segment":   NewSegmentSink,
		"mixpanel":  NewMixpanelSink,
		"amplitude": NewAmplitudeSink,
	}

	for name, ctor := range constructors {
		t.Run(name, func(t *testing.T) {
			var gotEvent string
			var gotProps domain.Properties
			s := ctor(func(ctx context.Context, event string, props domain.Properties) error {
				gotEvent, gotProps = event, props
				return nil
			})

			assert.Equal(t, name, s.Name())
			require.NoError(t, s.Track(context.Background(), sampleEvent()))
			assert.Equal(t, domain.EventCTAClick, gotEvent)
			assert.Equal(t, "navigation-cta-button", gotProps[domain.KeyTestName])
			assert.Equal(t, "treatment", gotProps[domain.KeyVariant])
		})
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)), slog.LevelInfo)

	require.NoError(t, s.Track(context.Background(), sampleEvent()))

	out := buf.String()
	assert.Contains(t, out, "[AB Test Event]")
	assert.Contains(t, out, "event=cta_button_click")
	assert.Contains(t, out, "variant=treatment")
}

// relayServer records every JSON body posted to it.
type relayServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	delay  time.Duration
	status int
}

func (r *relayServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	var body map[string]any
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()
	if r.status != 0 {
		w.WriteHeader(r.status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *relayServer) received() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.bodies...)
}

func closeTracker(t *testing.T, tr *HTTPTracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))
}

func TestHTTPTracker(t *testing.T) {
	relay := &relayServer{}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	tr := NewHTTPTracker(srv.URL, srv.Client(), nil)
	s := NewSegmentSink(tr.Track)
	require.NoError(t, s.Track(context.Background(), sampleEvent()))
	closeTracker(t, tr)

	got := relay.received()
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventCTAClick, got[0]["event"])
	props, ok := got[0]["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Contribute", props["button_text"])
}

func TestHTTPTracker_DoesNotWaitOnNetwork(t *testing.T) {
	relay := &relayServer{delay: 300 * time.Millisecond}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	tr := NewHTTPTracker(srv.URL, srv.Client(), nil)
	s := NewMixpanelSink(tr.Track)

	start := time.Now()
	require.NoError(t, s.Track(context.Background(), sampleEvent()))
	require.NoError(t, s.Track(context.Background(), sampleEvent()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	closeTracker(t, tr)
	assert.Len(t, relay.received(), 2, "Close drains queued calls")
}

func TestHTTPTracker_ErrorStatusIsLogged(t *testing.T) {
	srv := httptest.NewServer(&relayServer{status: http.StatusBadGateway})
	defer srv.Close()

	var logs bytes.Buffer
	tr := NewHTTPTracker(srv.URL, srv.Client(), slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, tr.Track(context.Background(), "x", nil))
	closeTracker(t, tr)

	assert.Contains(t, logs.String(), "track relay error")
	assert.Contains(t, logs.String(), "502")
}

func TestHTTPTracker_RejectsAfterClose(t *testing.T) {
	tr := NewHTTPTracker("http://127.0.0.1:0", nil, nil)
	closeTracker(t, tr)

	err := tr.Track(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrTrackerClosed)
}

func TestHTTPTracker_GtagRelay(t *testing.T) {
	relay := &relayServer{}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	tr := NewHTTPTracker(srv.URL, srv.Client(), nil)
	require.NoError(t, NewGtagSink(tr.Gtag).Track(context.Background(), sampleEvent()))
	closeTracker(t, tr)

	got := relay.received()
	require.Len(t, got, 2)
	for _, call := range got {
		assert.Equal(t, "event", call["command"])
		assert.Equal(t, domain.EventCTAClick, call["event"])
	}
	ga4, ok := got[1]["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ab_test", ga4["event_category"])
}
