package experiment

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emiliopalmerini/abcta/internal/adapters/storage"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

type fakeElement struct {
	attrs   map[string]string
	text    string
	hidden  bool
	onClick []func()
}

func newElement(text string, attrs map[string]string) *fakeElement {
	return &fakeElement{attrs: attrs, text: text}
}

func (e *fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) SetAttr(name, value string) { e.attrs[name] = value }
func (e *fakeElement) Hide()                      { e.hidden = true }
func (e *fakeElement) Text() string               { return e.text }
func (e *fakeElement) OnClick(fn func())          { e.onClick = append(e.onClick, fn) }

func (e *fakeElement) click() {
	for _, fn := range e.onClick {
		fn()
	}
}

type fakeDocument struct {
	elements []*fakeElement
	classes  []string
}

func (d *fakeDocument) QueryAll(name, value string) []ports.Element {
	var out []ports.Element
	for _, el := range d.elements {
		if v, ok := el.attrs[name]; ok && v == value {
			out = append(out, el)
		}
	}
	return out
}

func (d *fakeDocument) AddRootClass(class string) {
	for _, c := range d.classes {
		if c == class {
			return
		}
	}
	d.classes = append(d.classes, class)
}

type fakeWindow struct {
	url      string
	reloads  int
	onScroll []func(ports.ScrollMetrics)
	onUnload []func()
}

func (w *fakeWindow) URL() string                           { return w.url }
func (w *fakeWindow) UserAgent() string                     { return "abcta-test/1.0" }
func (w *fakeWindow) Viewport() (int, int)                  { return 1280, 720 }
func (w *fakeWindow) OnScroll(fn func(ports.ScrollMetrics)) { w.onScroll = append(w.onScroll, fn) }
func (w *fakeWindow) OnUnload(fn func())                    { w.onUnload = append(w.onUnload, fn) }
func (w *fakeWindow) Reload()                               { w.reloads++ }

// scrollTo reports a scroll position as a percentage of a 1000px scrollable page.
func (w *fakeWindow) scrollTo(percent float64) {
	m := ports.ScrollMetrics{ScrollY: percent * 10, ScrollHeight: 1720, InnerHeight: 720}
	for _, fn := range w.onScroll {
		fn(m)
	}
}

func (w *fakeWindow) unload() {
	for _, fn := range w.onUnload {
		fn()
	}
}

type fakeTicker struct {
	c       chan time.Time
	stopped bool
	mu      sync.Mutex
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeClock struct {
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC),
		ticker: &fakeTicker{c: make(chan time.Time)},
	}
}

func (c *fakeClock) Now() time.Time                       { return c.now }
func (c *fakeClock) NewTicker(time.Duration) ports.Ticker { return c.ticker }

// tick delivers n ticks; each send returns once the engagement loop received it.
func (c *fakeClock) tick(n int) {
	for i := 0; i < n; i++ {
		c.ticker.c <- c.now
	}
}

type recordingTransport struct {
	mu      sync.Mutex
	records []domain.Properties
}

func (r *recordingTransport) Send(record domain.Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *recordingTransport) named(name string) []domain.Properties {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Properties
	for _, rec := range r.records {
		if rec[domain.KeyEvent] == name {
			out = append(out, rec)
		}
	}
	return out
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type recordingSink struct {
	name   string
	err    error
	panics bool
	events []domain.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Track(ctx context.Context, e domain.Event) error {
	if s.panics {
		panic("sink exploded")
	}
	s.events = append(s.events, e)
	return s.err
}

type fakeStarChecker struct {
	starred bool
	err     error
	calls   int
}

func (f *fakeStarChecker) HasStarred(ctx context.Context, repo string) (bool, error) {
	f.calls++
	return f.starred, f.err
}

// slowStarChecker answers after delay unless its context ends first.
type slowStarChecker struct {
	delay time.Duration
}

func (f *slowStarChecker) HasStarred(ctx context.Context, repo string) (bool, error) {
	select {
	case <-time.After(f.delay):
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

var errBoom = errors.New("boom")

// logBuffer collects log output for assertions.
type logBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

type harness struct {
	cfg       domain.ExperimentConfig
	profile   *storage.MemoryProfile
	document  *fakeDocument
	window    *fakeWindow
	transport *recordingTransport
	clock     *fakeClock
	logs      *logBuffer
	deps      Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		cfg:     domain.DefaultConfig(),
		profile: storage.NewMemoryProfile(),
		document: &fakeDocument{elements: []*fakeElement{
			newElement("Docs", map[string]string{
				attrTest:    "navigation-cta-button",
				attrVariant: "control",
			}),
			newElement("  Contribute  ", map[string]string{
				attrTest:             "navigation-cta-button",
				attrVariant:          "treatment",
				attrTracking:         "contribute-cta-click",
				attrTrackingLocation: "header-navigation",
				attrHref:             "https://github.com/crosschainriskframework",
			}),
		}},
		window:    &fakeWindow{url: "https://example.org/"},
		transport: &recordingTransport{},
		clock:     newFakeClock(),
		logs:      &logBuffer{},
	}
	h.deps = Deps{
		Profile:   h.profile,
		Document:  h.document,
		Window:    h.window,
		Transport: h.transport,
		Clock:     h.clock,
		Rand:      rand.New(rand.NewPCG(42, 7)),
		Logger:    slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	return h
}

func (h *harness) start(t *testing.T) *Controller {
	t.Helper()
	c, err := New(h.cfg, h.deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c.Start(context.Background())
	t.Cleanup(c.Close)
	return c
}

func (h *harness) treatmentElement() *fakeElement {
	return h.document.elements[1]
}

func scrollMetrics(y, scrollHeight, innerHeight float64) ports.ScrollMetrics {
	return ports.ScrollMetrics{ScrollY: y, ScrollHeight: scrollHeight, InnerHeight: innerHeight}
}
