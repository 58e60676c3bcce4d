// Package experiment runs a two-arm page experiment: it resolves the
// visitor's variant, applies it to the document, instruments user
// behavior and dispatches the resulting events.
package experiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// Deps holds the host collaborators a Controller runs against.
type Deps struct {
	Profile   ports.Profile
	Document  ports.Document
	Window    ports.Window
	Transport ports.Transport

	// Sinks are the analytics backends available on this page. An absent
	// backend is simply not registered.
	Sinks []ports.Sink

	// StarChecker is optional; without it no star status is reported.
	StarChecker ports.StarChecker

	Clock  ports.Clock
	Rand   *rand.Rand
	Logger *slog.Logger

	// CloseTimeout bounds how long Close waits for an in-flight star check
	// before cancelling it. Zero means defaultCloseTimeout.
	CloseTimeout time.Duration
}

const defaultCloseTimeout = 10 * time.Second

// Controller owns the experiment lifecycle for a single page load.
type Controller struct {
	cfg         domain.ExperimentConfig
	profile     ports.Profile
	document    ports.Document
	window      ports.Window
	transport   ports.Transport
	sinks       []ports.Sink
	starChecker ports.StarChecker
	clock       ports.Clock
	rand        *rand.Rand
	logger      *slog.Logger

	closeTimeout time.Duration

	variant   domain.Variant
	sessionID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dispatchMu sync.Mutex

	scrollMu  sync.Mutex
	maxScroll int

	engagementOnce sync.Once
	stopEngagement func(emit bool)
}

// New builds a controller. Profile, Document, Window and Transport are required.
func New(cfg domain.ExperimentConfig, deps Deps) (*Controller, error) {
	switch {
	case deps.Profile == nil:
		return nil, errors.New("experiment: profile is required")
	case deps.Document == nil:
		return nil, errors.New("experiment: document is required")
	case deps.Window == nil:
		return nil, errors.New("experiment: window is required")
	case deps.Transport == nil:
		return nil, errors.New("experiment: transport is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	closeTimeout := deps.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = defaultCloseTimeout
	}

	return &Controller{
		cfg:          cfg,
		profile:      deps.Profile,
		document:     deps.Document,
		window:       deps.Window,
		transport:    deps.Transport,
		sinks:        deps.Sinks,
		starChecker:  deps.StarChecker,
		clock:        clock,
		rand:         deps.Rand,
		logger:       logger.With("test_id", cfg.TestID),
		closeTimeout: closeTimeout,
		sessionID:    domain.NewSessionID(clock.Now(), deps.Rand),
	}, nil
}

// Start runs page initialization: resolve and apply the variant, attach
// the observers, report the impression and log debug info.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.variant = c.resolve()
	c.apply(c.variant)

	c.trackButtonClicks()
	c.trackStarStatus()
	c.trackEngagement()
	c.trackScrollDepth()

	c.trackImpression()
	c.logTestInfo()
}

// Close stops background activity without emitting the engagement event.
// An in-flight star check gets up to CloseTimeout to report before it is
// cancelled.
func (c *Controller) Close() {
	if c.stopEngagement != nil {
		c.engagementOnce.Do(func() { c.stopEngagement(false) })
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(c.closeTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("star status check still running at close, cancelling", "timeout", c.closeTimeout)
	}

	if c.cancel != nil {
		c.cancel()
	}
	<-done
}

// Variant returns the variant resolved for this page load.
func (c *Controller) Variant() domain.Variant {
	return c.variant
}

// VariantLabel returns the persisted label of the resolved variant.
func (c *Controller) VariantLabel() string {
	return c.cfg.Label(c.variant)
}

// SessionID returns the identifier of this page load.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Config returns the experiment definition the controller runs.
func (c *Controller) Config() domain.ExperimentConfig {
	return c.cfg
}

// Debug returns the debug utilities bound to this controller.
func (c *Controller) Debug() *DebugUtils {
	return &DebugUtils{
		cfg:     c.cfg,
		profile: c.profile,
		reload:  c.window.Reload,
		clock:   c.clock,
		logger:  c.logger,
		current: c.VariantLabel,
	}
}

func (c *Controller) logTestInfo() {
	u, err := url.Parse(c.window.URL())
	if err != nil || u.Query().Get("debug") != "true" {
		return
	}
	c.logger.Info("experiment info",
		slog.Group("experiment",
			slog.String("test_name", c.cfg.TestName),
			slog.String("test_id", c.cfg.TestID),
			slog.String("variant", c.VariantLabel()),
			slog.String("session_id", c.sessionID),
			slog.Float64("treatment_percentage", c.cfg.TreatmentPercentage),
		),
	)
}
