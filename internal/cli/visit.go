package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/adapters/beacon"
	"github.com/emiliopalmerini/abcta/internal/adapters/github"
	"github.com/emiliopalmerini/abcta/internal/adapters/htmldom"
	"github.com/emiliopalmerini/abcta/internal/adapters/otel"
	"github.com/emiliopalmerini/abcta/internal/adapters/sinks"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/experiment"
	"github.com/emiliopalmerini/abcta/internal/infrastructure/config"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

const flushTimeout = 10 * time.Second

var visitCmd = &cobra.Command{
	Use:   "visit <page.html|->",
	Short: "Visit a page headlessly as a browser profile",
	Long: `Load an HTML page as the given browser profile: resolve and apply the
variant, report the impression, then simulate scrolling, CTA clicks and
time on page before leaving. Events go to the collector endpoint.

Examples:
  abcta visit site/index.html
  abcta visit site/index.html --profile bob --scroll 30,80 --click 1 --dwell 5s
  curl -s https://example.org | abcta visit - --url https://example.org/?debug=true`,
	Args: cobra.ExactArgs(1),
	RunE: runVisit,
}

type visitOptions struct {
	URL          string
	UserAgent    string
	Width        int
	Height       int
	ScrollHeight float64

	Profile     string
	ProfilePath string

	Collector string
	Beacon    bool
	TrackURL  string
	TrackSink string
	LogEvents bool

	GitHubToken string
	GitHubAPI   string

	Scroll []int
	Clicks int
	Dwell  time.Duration

	Out string
}

type visitResult struct {
	Variant   string
	SessionID string
	Clicked   int
}

var visitOpts visitOptions

func init() {
	rootCmd.AddCommand(visitCmd)

	f := visitCmd.Flags()
	f.StringVar(&visitOpts.URL, "url", "http://localhost/", "Page URL reported with events")
	f.StringVar(&visitOpts.UserAgent, "user-agent", "", "User agent reported with events")
	f.IntVar(&visitOpts.Width, "width", 1280, "Viewport width")
	f.IntVar(&visitOpts.Height, "height", 720, "Viewport height")
	f.Float64Var(&visitOpts.ScrollHeight, "scroll-height", 0, "Document height in pixels (default 3x viewport)")
	f.StringVarP(&visitOpts.Profile, "profile", "p", "default", "Browser profile name")
	f.StringVar(&visitOpts.ProfilePath, "profile-path", "", "Browser profile file (overrides --profile)")
	f.StringVar(&visitOpts.Collector, "collector", "http://localhost:8080", "Collector base URL")
	f.BoolVar(&visitOpts.Beacon, "beacon", true, "Queue records as beacons; false sends each with a direct POST")
	f.StringVar(&visitOpts.TrackURL, "track-url", "", "Forward track(event, properties) calls to this HTTP relay")
	f.StringVar(&visitOpts.TrackSink, "track-sink", "segment", "SDK shape relayed to --track-url: gtag, segment, mixpanel or amplitude")
	f.BoolVar(&visitOpts.LogEvents, "log-events", false, "Log every event record")
	f.IntSliceVar(&visitOpts.Scroll, "scroll", nil, "Scroll to these percentages, in order")
	f.IntVar(&visitOpts.Clicks, "click", 0, "Click the tracked CTA this many times")
	f.DurationVar(&visitOpts.Dwell, "dwell", 0, "Time to stay on the page before leaving")
	f.StringVar(&visitOpts.GitHubAPI, "github-api", "", "GitHub API base URL (default api.github.com)")
	f.StringVarP(&visitOpts.Out, "out", "o", "", "Write the page as rendered for the variant to this file")
}

func runVisit(cmd *cobra.Command, args []string) error {
	cfg, err := loadExperiment()
	if err != nil {
		return err
	}

	env, err := config.LoadVisitor()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts := visitOpts
	if !cmd.Flags().Changed("profile") && env.Profile != "" {
		opts.Profile = env.Profile
	}
	if env.Endpoint != "" {
		cfg.Endpoint = env.Endpoint
	}
	opts.GitHubToken = env.GitHubToken

	in, closeIn, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer closeIn()

	logger := newLogger(cmd.ErrOrStderr(), debugLogging)
	res, err := visit(cmd.Context(), cfg, opts, in, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "variant=%s session=%s clicks=%d\n", res.Variant, res.SessionID, res.Clicked)
	return nil
}

// visit runs one page load to completion and flushes its events.
func visit(ctx context.Context, cfg domain.ExperimentConfig, opts visitOptions, in io.Reader, logger *slog.Logger) (*visitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	page, err := htmldom.Parse(in, pageOptions(opts)...)
	if err != nil {
		return nil, err
	}

	profile, err := openProfile(opts.Profile, opts.ProfilePath)
	if err != nil {
		return nil, err
	}

	transport := beacon.New(beacon.Config{
		Endpoint: endpointURL(opts.Collector, cfg.Endpoint),
		Beacon:   opts.Beacon,
	}, nil, logger)

	eventSinks, closeSinks, err := visitSinks(ctx, opts, logger)
	if err != nil {
		_ = transport.Close(ctx)
		return nil, err
	}

	deps := experiment.Deps{
		Profile:   profile,
		Document:  page,
		Window:    page,
		Transport: transport,
		Sinks:     eventSinks,
		Logger:    logger,
	}
	if opts.GitHubToken != "" {
		var ghOpts []github.Option
		if opts.GitHubAPI != "" {
			ghOpts = append(ghOpts, github.WithBaseURL(opts.GitHubAPI))
		}
		checker, err := github.NewClient(opts.GitHubToken, ghOpts...)
		if err != nil {
			_ = transport.Close(ctx)
			closeSinks()
			return nil, err
		}
		deps.StarChecker = checker
	}

	ctrl, err := experiment.New(cfg, deps)
	if err != nil {
		_ = transport.Close(ctx)
		closeSinks()
		return nil, err
	}
	ctrl.Start(ctx)

	for _, pct := range opts.Scroll {
		page.ScrollToPercent(float64(pct))
	}

	clicked := 0
	for i := 0; i < opts.Clicks; i++ {
		clicked += page.Click("data-tracking", cfg.TrackingAttributes.Button)
	}

	if opts.Dwell > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(opts.Dwell):
		}
	}

	page.Unload()
	ctrl.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := transport.Close(flushCtx); err != nil {
		logger.Warn("failed to flush events", "error", err)
	}
	closeSinks()

	if opts.Out != "" {
		if err := writePage(page, opts.Out); err != nil {
			return nil, err
		}
	}

	return &visitResult{
		Variant:   ctrl.VariantLabel(),
		SessionID: ctrl.SessionID(),
		Clicked:   clicked,
	}, nil
}

func pageOptions(opts visitOptions) []htmldom.Option {
	po := []htmldom.Option{htmldom.WithURL(opts.URL)}
	if opts.UserAgent != "" {
		po = append(po, htmldom.WithUserAgent(opts.UserAgent))
	}
	if opts.Width > 0 && opts.Height > 0 {
		po = append(po, htmldom.WithViewport(opts.Width, opts.Height))
	}
	if opts.ScrollHeight > 0 {
		po = append(po, htmldom.WithScrollHeight(opts.ScrollHeight))
	}
	return po
}

// visitSinks builds the analytics backends available to a headless visit.
// The returned func flushes and closes them.
func visitSinks(ctx context.Context, opts visitOptions, logger *slog.Logger) ([]ports.Sink, func(), error) {
	var (
		out     []ports.Sink
		closers []func(context.Context) error
	)
	if opts.LogEvents {
		out = append(out, sinks.NewLogSink(logger, slog.LevelInfo))
	}
	if opts.TrackURL != "" {
		relay := sinks.NewHTTPTracker(opts.TrackURL, nil, logger)
		s, err := relaySink(opts.TrackSink, relay)
		if err != nil {
			_ = relay.Close(ctx)
			return nil, nil, err
		}
		out = append(out, s)
		closers = append(closers, relay.Close)
	}

	otelCfg, err := otel.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load otel config: %w", err)
	}
	var exporter ports.MetricsExporter = otel.NewNoOpExporter()
	if otelCfg.Enabled {
		exp, err := otel.NewExporter(ctx, otelCfg)
		if err != nil {
			logger.Warn("otel exporter disabled", "error", err)
		} else {
			exporter = exp
			out = append(out, exp)
		}
	}
	closers = append(closers, exporter.Close)

	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		for _, c := range closers {
			if err := c(shutdownCtx); err != nil {
				logger.Warn("failed to close analytics sink", "error", err)
			}
		}
	}
	return out, closeFn, nil
}

// relaySink wraps the HTTP relay in the SDK adapter named by kind.
func relaySink(kind string, relay *sinks.HTTPTracker) (ports.Sink, error) {
	switch kind {
	case "", "segment":
		return sinks.NewSegmentSink(relay.Track), nil
	case "mixpanel":
		return sinks.NewMixpanelSink(relay.Track), nil
	case "amplitude":
		return sinks.NewAmplitudeSink(relay.Track), nil
	case "gtag":
		return sinks.NewGtagSink(relay.Gtag), nil
	default:
		return nil, fmt.Errorf("unknown track sink %q (want gtag, segment, mixpanel or amplitude)", kind)
	}
}

func openInput(arg string) (io.Reader, func(), error) {
	if arg == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writePage(page *htmldom.Page, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := page.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render page: %w", err)
	}
	return f.Close()
}
