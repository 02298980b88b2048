package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/projectenv/tools-index/internal/api"
	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/git"
	"github.com/projectenv/tools-index/internal/github"
	"github.com/projectenv/tools-index/internal/httpclient"
	"github.com/projectenv/tools-index/internal/sources"
	"github.com/projectenv/tools-index/internal/status"
	"github.com/projectenv/tools-index/internal/storage"
	pkgsync "github.com/projectenv/tools-index/internal/sync"
	"github.com/projectenv/tools-index/internal/sync/coordinator"
	"github.com/projectenv/tools-index/internal/telemetry"
	"github.com/projectenv/tools-index/internal/validation"
)

const (
	// TracerName is the name of the tracer used by the generation pipeline
	TracerName = "github.com/projectenv/tools-index"

	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// AppOption is a function that configures the application builder
type AppOption func(*appConfig) error

// appConfig collects everything needed to build a Pipeline or a ServerApp.
// It supports dependency injection for testing while providing sensible defaults for production.
type appConfig struct {
	config *config.Config

	// Index files
	indexFile       string
	legacyIndexFile string
	statusFile      string

	// Generation
	githubToken     string
	tools           []string
	refreshInterval time.Duration

	// Optional component overrides (primarily for testing)
	store         storage.Store
	factory       sources.Factory
	baseTransport http.RoundTripper

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...AppOption) (*appConfig, error) {
	cfg := &appConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = config.Default()
	}

	return cfg, nil
}

// WithConfig sets the configuration. Without it config.Default() is used.
func WithConfig(c *config.Config) AppOption {
	return func(cfg *appConfig) error {
		cfg.config = c
		return nil
	}
}

// WithIndexFile sets the path of the published index
func WithIndexFile(path string) AppOption {
	return func(cfg *appConfig) error {
		if path == "" {
			return fmt.Errorf("index file cannot be empty")
		}
		cfg.indexFile = path
		return nil
	}
}

// WithLegacyIndexFile sets the path of the legacy index. Empty disables it.
func WithLegacyIndexFile(path string) AppOption {
	return func(cfg *appConfig) error {
		cfg.legacyIndexFile = path
		return nil
	}
}

// WithStatusFile persists the background generation status at path
func WithStatusFile(path string) AppOption {
	return func(cfg *appConfig) error {
		cfg.statusFile = path
		return nil
	}
}

// WithGitHubToken authenticates GitHub API calls, overriding the configured token
func WithGitHubToken(token string) AppOption {
	return func(cfg *appConfig) error {
		cfg.githubToken = token
		return nil
	}
}

// WithTools restricts generation to the named datasources
func WithTools(tools ...string) AppOption {
	return func(cfg *appConfig) error {
		for _, tool := range tools {
			if tool = strings.TrimSpace(tool); tool != "" {
				cfg.tools = append(cfg.tools, tool)
			}
		}
		return nil
	}
}

// WithRefreshInterval makes the server regenerate the index in the background.
// Zero serves the index file as is.
func WithRefreshInterval(d time.Duration) AppOption {
	return func(cfg *appConfig) error {
		if d < 0 {
			return fmt.Errorf("refresh interval cannot be negative: %s", d)
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) AppOption {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(mp metric.MeterProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithStore allows injecting a custom index store (for testing)
func WithStore(s storage.Store) AppOption {
	return func(cfg *appConfig) error {
		cfg.store = s
		return nil
	}
}

// WithFactory allows injecting a custom datasource factory (for testing)
func WithFactory(f sources.Factory) AppOption {
	return func(cfg *appConfig) error {
		cfg.factory = f
		return nil
	}
}

// WithBaseTransport sets the round tripper beneath the resilient transport (for testing)
func WithBaseTransport(rt http.RoundTripper) AppOption {
	return func(cfg *appConfig) error {
		cfg.baseTransport = rt
		return nil
	}
}

// NewPipeline builds the generation pipeline
func NewPipeline(ctx context.Context, opts ...AppOption) (*Pipeline, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildPipeline(ctx, cfg)
}

// NewServerApp builds the index server, with background generation when a refresh
// interval is configured
func NewServerApp(ctx context.Context, opts ...AppOption) (*ServerApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if err := buildStore(cfg); err != nil {
		return nil, err
	}

	components := &AppComponents{Store: cfg.store}

	if cfg.refreshInterval > 0 {
		components.Pipeline, err = buildPipeline(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build pipeline: %w", err)
		}
		components.Coordinator = buildCoordinator(cfg, components.Pipeline)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &ServerApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

func buildStore(b *appConfig) error {
	if b.store != nil {
		return nil
	}
	if b.indexFile == "" {
		return fmt.Errorf("index file is required")
	}
	b.store = storage.NewFileStore(b.indexFile, storage.WithLegacyPath(b.legacyIndexFile))
	return nil
}

// buildPipeline wires the shared transport, the datasources, the orchestrator and the validator
func buildPipeline(_ context.Context, b *appConfig) (*Pipeline, error) {
	slog.Info("Initializing generation pipeline")

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := buildStore(b); err != nil {
		return nil, err
	}

	httpCfg := b.config.GetHTTP()
	if httpCfg.Timeout == 0 {
		httpCfg.Timeout = httpclient.DefaultTimeout
	}
	transportMetrics, err := telemetry.NewTransportMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport metrics: %w", err)
	}
	transport := httpclient.NewTransport(
		httpclient.WithBase(b.baseTransport),
		httpclient.WithMaxAttempts(httpCfg.MaxAttempts),
		httpclient.WithRetryWait(httpCfg.RetryWait),
		httpclient.WithRateLimit(httpCfg.Permits, httpCfg.Window),
		httpclient.WithPermitTimeout(httpCfg.PermitTimeout),
		httpclient.WithMetrics(transportMetrics),
	)

	if b.factory == nil {
		token := b.githubToken
		if token == "" {
			token = b.config.GetGitHubToken()
		}
		b.factory = sources.NewFactory(sources.Dependencies{
			HTTPClient: httpclient.NewDefaultClient(transport, httpCfg.Timeout),
			GitHub: github.NewClient(transport,
				github.WithBaseURL(b.config.GetGitHubAPIURL()),
				github.WithToken(token),
				github.WithTimeout(httpCfg.Timeout),
			),
			Git: git.NewDefaultGitClient(nil),
		})
	}

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(TracerName)
	}

	fetchMetrics, err := telemetry.NewFetchMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	pipeline := &Pipeline{
		config:  b.config,
		tools:   b.tools,
		store:   b.store,
		factory: b.factory,
		orchestrator: pkgsync.NewOrchestrator(
			pkgsync.WithMetrics(fetchMetrics),
			pkgsync.WithTracer(tracer),
		),
		tracer: tracer,
	}

	validationCfg := b.config.GetValidation()
	if !validationCfg.Skip {
		validationMetrics, err := telemetry.NewValidationMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create validation metrics: %w", err)
		}
		pipeline.validator = validation.NewValidator(
			httpclient.NewHTTPClient(transport, httpCfg.Timeout),
			validation.Options{
				Concurrency:     validationCfg.Concurrency,
				PreserveOmitted: validationCfg.PreserveOmitted,
				Metrics:         validationMetrics,
				Tracer:          tracer,
			},
		)
	}

	slog.Info("Generation pipeline initialized",
		"tools", b.tools,
		"validation", !validationCfg.Skip)
	return pipeline, nil
}

func buildCoordinator(b *appConfig, pipeline *Pipeline) coordinator.Coordinator {
	opts := []coordinator.Option{coordinator.WithInterval(b.refreshInterval)}
	if b.statusFile != "" {
		opts = append(opts, coordinator.WithStatusPersistence(status.NewFileStatusPersistence(b.statusFile)))
	}
	return coordinator.New(pipeline.Generate, opts...)
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *appConfig,
	components *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	serverMetrics, err := telemetry.NewServerMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create server metrics: %w", err)
	}
	// Prepended so that every request is observed, including recovered panics
	b.middlewares = append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.tracerProvider),
		serverMetrics.Middleware,
	}, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if components.Coordinator != nil {
		serverOpts = append(serverOpts, api.WithStatusProvider(components.Coordinator))
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(components.Store, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
