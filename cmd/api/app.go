package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/handlers"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/middleware"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/config"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/pipeline"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	pipeline       *pipeline.Pipeline
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// routes are the handlers registered by newHTTPServer.
type routes struct {
	health      *handlers.HealthHandler
	people      *handlers.PeopleHandler
	tasks       *handlers.TasksHandler
	agents      *handlers.AgentsHandler
	delegations *handlers.DelegationsHandler
	metrics     http.Handler
}

// telemetry is what the HTTP chain needs from the observability setup. Nil fields disable the concern.
type telemetry struct {
	httpMetrics    observability.HTTPMetrics
	bodyRecorder   middleware.RequestBodyTooLargeRecorder
	meterProvider  metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		meterProvider  observability.MeterProviderShutdown
		metricsHandler http.Handler
		metrics        *observability.Metrics
		tel            telemetry
		err            error
	)

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}

		tel.httpMetrics = metrics
		tel.bodyRecorder = metrics

		if mp, ok := meterProvider.(metric.MeterProvider); ok {
			tel.meterProvider = mp
			otel.SetMeterProvider(mp)
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	tracerProvider, err := observability.NewTracerProvider(cfg.OtelTracesExporter)
	if err != nil {
		shutdownMeterAfterError(meterProvider)

		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)

		tel.tracerProvider = tracerProvider
	} else {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unknown)", "exporter", cfg.OtelTracesExporter)
	}

	var pipelineMetrics observability.PipelineMetrics
	if metrics != nil {
		pipelineMetrics = metrics
	}

	p, err := pipeline.New(ctx, pipeline.Params{
		Config:  cfg,
		DB:      db,
		Metrics: pipelineMetrics,
		Logger:  slog.Default(),
	})
	if err != nil {
		if shutdownErr := shutdownObservability(context.Background(), tracerProvider, meterProvider); shutdownErr != nil {
			slog.Error("shutdown observability after pipeline error", "error", shutdownErr)
		}

		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	server := newHTTPServer(cfg, routes{
		health:      handlers.NewHealthHandler(db),
		people:      handlers.NewPeopleHandler(p.People),
		tasks:       handlers.NewTasksHandler(p.Tasks, p.Matcher),
		agents:      handlers.NewAgentsHandler(p.Agents),
		delegations: handlers.NewDelegationsHandler(p.Delegations),
		metrics:     metricsHandler,
	}, tel)

	return &App{
		cfg:            cfg,
		server:         server,
		pipeline:       p,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and /metrics, API key on /v1/).
// Handler chain: RequestID -> otelhttp(Metrics(Logging(MaxBody(mux)))) so access logs get trace_id/span_id.
func newHTTPServer(cfg *config.Config, rt routes, tel telemetry) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", rt.health.Check)

	if rt.metrics != nil {
		public.Handle("GET /metrics", rt.metrics)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/people", rt.people.Create)
	protected.HandleFunc("GET /v1/people", rt.people.List)
	protected.HandleFunc("GET /v1/people/{external_id}", rt.people.Get)

	protected.HandleFunc("POST /v1/tasks", rt.tasks.Create)
	protected.HandleFunc("GET /v1/tasks", rt.tasks.List)
	protected.HandleFunc("GET /v1/tasks/{external_id}", rt.tasks.Get)
	protected.HandleFunc("POST /v1/tasks/{external_id}/delegate", rt.tasks.Delegate)

	protected.HandleFunc("POST /v1/agents", rt.agents.Create)
	protected.HandleFunc("GET /v1/agents", rt.agents.List)
	protected.HandleFunc("GET /v1/agents/{external_id}", rt.agents.Get)

	protected.HandleFunc("GET /v1/delegations", rt.delegations.List)

	protectedWithAuth := middleware.Auth(cfg.APIKey)(protected)
	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedWithAuth)
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if tel.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(tel.meterProvider))
	}

	if tel.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tel.tracerProvider))
	}

	inner := middleware.MaxBody(cfg.MaxRequestBodyBytes, tel.bodyRecorder)(mux)
	inner = middleware.Logging(inner)
	inner = middleware.Metrics(tel.httpMetrics)(inner)
	handler := otelhttp.NewHandler(inner, "delegation-api", otelOpts...)
	handler = middleware.RequestID(handler)

	// Delegation makes several model round trips, so writes get far more time than reads.
	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 5 * time.Minute
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server, then blocks until ctx is cancelled (e.g. signal) or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

func shutdownMeterAfterError(meter observability.MeterProviderShutdown) {
	if meter == nil {
		return
	}

	if err := meter.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown meter provider after tracer provider error", "error", err)
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := meter.Shutdown(ctx); err != nil {
			if first == nil {
				first = fmt.Errorf("meter provider shutdown: %w", err)
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server and flushes telemetry. Call after Run returns.
// The observability error is returned only when the server shut down cleanly.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
