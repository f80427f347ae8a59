// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/buildinfo"
	"github.com/compeng-bot/compeng-bot-go/internal/config"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"github.com/compeng-bot/compeng-bot-go/internal/genai"
	"github.com/compeng-bot/compeng-bot-go/internal/line"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/metrics"
	"github.com/compeng-bot/compeng-bot-go/internal/r2client"
	"github.com/compeng-bot/compeng-bot-go/internal/ratelimit"
	"github.com/compeng-bot/compeng-bot-go/internal/relay"
	"github.com/compeng-bot/compeng-bot-go/internal/resolver"
	"github.com/compeng-bot/compeng-bot-go/internal/sentry"
	"github.com/compeng-bot/compeng-bot-go/internal/snapshot"
	"github.com/compeng-bot/compeng-bot-go/internal/table"
	"github.com/compeng-bot/compeng-bot-go/internal/webhook"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg          *config.Config
	logger       *logger.Logger
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	source       table.Source
	sourceCloser io.Closer // non-nil for sources holding a connection (sqlite)
	intentParser genai.IntentParser
	relayLimiter *ratelimit.KeyedLimiter
	lineHandler  *line.Handler
	router       *gin.Engine
	server       *http.Server
	closeOnce    sync.Once
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "compeng-bot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls (genai) go through the same handler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Version).
		WithField("commit", buildinfo.Commit).
		WithField("build_date", buildinfo.BuildDate).
		Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	src, closer, err := NewTableSource(ctx, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("table source: %w", err)
	}
	log.WithField("source", cfg.Table.Source).
		WithField("fetch_timeout", cfg.Table.FetchTimeout).
		WithField("max_retries", cfg.Table.FetchMaxRetries).
		Info("Table source configured")

	// Retries sit inside the metrics wrapper so one logical fetch is one sample;
	// the timeout applies per attempt.
	src = table.WithMetrics(
		table.WithRetry(
			table.WithTimeout(src, cfg.Table.FetchTimeout),
			cfg.Table.FetchMaxRetries, config.TableFetchRetryInitial,
		),
		m, log,
	)

	var parser genai.IntentParser
	if cfg.HasLLMProvider() {
		llmCfg := genai.ConfigFromApp(cfg)
		fallback, err := genai.CreateIntentParser(ctx, llmCfg, m)
		switch {
		case err != nil:
			log.WithError(err).Warn("Intent parser initialization failed; relay and LINE channels disabled")
		case fallback != nil:
			parser = fallback
			log.WithField("providers", llmCfg.ConfiguredProviders()).
				WithField("chain_length", fallback.Len()).
				Info("Intent parser enabled")
		}
	} else {
		log.Info("No LLM provider configured; relay and LINE channels disabled")
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := newApplication(cfg, log, registry, m, src, parser)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	app.sourceCloser = closer

	log.Info("Initialization complete")
	return app, nil
}

// newApplication wires handlers and routes around an existing table source
// and (optional) intent parser.
func newApplication(cfg *config.Config, log *logger.Logger, registry *prometheus.Registry, m *metrics.Metrics, src table.Source, parser genai.IntentParser) (*Application, error) {
	dispatcher := fulfillment.NewDispatcher(resolver.New(src), m, log)

	relayLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "relay",
		Burst:         cfg.RelayRateBurst,
		RefillRate:    cfg.RelayRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	app := &Application{
		cfg:          cfg,
		logger:       log,
		metrics:      m,
		registry:     registry,
		source:       src,
		intentParser: parser,
		relayLimiter: relayLimiter,
	}

	if cfg.HasLINE() {
		lineHandler, err := line.NewHandler(line.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Parser:        parser,
			Dispatcher:    dispatcher,
			Metrics:       m,
			Logger:        log,
		})
		if err != nil {
			relayLimiter.Stop()
			return nil, fmt.Errorf("line handler: %w", err)
		}
		app.lineHandler = lineHandler
		log.Info("LINE channel enabled")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	webhookHandler := webhook.NewHandler(dispatcher, m, log)
	relayHandler := relay.NewHandler(parser, dispatcher, relayLimiter, m, log)

	router.GET("/livez", app.livenessCheck)
	router.HEAD("/livez", app.livenessCheck)
	router.GET("/readyz", app.readinessCheck)
	router.HEAD("/readyz", app.readinessCheck)
	router.POST("/webhook", webhookHandler.Handle)

	relayGroup := router.Group("/relay", relay.CORS(cfg.RelayAllowOrigins))
	relayGroup.POST("", relayHandler.Handle)
	relayGroup.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if app.lineHandler != nil {
		router.POST("/line/callback", app.lineHandler.Handle)
	}

	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsPassword != "", cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	app.router = router
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	return app, nil
}

// NewTableSource builds the configured backend. The returned closer is nil
// unless the source holds a connection.
func NewTableSource(ctx context.Context, cfg config.TableConfig) (table.Source, io.Closer, error) {
	switch cfg.Source {
	case config.SourceSheets:
		src, err := table.NewSheetsSource(ctx, table.SheetsConfig{
			Credentials: cfg.SheetsCredentials,
			Range:       cfg.SheetsRange,
			SpreadsheetIDs: map[string]string{
				table.UGCourses:       cfg.SheetIDUGCourses,
				table.CourseLecturers: cfg.SheetIDCourseLecturer,
				table.LecturerInfo:    cfg.SheetIDLecturerInfo,
			},
		})
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil

	case config.SourceObject:
		client, err := NewObjectClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return table.NewObjectSource(client, table.ObjectConfig{Prefix: cfg.ObjectPrefix}), nil, nil

	case config.SourceSQLite:
		if cfg.SQLiteSnapshotKey != "" {
			client, err := NewObjectClient(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			etag, err := snapshot.Fetch(ctx, client, cfg.SQLiteSnapshotKey, cfg.SQLitePath)
			if err != nil {
				return nil, nil, fmt.Errorf("seed sqlite from snapshot: %w", err)
			}
			slog.InfoContext(ctx, "SQLite snapshot installed",
				"key", cfg.SQLiteSnapshotKey, "etag", etag, "path", cfg.SQLitePath)
		}
		src, err := table.NewSQLiteSource(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil

	default:
		return nil, nil, fmt.Errorf("unknown table source %q", cfg.Source)
	}
}

// NewObjectClient builds the object storage client from the table settings.
func NewObjectClient(ctx context.Context, cfg config.TableConfig) (*r2client.Client, error) {
	return r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.ObjectEndpoint,
		AccessKeyID: cfg.ObjectAccessKeyID,
		SecretKey:   cfg.ObjectSecretKey,
		BucketName:  cfg.ObjectBucket,
	})
}

// Router exposes the HTTP handler, mainly for tests and embedding.
func (a *Application) Router() http.Handler {
	return a.router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	nlu := a.intentParser != nil && a.intentParser.IsEnabled()
	return map[string]bool{
		"nlu":   nlu,
		"relay": nlu,
		"line":  a.lineHandler != nil,
	}
}

// readinessCheck fetches every table concurrently. The service is ready only
// when all of them can be read and parsed.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	names := table.Names()
	counts := make([]int, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			tbl, err := a.source.Fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			counts[i] = tbl.Len()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.WithError(err).WarnContext(c.Request.Context(), "Readiness check failed: table source unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "table source unavailable",
		})
		return
	}

	tables := make(map[string]int, len(names))
	for i, name := range names {
		tables[name] = counts[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"source":   a.cfg.Table.Source,
		"tables":   tables,
		"features": a.getFeatures(),
		"intents":  fulfillment.Intents(),
	})
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts down.
//
// Shutdown order:
//  1. Stop accepting requests and drain in-flight HTTP requests
//  2. Wait for background LINE event processing
//  3. Close the intent parser, rate limiter and table source
//  4. Flush Sentry
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	a.startHTTPServer(errCh)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case runErr = <-errCh:
		a.logger.WithError(runErr).Error("HTTP server stopped unexpectedly")
	}

	return errors.Join(runErr, a.shutdown())
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer(errCh chan<- error) {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

// shutdown performs graceful shutdown of the HTTP server and resources.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.lineHandler != nil {
		a.logger.Info("Waiting for LINE events to complete...")
		if err := a.lineHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("LINE handler shutdown timeout")
		}
	}

	a.logger.Info("Closing resources...")
	a.closeResources()

	sentry.Flush(config.SentryFlush)

	a.logger.Info("Shutdown complete")
	return nil
}

// closeResources releases everything that outlives a request. Safe to call
// more than once.
func (a *Application) closeResources() {
	a.closeOnce.Do(func() {
		if a.intentParser != nil {
			if err := a.intentParser.Close(); err != nil {
				a.logger.WithError(err).WithField("component", "intent_parser").Error("Component close error")
			}
		}
		if a.relayLimiter != nil {
			a.relayLimiter.Stop()
		}
		if a.sourceCloser != nil {
			if err := a.sourceCloser.Close(); err != nil {
				a.logger.WithError(err).WithField("component", "table_source").Error("Component close error")
			}
		}
	})
}

// Close releases resources without running the HTTP server shutdown. It is
// used when the application is built but never started.
func (a *Application) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if a.lineHandler != nil {
		_ = a.lineHandler.Shutdown(ctx)
	}
	a.closeResources()
}
