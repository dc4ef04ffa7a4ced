// Package app assembles the server from its configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	server "goldrush/server"
	"goldrush/server/internal/config"
	"goldrush/server/internal/matches"
	matchsqlite "goldrush/server/internal/matches/sqlite"
	servernet "goldrush/server/internal/net"
	"goldrush/server/internal/net/intake"
	"goldrush/server/internal/net/registry"
	"goldrush/server/internal/net/ws"
	"goldrush/server/internal/observability"
	"goldrush/server/internal/telemetry"
	"goldrush/server/internal/tilemap"
	"goldrush/server/logging"
	loggingSinks "goldrush/server/logging/sinks"
)

// Config is everything New needs: the loaded settings and the operational
// logger.
type Config struct {
	Settings config.Config
	Logger   telemetry.Logger
}

type historyStore interface {
	matches.Recorder
	matches.Lister
}

// App owns every long-lived component. Build it with New, then Run it or
// use Handler directly in tests.
type App struct {
	settings config.Config
	logger   telemetry.Logger

	router   *logging.Router
	metrics  *logging.Metrics
	store    historyStore
	queue    *matches.Queue
	registry *registry.Registry
	engine   *server.Engine
	handler  http.Handler

	closeStore func() error
}

// New builds every component without starting anything.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := settings.Logging()
	sinks, err := buildSinks(logConfig)
	if err != nil {
		return nil, err
	}
	router := logging.NewRouter(logging.SystemClock{}, logConfig, sinks, fallbackLogger)
	metrics := &logging.Metrics{}
	sharedMetrics := telemetry.WrapMetrics(metrics)

	a := &App{
		settings:   settings,
		logger:     logger,
		router:     router,
		metrics:    metrics,
		closeStore: func() error { return nil },
	}

	levelMap, err := tilemap.Load(settings.MapPath)
	if err != nil {
		logger.Printf("level map unavailable, every tile is passable: %v", err)
		levelMap = nil
	}

	if settings.DBPath != "" {
		store, err := matchsqlite.Open(settings.DBPath)
		if err != nil {
			router.Close(context.Background())
			return nil, fmt.Errorf("open match store: %w", err)
		}
		a.store = store
		a.closeStore = store.Close
	} else {
		a.store = matches.NewMemoryStore()
	}
	a.queue = matches.NewQueue(a.store, matches.QueueConfig{
		Size:      settings.MatchQueue,
		Logger:    logger,
		Metrics:   sharedMetrics,
		Publisher: router,
	})

	a.registry = registry.New(registry.Config{
		QueueSize: settings.SendQueue,
		Logger:    logger,
		Metrics:   sharedMetrics,
		Publisher: router,
	})
	a.engine = server.NewEngine(settings.Game, server.Deps{
		Map:       levelMap,
		Out:       a.registry,
		Recorder:  a.queue,
		Publisher: router,
		Logger:    logger,
		Metrics:   sharedMetrics,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	dispatcher := intake.NewDispatcher(a.engine, a.registry, intake.Config{
		Logger:    logger,
		Metrics:   sharedMetrics,
		Publisher: router,
	})
	wsHandler := ws.NewHandler(a.registry, dispatcher, ws.HandlerConfig{
		Logger:    logger,
		RateLimit: settings.RateLimit,
		RateBurst: settings.RateBurst,
	})
	a.handler = servernet.NewHTTPHandler(a.engine, servernet.HTTPHandlerConfig{
		ClientDir:     settings.ClientDir,
		WebSocket:     http.HandlerFunc(wsHandler.Handle),
		Connections:   a.registry.Count,
		Matches:       a.store,
		Metrics:       metrics,
		Logging:       router,
		Logger:        logger,
		Observability: observability.Config{EnablePprof: settings.EnablePprof},
	})
	return a, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Engine() *server.Engine { return a.engine }

// Run serves HTTP and ticks the simulation until ctx is cancelled, then
// shuts down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go a.engine.RunSimulation(stop)

	srv := &http.Server{Addr: a.settings.Addr, Handler: a.handler}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	timeout := a.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("http shutdown: %v", err)
	}
	close(stop)
	if err := a.Close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close drains the match queue, then closes the store and the log router.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.queue.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close match store: %w", err))
	}
	if err := a.router.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close logging router: %w", err))
	}
	return errors.Join(errs...)
}

// Run builds the app and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if cfg.HasSink("json") {
		path := cfg.JSON.FilePath
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	if cfg.HasSink("memory") {
		sinks = append(sinks, logging.NamedSink{Name: "memory", Sink: loggingSinks.NewMemorySink()})
	}
	return sinks, nil
}
