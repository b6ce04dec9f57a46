package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sh03m2a5h/filesession-go/internal/config"
	"github.com/sh03m2a5h/filesession-go/internal/metrics"
	"github.com/sh03m2a5h/filesession-go/internal/middleware"
	"github.com/sh03m2a5h/filesession-go/internal/server"
	"github.com/sh03m2a5h/filesession-go/internal/session"
	"github.com/sh03m2a5h/filesession-go/internal/tracing"
	"github.com/sh03m2a5h/filesession-go/pkg/version"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// App represents the main application
type App struct {
	config          *config.Config
	viper           *viper.Viper
	logger          *zap.Logger
	level           zap.AtomicLevel
	server          *server.Server
	store           *session.Store
	tracingShutdown tracing.Shutdown
}

// New creates a new application instance
func New(configPath string) (*App, error) {
	cfg, v, err := config.LoadWithViper(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, v)
}

// NewWithConfig builds the application from an already loaded config. v may
// be nil, in which case the config is not watched.
func NewWithConfig(cfg *config.Config, v *viper.Viper) (*App, error) {
	logger, level, err := setupLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	tracingShutdown, err := tracing.Initialize(context.Background(), &cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store, err := session.NewFactory(logger).CreateStore(&cfg.Session)
	if err != nil {
		_ = tracingShutdown(context.Background())
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	a := &App{
		config:          cfg,
		viper:           v,
		logger:          logger,
		level:           level,
		server:          server.New(cfg.Server.ToServerConfig(), logger),
		store:           store,
		tracingShutdown: tracingShutdown,
	}

	a.setupRoutes()
	a.watchConfig()

	metrics.SetBuildInfo(version.Version, version.GitCommit, version.BuildDate)

	return a, nil
}

// setupRoutes installs the middleware stack and the session API
func (a *App) setupRoutes() {
	router := a.server.Router()

	router.Use(middleware.StructuredLoggingMiddleware(a.logger, "/health", a.config.Metrics.Path))
	router.Use(middleware.SecurityHeadersMiddleware(a.config.Server.TLS.Enabled))
	if a.config.Metrics.Enabled {
		router.Use(middleware.MetricsMiddleware())
		router.GET(a.config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	if a.config.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware(a.config.Tracing.ServiceName))
	}

	a.server.SetHealthCheck(a.healthCheck)
	session.NewHandler(a.store, a.logger).Register(router)
}

// watchConfig applies log level changes from the config file without a
// restart. Other settings are read once at startup.
func (a *App) watchConfig() {
	watching := config.Watch(a.viper, func(cfg *config.Config) {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			a.logger.Warn("Ignoring invalid log level", zap.String("level", cfg.Logging.Level))
			return
		}
		if level != a.level.Level() {
			a.level.SetLevel(level)
			a.logger.Info("Log level changed", zap.Stringer("level", level))
		}
	}, func(err error) {
		a.logger.Warn("Config reload failed", zap.Error(err))
	})

	if watching {
		a.logger.Debug("Watching config file", zap.String("file", a.viper.ConfigFileUsed()))
	}
}

// healthCheck reports backend reachability for /health
func (a *App) healthCheck(ctx context.Context) (string, error) {
	stats, err := a.store.Backend().Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}
	return fmt.Sprintf("%s store, %d sessions", stats.Store, stats.ActiveSessions), nil
}

// Handler returns the HTTP handler serving all routes
func (a *App) Handler() http.Handler {
	return a.server.Router()
}

// Store returns the session store
func (a *App) Store() *session.Store {
	return a.store
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run listens on the configured address and serves until SIGINT or SIGTERM
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr(), err)
	}

	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails, then shuts
// everything down
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting filesession",
			zap.String("version", version.Version),
			zap.String("store", a.config.Session.Store),
			zap.String("address", ln.Addr().String()),
		)
		if err := a.server.Serve(ln); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if errors.Is(context.Cause(gctx), context.Canceled) {
			a.logger.Info("Received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		errs = append(errs, err)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close session store", zap.Error(err))
		errs = append(errs, err)
	}

	if err := a.tracingShutdown(ctx); err != nil {
		a.logger.Error("Failed to shutdown tracing", zap.Error(err))
		errs = append(errs, err)
	}

	a.logger.Info("Application shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
