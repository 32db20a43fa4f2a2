// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dealscope/authd/internal/auth"
	authmemory "github.com/dealscope/authd/internal/auth/memory"
	authpostgres "github.com/dealscope/authd/internal/auth/postgres"
	"github.com/dealscope/authd/internal/config"
	"github.com/dealscope/authd/internal/httpapi"
	"github.com/dealscope/authd/internal/logging"
	"github.com/dealscope/authd/internal/observability"
	"github.com/dealscope/authd/internal/store"
	"github.com/dealscope/authd/pkg/errutil"
)

const serviceName = "authd"

// NewServeCmd creates the serve subcommand. A nil deps uses the defaults.
func NewServeCmd(configFile *string, deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authentication API and, unless metrics-addr is empty,
the metrics and health server. Settings come from the config file,
AUTHD_* environment variables and the flags below, later sources winning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return oops.With("operation", "load configuration").Wrap(err)
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, deps)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", config.DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("store", config.StorePostgres, "auth store backend (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.StringSlice("allowed-origins", []string{config.DefaultAllowedOrigin}, "CORS allowed origins")
	fs.Bool("trust-proxy-headers", false, "take the client IP from X-Forwarded-For")
	fs.Int("max-concurrent-sessions", auth.DefaultMaxConcurrentSessions, "live sessions allowed per account")
	fs.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "graceful shutdown deadline")
	fs.String("log-format", config.DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
}

// runServeWithDeps runs the API until ctx ends, a signal arrives or a
// server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if deps.LogWriter == nil {
		deps.LogWriter = os.Stderr
	}

	logger := logging.Setup(serviceName, version, cfg.LogFormat, cfg.SlogLevel(), deps.LogWriter)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open store").With("store", cfg.Store).Wrap(err)
	}
	defer backend.Close()

	opts := []auth.Option{auth.WithLogger(logger)}
	var observer httpapi.RequestObserver

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		ready := func(ctx context.Context) bool { return backend.Ping(ctx) == nil }
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, ready, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)

		metrics := obsServer.Metrics()
		opts = append(opts, auth.WithMetrics(metrics))
		observer = metrics
	}

	svc, err := auth.NewService(
		backend.Store,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.LogNotifier{Logger: logger},
		cfg.Auth(),
		opts...,
	)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.Code("SERVE_FAILED").With("operation", "build auth service").Wrap(err)
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.Code("SERVE_FAILED").With("operation", "listen").With("addr", cfg.HTTPAddr).Wrap(err)
	}

	apiServer := httpapi.NewHTTPServer(cfg.HTTPAddr, httpapi.New(svc, httpapi.Options{
		AllowedOrigins:    cfg.AllowedOrigins,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Observer:          observer,
		Logger:            logger,
	}))

	apiErrCh := make(chan error, 1)
	go func() {
		defer close(apiErrCh)
		if serveErr := apiServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()

	metricsAddr := ""
	if obsServer != nil {
		metricsAddr = obsServer.Addr()
	}
	logger.Info("authd ready",
		"http_addr", listener.Addr().String(),
		"metrics_addr", metricsAddr,
		"store", cfg.Store,
	)
	cmd.Println("authd started")
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String(), metricsAddr)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-apiErrCh:
		serveErr = oops.Code("SERVE_FAILED").With("operation", "serve api").Wrap(err)
		errutil.LogError(logger, "api server failed", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservabilityCtx(shutdownCtx, obsServer, logger)

	logger.Info("shutdown complete")
	return serveErr
}

// openBackend opens the store named by cfg.Store.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return &Backend{
			Store: authmemory.NewStore(),
			Ping:  func(context.Context) error { return nil },
			Close: func() {},
		}, nil
	case config.StorePostgres:
		opts := store.DefaultConnectOptions()
		opts.Logger = logger
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: authpostgres.NewStore(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("field", "store").Errorf("unknown store %q", cfg.Store)
	}
}

func stopObservability(obsServer ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	stopObservabilityCtx(ctx, obsServer, logger)
}

func stopObservabilityCtx(ctx context.Context, obsServer ObservabilityServer, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
