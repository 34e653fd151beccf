// Command rndc-refd is a reference RNDC v1 control-channel server: a
// worked example of the server-side deployment the session core
// supports (spec.md §1, §2), wired with configuration, Prometheus
// metrics, and structured logging the way a production daemon in this
// corpus would be.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/b1-systems/rndc-go/internal/config"
	rndcmetrics "github.com/b1-systems/rndc-go/internal/metrics"
	"github.com/b1-systems/rndc-go/internal/server"
	appversion "github.com/b1-systems/rndc-go/internal/version"
)

// shutdownTimeout is the maximum time to wait for the metrics HTTP
// server to drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logger := newLogger(cfg.Log)
	logger.Info("rndc-refd starting",
		slog.String("version", appversion.Version),
		slog.String("addr", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))),
		slog.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	reg := prometheus.NewRegistry()
	collector := rndcmetrics.NewCollector(reg)

	srv := server.New(server.Config{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Key:     cfg.Server.Key,
		Handler: demoHandler,
		Logger:  logger,
		Metrics: collector,
	})

	if err := runServers(cfg, srv, reg, logger); err != nil {
		logger.Error("rndc-refd exited with error", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("rndc-refd stopped")
	return 0
}

// demoHandler is the reference server's CommandHandler: it understands
// exactly the two commands spec.md §1 names as examples and reports
// everything else as an error, matching the core's stance that command
// semantics are opaque to it.
func demoHandler(command string) (text string, isErr bool) {
	switch command {
	case "status":
		return "server is up and running", false
	case "reload":
		return "reload queued", false
	default:
		return fmt.Sprintf("unknown command %q", command), true
	}
}

// runServers runs the RNDC listener and the metrics HTTP server under an
// errgroup with signal-aware cancellation, returning when either exits
// or the process receives SIGINT/SIGTERM.
func runServers(cfg *config.Config, srv *server.Server, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx)
	})

	if cfg.Server.MetricsAddr != "" {
		metricsSrv := newMetricsServer(cfg.Server.MetricsAddr, reg)
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("addr", cfg.Server.MetricsAddr))
			return listenAndServe(gctx, metricsSrv, cfg.Server.MetricsAddr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// newMetricsServer builds the /metrics HTTP server for reg.
func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

// listenAndServe runs srv until ctx is canceled, then shuts it down
// gracefully within shutdownTimeout.
func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown %s: %w", addr, err)
		}
		return nil
	}
}

// newLogger builds the process-wide structured logger from LogConfig.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level := config.ParseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
