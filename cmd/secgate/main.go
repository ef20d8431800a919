// Package main is the entry point for the secgate binary: the request
// validation and security gateway that fronts data-mutating operations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/meritpath/secgate/internal/governance"
	"github.com/meritpath/secgate/pkg/audit"
	"github.com/meritpath/secgate/pkg/config"
	"github.com/meritpath/secgate/pkg/gateway"
	"github.com/meritpath/secgate/pkg/logging"
	"github.com/meritpath/secgate/pkg/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for secgate
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secgate",
		Short: "Request validation and security gateway",
		Long: `secgate validates and sanitizes data-mutating requests before they reach
the datastore: sliding-window rate limiting, signature-based attack scanning,
schema validation against a closed catalog, and recursive sanitization.

Example:
  secgate --config config.yaml --listen :8080`,
		RunE: runServe,
	}

	rootCmd.Flags().StringP("config", "c", defaultConfigPath, "Path to configuration file (YAML)")
	rootCmd.Flags().String("listen", "", "Address to listen on (overrides config)")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Enable pretty console logging")

	return rootCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	listenAddr, err := cmd.Flags().GetString("listen")
	if err != nil {
		return fmt.Errorf("failed to get listen flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return fmt.Errorf("failed to get pretty flag: %w", err)
	}

	provider, err := config.NewFileProvider(configPath, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize config provider: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			slog.Error("Failed to close config provider", "error", err)
		}
	}()

	cfg := provider.Current()
	if listenAddr != "" {
		cfg.Server.Address = listenAddr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if pretty {
		cfg.Logging.Pretty = true
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	slog.SetDefault(logger)

	logger.Info("Starting secgate", "config", configPath, "listen", cfg.Server.Address)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "secgate",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	limiter := governance.NewRateLimiter(governance.RateLimiterConfig{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	})

	var sink audit.Sink
	dispatcherCfg := audit.DispatcherConfig{
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}
	if cfg.Audit.Endpoint != "" {
		sink = audit.NewHTTPSink(cfg.Audit.Endpoint)
		// Remote delivery gets retries and breaker protection; the local log
		// sink cannot fail, so it keeps single-shot writes.
		dispatcherCfg.Retry = governance.DefaultRetryConfig()
	} else {
		sink = audit.NewLogSink(logger)
	}
	auditor := audit.NewDispatcher(sink, logger, dispatcherCfg)
	defer auditor.Close()

	metrics := gateway.NewMetrics()
	gw := gateway.New(gateway.Config{
		Limiter: limiter,
		Auditor: auditor,
		Logger:  logger,
		Metrics: metrics,
	})

	// Apply config updates without restart; only the limiter tunables are
	// reloadable.
	go watchConfig(provider, limiter, logger)

	// Bound the per-client window map under client-identifier churn.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go limiter.RunSweeper(sweepCtx, time.Minute)

	server, err := startServer(cfg.Server, gw, metrics, logger)
	if err != nil {
		return err
	}

	waitForShutdown(server, cfg.Server.ShutdownTimeout, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown error", "error", err)
	}

	return nil
}

func watchConfig(provider *config.FileProvider, limiter *governance.RateLimiter, logger *slog.Logger) {
	updates := provider.Subscribe()
	for cfg := range updates {
		limiter.Configure(governance.RateLimiterConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		})
		logger.Info("Rate limiter reconfigured",
			"max_requests", cfg.RateLimit.MaxRequests,
			"window", cfg.RateLimit.Window.String(),
		)
	}
}

func startServer(cfg config.ServerConfig, gw *gateway.Gateway, metrics *gateway.Metrics, logger *slog.Logger) (*http.Server, error) {
	validateHandler := gateway.NewHandler(gateway.HandlerConfig{
		Gateway: gw,
		Logger:  logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/v1/validate", otelhttp.NewHandler(validateHandler, "secgate.validate"))

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind listener on %s: %w", cfg.Address, err)
	}

	// Log the actual resolved address (useful when the address is :0)
	logger.Info("Server listening", "addr", listener.Addr().String())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	return server, nil
}

func waitForShutdown(server *http.Server, timeout time.Duration, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	logger.Info("Shutting down", "signal", sig.String())

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}
