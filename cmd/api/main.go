package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"statement_engine/pkg/api"
	"statement_engine/pkg/api/analysis"
	"statement_engine/pkg/api/rules"
	"statement_engine/pkg/core/app"
	"statement_engine/pkg/core/config"
	"statement_engine/pkg/core/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("ENGINE_CONFIG"), "YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Load config (.env and environment override the file)
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}

	// 2. Logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// 3. Metrics registry
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// 4. Engine, vault and cache
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	a, err := app.Build(ctx, cfg, log, registerer)
	if err != nil {
		return err
	}
	defer a.Close()

	// 5. Router
	deps := api.Deps{
		Analysis:    analysis.NewHandler(a.Orchestrator, a.Vault, log, cfg.Server.MaxBodyBytes),
		Rules:       rules.NewHandler(a.Rules),
		MetricsPath: cfg.Metrics.Path,
		Log:         log,
	}
	if reg != nil {
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
