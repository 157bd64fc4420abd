// Package app assembles an Orchestrator and its collaborators from a Config.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/config"
	"statement_engine/pkg/core/metrics"
	"statement_engine/pkg/core/pipeline"
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/core/store"
	"statement_engine/pkg/core/validate"
)

// App is a fully wired engine.
type App struct {
	Rules        *rules.RuleSet
	Orchestrator *pipeline.Orchestrator
	Vault        *store.ReportVault
	FileCache    *store.FileCache
	Metrics      *metrics.Recorder

	closers []func()
}

// Build wires the engine. Postgres and Redis are optional: an empty URL or
// address leaves them out, and a failed connection falls back to the file
// vault with a warning. Without Redis the result cache lives in
// cfg.Cache.Dir when that is set. reg may be nil to skip metrics.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	// 1. Rule table
	rs, err := LoadRules(cfg.Engine.RulesFile)
	if err != nil {
		return nil, err
	}
	a.Rules = rs
	log.Info().Str("rules_version", rs.Version()).Int("concepts", len(rs.Concepts())).Msg("rule table loaded")

	// 2. Verifier
	verifier := validate.NewVerifier(
		decimal.NewFromFloat(cfg.Engine.BalanceTolerancePct),
		decimal.NewFromFloat(cfg.Engine.CashFlowTolerancePct),
	)

	opts := []pipeline.Option{pipeline.WithTimeout(cfg.Engine.PipelineTimeout)}

	// 3. Metrics
	if reg != nil {
		a.Metrics = metrics.New(reg)
		opts = append(opts, pipeline.WithMetrics(a.Metrics))
	}

	// 4. Report vault: Postgres when reachable, files otherwise
	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.Database.URL); err != nil {
			log.Warn().Err(err).Msg("database unavailable, storing reports on disk")
		} else if err := store.EnsureSchema(ctx, store.GetPool()); err != nil {
			log.Warn().Err(err).Msg("schema migration failed, storing reports on disk")
			store.Close()
		} else {
			a.closers = append(a.closers, store.Close)
			log.Info().Msg("connected to database")
		}
	}
	a.Vault = store.NewReportVault(store.GetPool(), cfg.Vault.Dir, log)
	opts = append(opts, pipeline.WithVault(a.Vault))

	// 5. Result cache: Redis when reachable, files when a dir is set
	var cache store.ResultCache
	if cfg.Redis.Addr != "" {
		c, err := store.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable")
		} else {
			a.closers = append(a.closers, func() { _ = c.Close() })
			cache = c
			log.Info().Str("addr", cfg.Redis.Addr).Msg("result cache enabled")
		}
	}
	if cache == nil && cfg.Cache.Dir != "" {
		fc, err := store.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Cache.Dir).Msg("file cache unavailable, result cache disabled")
		} else {
			a.FileCache = fc
			cache = fc
			log.Info().Str("dir", fc.Dir()).Msg("file result cache enabled")
		}
	}
	if cache != nil {
		opts = append(opts, pipeline.WithCache(cache, cfg.Redis.TTL))
	}

	a.Orchestrator = pipeline.NewOrchestrator(rs, verifier, log, opts...)
	return a, nil
}

// LoadRules returns the built-in table, or the table in path when set.
func LoadRules(path string) (*rules.RuleSet, error) {
	if path == "" {
		return rules.Default(), nil
	}
	rs, err := rules.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", path, err)
	}
	return rs, nil
}

// Close releases database and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
