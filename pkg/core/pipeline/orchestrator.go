// Package pipeline runs one filing end to end: rules, assembly, analysis,
// then persistence of the finished report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"statement_engine/pkg/core/analysis"
	"statement_engine/pkg/core/edgar"
	"statement_engine/pkg/core/metrics"
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/core/store"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

// DefaultTimeout bounds a single run when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// ReportStore persists finished reports. store.ReportVault implements it.
// GetByHash returns store.ErrNotFound when no report has the hash.
type ReportStore interface {
	Save(ctx context.Context, rec *store.ReportRecord) error
	GetByHash(ctx context.Context, hash string) (*store.ReportRecord, error)
}

// Orchestrator manages the end-to-end data flow:
// FactBag -> Assembler -> analysis.Engine -> Report -> cache / vault.
type Orchestrator struct {
	rules     *rules.RuleSet
	verifier  *validate.Verifier
	assembler *edgar.Assembler
	engine    *analysis.Engine
	log       zerolog.Logger

	timeout  time.Duration
	cache    store.ResultCache
	cacheTTL time.Duration
	vault    ReportStore
	metrics  *metrics.Recorder

	now   func() time.Time
	newID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each run; non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCache serves repeated inputs from c.
func WithCache(c store.ResultCache, ttl time.Duration) Option {
	return func(o *Orchestrator) { o.cache, o.cacheTTL = c, ttl }
}

// WithVault saves every finished report to v and reuses a stored report
// when the same input is run again.
func WithVault(v ReportStore) Option {
	return func(o *Orchestrator) { o.vault = v }
}

// WithMetrics records run outcomes on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now and the report ID generator (tests).
func WithClock(now func() time.Time, newID func() string) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if newID != nil {
			o.newID = newID
		}
	}
}

// NewOrchestrator binds a pipeline to one immutable rule table.
func NewOrchestrator(rs *rules.RuleSet, verifier *validate.Verifier, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rules:     rs,
		verifier:  verifier,
		assembler: edgar.NewAssembler(rs, log),
		engine:    analysis.NewEngine(verifier, log),
		log:       log,
		timeout:   DefaultTimeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RulesVersion is the version recorded on every report.
func (o *Orchestrator) RulesVersion() string { return o.rules.Version() }

// Run produces the report for one filing. An empty or unusable bag is not
// an error: the report says so with status no_data. Errors are returned
// only for cancellation, timeout and encoding failures.
func (o *Orchestrator) Run(ctx context.Context, bag models.FactBag) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	start := o.now()

	hash, err := o.contentHash(bag)
	if err != nil {
		return nil, err
	}
	if rep, ok := o.cached(ctx, hash); ok {
		return rep, nil
	}
	if rep, ok := o.stored(ctx, hash); ok {
		return rep, nil
	}

	rep := &Report{
		ID:              o.newID(),
		Entity:          bag.Entity,
		RulesVersion:    o.rules.Version(),
		ContentHash:     hash,
		GeneratedAt:     start.UTC(),
		ResolutionNotes: []ResolutionNote{},
		Exclusions:      []edgar.Exclusion{},
	}

	stmts, excluded, err := o.assembler.Assemble(bag)
	o.metrics.RecordLatency("assemble", o.now().Sub(start).Seconds())
	switch {
	case errors.Is(err, edgar.ErrEmptyFactBag), errors.Is(err, edgar.ErrMalformedFactBag):
		rep.Status = StatusNoData
		rep.Reason = err.Error()
		o.log.Warn().Str("entity", bag.Entity).Str("reason", rep.Reason).Msg("no usable facts")
		o.finish(ctx, rep)
		return rep, nil
	case err != nil:
		return nil, fmt.Errorf("assemble statements: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analyzeStart := o.now()
	res, err := o.engine.Analyze(ctx, stmts)
	if err != nil {
		return nil, err
	}
	o.metrics.RecordLatency("analyze", o.now().Sub(analyzeStart).Seconds())

	rep.Status = StatusComplete
	rep.Statements = stmts
	rep.BalanceSheetCheck = &res.BalanceSheetCheck
	rep.CashFlowCheck = &res.CashFlowCheck
	rep.CashLinkageCheck = &res.CashLinkageCheck
	rep.Ratios = res.Ratios
	rep.Growth = res.Growth
	rep.FCF = &res.FCF
	rep.CommonSize = res.CommonSize
	rep.ResolutionNotes = resolutionNotes(stmts)
	if excluded != nil {
		rep.Exclusions = excluded
	}

	for _, item := range stmts.Items() {
		o.metrics.RecordResolution(string(item.Tier))
	}
	o.metrics.RecordCheck(res.BalanceSheetCheck.EquationName, res.BalanceSheetCheck.Passed)
	o.metrics.RecordCheck(res.CashFlowCheck.EquationName, res.CashFlowCheck.Passed)

	o.log.Info().
		Str("id", rep.ID).
		Str("entity", rep.Entity).
		Bool("balanced", res.BalanceSheetCheck.Passed).
		Int("inferred", len(rep.ResolutionNotes)).
		Int("excluded", len(rep.Exclusions)).
		Dur("elapsed", o.now().Sub(start)).
		Msg("report generated")

	o.finish(ctx, rep)
	return rep, nil
}

// contentHash identifies the input, rule table and verifier tolerances a
// report was computed from.
func (o *Orchestrator) contentHash(bag models.FactBag) (string, error) {
	data, err := json.Marshal(bag)
	if err != nil {
		return "", fmt.Errorf("encode fact bag: %w", err)
	}
	return store.ContentHash(data, []byte(o.rules.Version()), []byte(o.verifier.Fingerprint())), nil
}

func (o *Orchestrator) cached(ctx context.Context, hash string) (*Report, bool) {
	if o.cache == nil {
		return nil, false
	}
	data, err := o.cache.Get(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			o.log.Warn().Err(err).Msg("result cache unavailable")
		}
		o.metrics.RecordCacheLookup(false)
		return nil, false
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		o.log.Warn().Err(err).Str("hash", hash).Msg("discarding undecodable cached report")
		o.metrics.RecordCacheLookup(false)
		return nil, false
	}
	o.metrics.RecordCacheLookup(true)
	o.log.Debug().Str("id", rep.ID).Msg("served report from cache")
	return &rep, true
}

// stored returns a report the vault already holds for hash, refilling the
// cache with it.
func (o *Orchestrator) stored(ctx context.Context, hash string) (*Report, bool) {
	if o.vault == nil {
		return nil, false
	}
	rec, err := o.vault.GetByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			o.log.Warn().Err(err).Msg("report vault lookup failed")
		}
		return nil, false
	}

	var rep Report
	if err := json.Unmarshal(rec.Report, &rep); err != nil {
		o.log.Warn().Err(err).Str("id", rec.ID).Msg("discarding undecodable stored report")
		return nil, false
	}
	if o.cache != nil {
		if err := o.cache.Set(ctx, hash, rec.Report, o.cacheTTL); err != nil {
			o.log.Warn().Err(err).Str("id", rep.ID).Msg("failed to cache report")
		}
	}
	o.log.Debug().Str("id", rep.ID).Msg("served report from vault")
	return &rep, true
}

// finish records and persists a report. Persistence failures are logged;
// the computed report is still returned to the caller.
func (o *Orchestrator) finish(ctx context.Context, rep *Report) {
	o.metrics.RecordReport(string(rep.Status))
	if o.cache == nil && o.vault == nil {
		return
	}

	data, err := json.Marshal(rep)
	if err != nil {
		o.log.Error().Err(err).Str("id", rep.ID).Msg("failed to encode report")
		return
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, rep.ContentHash, data, o.cacheTTL); err != nil {
			o.log.Warn().Err(err).Str("id", rep.ID).Msg("failed to cache report")
		}
	}
	if o.vault != nil {
		rec := &store.ReportRecord{
			ID:           rep.ID,
			Entity:       rep.Entity,
			RulesVersion: rep.RulesVersion,
			ContentHash:  rep.ContentHash,
			Status:       string(rep.Status),
			GeneratedAt:  rep.GeneratedAt,
			Report:       data,
		}
		if err := o.vault.Save(ctx, rec); err != nil {
			o.log.Warn().Err(err).Str("id", rep.ID).Msg("failed to store report")
		}
	}
}
