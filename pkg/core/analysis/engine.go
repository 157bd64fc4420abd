package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"statement_engine/pkg/core/calc"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

// Engine runs the verifier and calculators over assembled statements.
// Statements are immutable, so every calculator reads them concurrently
// and writes only its own slot of the Result.
type Engine struct {
	verifier *validate.Verifier
	log      zerolog.Logger
}

// NewEngine creates a new instance of the engine.
func NewEngine(verifier *validate.Verifier, log zerolog.Logger) *Engine {
	return &Engine{verifier: verifier, log: log}
}

// Analyze performs the full suite of checks and calculations. It returns
// ctx.Err() if the context is done before every calculator has finished.
func (e *Engine) Analyze(ctx context.Context, stmts *models.Statements) (*Result, error) {
	if stmts == nil {
		return nil, fmt.Errorf("statements are nil")
	}

	start := time.Now()
	res := &Result{}
	g, gctx := errgroup.WithContext(ctx)

	run := func(name string, fn func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn()
			e.log.Debug().Str("calculator", name).Msg("calculator finished")
			return nil
		})
	}

	run("balance_sheet_check", func() { res.BalanceSheetCheck = e.verifier.VerifyBalanceSheet(stmts.BalanceSheet) })
	run("cash_flow_check", func() { res.CashFlowCheck = e.verifier.VerifyCashFlow(stmts.CashFlow) })
	run("cash_linkage_check", func() { res.CashLinkageCheck = e.verifier.VerifyCashLinkage(stmts) })
	run("ratios", func() { res.Ratios = calc.GroupByCategory(calc.CalculateAll(stmts)) })
	run("growth", func() { res.Growth = calc.CalculateGrowth(stmts) })
	run("fcf", func() { res.FCF = calc.CalculateFCF(stmts) })
	run("common_size", func() { res.CommonSize = calc.CommonSize(stmts) })

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	e.log.Debug().Dur("elapsed", time.Since(start)).Msg("analysis complete")
	return res, nil
}
