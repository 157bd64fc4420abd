package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/calc"
	"statement_engine/pkg/core/edgar"
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

func fact(tag string, pt models.PeriodType, d models.Date, v int64) models.TaggedFact {
	return models.TaggedFact{
		ConceptTag:     "us-gaap:" + tag,
		Value:          decimal.NewFromInt(v),
		PeriodDate:     d,
		PeriodType:     pt,
		Unit:           "USD",
		HierarchyLevel: 1,
		Label:          tag,
	}
}

func assembled(t *testing.T) *models.Statements {
	t.Helper()
	cur := models.NewDate(2024, time.December, 31)
	prior := models.NewDate(2023, time.December, 31)
	inst, dur := models.PeriodInstant, models.PeriodDuration

	bag := models.FactBag{Entity: "Example Corp", Facts: []models.TaggedFact{
		fact("Assets", inst, cur, 1_000), fact("Assets", inst, prior, 900),
		fact("Liabilities", inst, cur, 600), fact("Liabilities", inst, prior, 550),
		fact("StockholdersEquity", inst, cur, 400), fact("StockholdersEquity", inst, prior, 350),
		fact("Revenues", dur, cur, 2_000), fact("Revenues", dur, prior, 1_600),
		fact("NetIncomeLoss", dur, cur, 200), fact("NetIncomeLoss", dur, prior, 160),
		fact("NetCashProvidedByUsedInOperatingActivities", dur, cur, 300),
		fact("PaymentsToAcquirePropertyPlantAndEquipment", dur, cur, 50),
	}}
	stmts, _, err := edgar.NewAssembler(rules.Default(), zerolog.Nop()).Assemble(bag)
	require.NoError(t, err)
	return stmts
}

func newEngine() *Engine {
	return NewEngine(validate.NewVerifier(validate.DefaultBalanceTolerancePct, validate.DefaultCashFlowTolerancePct), zerolog.Nop())
}

func TestEngine_MatchesSequentialCalculators(t *testing.T) {
	stmts := assembled(t)

	res, err := newEngine().Analyze(context.Background(), stmts)
	require.NoError(t, err)

	assert.True(t, res.BalanceSheetCheck.Passed)
	assert.Equal(t, calc.GroupByCategory(calc.CalculateAll(stmts)), res.Ratios)
	assert.Equal(t, calc.CalculateGrowth(stmts), res.Growth)
	assert.Equal(t, calc.CalculateFCF(stmts), res.FCF)
	assert.Len(t, res.Ratios, 5)

	fcf, ok := res.FCF.FCF.Decimal()
	require.True(t, ok)
	assert.True(t, fcf.Equal(decimal.NewFromInt(250)))

	// cash flow subtotals were never tagged
	assert.False(t, res.CashFlowCheck.Passed)
	assert.Equal(t, "insufficient data", res.CashFlowCheck.Reason)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine().Analyze(ctx, assembled(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_NilStatements(t *testing.T) {
	_, err := newEngine().Analyze(context.Background(), nil)
	assert.Error(t, err)
}
