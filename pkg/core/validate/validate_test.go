package validate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// FY2024 balance sheet of a large hardware issuer (USD millions)
// =============================================================================

var fy2024 = models.NewDate(2024, time.September, 28)

var balanceConcepts = rules.Default().Concepts()[:12]

func balanceSheet(values map[string]int64) *models.FinancialStatement {
	items := make(map[string]models.LineItem, len(values))
	for c, v := range values {
		items[c] = models.LineItem{Concept: c, Value: models.KnownInt(v), Tier: models.TierDirectMatch}
	}
	return models.NewFinancialStatement(models.BalanceSheet, fy2024, models.Date{}, false, balanceConcepts, items, nil)
}

func newVerifier() *Verifier {
	return NewVerifier(DefaultBalanceTolerancePct, DefaultCashFlowTolerancePct)
}

func TestVerifyBalanceSheet_ExactlyBalanced(t *testing.T) {
	res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets:      364980,
		rules.TotalLiabilities: 308030,
		rules.TotalEquity:      56950,
	}))

	assert.True(t, res.Passed)
	assert.Equal(t, ConfidencePrimary, res.Confidence)
	pct, ok := res.DifferencePct.Decimal()
	require.True(t, ok)
	assert.True(t, pct.LessThan(decimal.RequireFromString("0.1")))
	assert.Empty(t, res.Reason)
	assert.Nil(t, res.Secondary)
}

func TestVerifyBalanceSheet_WithinAndBeyondTolerance(t *testing.T) {
	cases := []struct {
		name   string
		equity int64
		passed bool
	}{
		{"rounding noise", 56_950 + 300, true},       // 0.082%
		{"material mismatch", 56_950 + 1_000, false}, // 0.274%
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
				rules.TotalAssets:      364_980,
				rules.TotalLiabilities: 308_030,
				rules.TotalEquity:      tc.equity,
			}))
			assert.Equal(t, tc.passed, res.Passed)
			assert.True(t, res.Difference.IsKnown())
			if !tc.passed {
				assert.Contains(t, res.Reason, "exceeds tolerance")
			}
		})
	}
}

func TestVerifyBalanceSheet_TwoTotalsMissing(t *testing.T) {
	res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets: 364_980,
	}))

	assert.False(t, res.Passed)
	assert.Equal(t, "insufficient data", res.Reason)
	assert.Nil(t, res.Secondary)
	assert.False(t, res.DifferencePct.IsKnown())
}

func TestVerifyBalanceSheet_SecondaryCheck(t *testing.T) {
	t.Run("missing equity corroborated by L&E", func(t *testing.T) {
		res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
			rules.TotalAssets:               364_980,
			rules.TotalLiabilities:          308_030,
			rules.TotalLiabilitiesAndEquity: 364_980,
		}))
		assert.False(t, res.Passed)
		assert.Equal(t, "unresolved total: TotalEquity", res.Reason)

		require.NotNil(t, res.Secondary)
		sec := res.Secondary
		assert.Equal(t, ConfidenceSecondary, sec.Confidence)
		assert.True(t, sec.Passed)
		assert.Equal(t, rules.TotalEquity, sec.DerivedConcept)
		require.NotNil(t, sec.DerivedValue)
		assert.True(t, sec.DerivedValue.Equal(models.KnownInt(56_950)))
	})

	t.Run("missing assets compares L&E with L+E", func(t *testing.T) {
		res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
			rules.TotalLiabilities:          308_030,
			rules.TotalEquity:               56_950,
			rules.TotalLiabilitiesAndEquity: 364_980,
		}))
		require.NotNil(t, res.Secondary)
		assert.True(t, res.Secondary.Passed)
		assert.True(t, res.Secondary.DerivedValue.Equal(models.KnownInt(364_980)))
	})

	t.Run("no L&E to corroborate", func(t *testing.T) {
		res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
			rules.TotalAssets: 364_980,
			rules.TotalEquity: 56_950,
		}))
		require.NotNil(t, res.Secondary)
		assert.False(t, res.Secondary.Passed)
		assert.Equal(t, "insufficient data for secondary check", res.Secondary.Reason)
		assert.True(t, res.Secondary.DerivedValue.Equal(models.KnownInt(308_030)))
	})
}

func TestVerifyBalanceSheet_ZeroAssets(t *testing.T) {
	res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets:      0,
		rules.TotalLiabilities: 0,
		rules.TotalEquity:      0,
	}))
	assert.False(t, res.Passed)
	assert.False(t, res.DifferencePct.IsKnown())
}

func TestVerifyBalanceSheet_NilStatement(t *testing.T) {
	res := newVerifier().VerifyBalanceSheet(nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "insufficient data", res.Reason)
}

func TestNewVerifier_NegativeFallsBackToDefaults(t *testing.T) {
	v := NewVerifier(decimal.NewFromInt(-1), decimal.NewFromInt(-1))
	assert.True(t, v.BalanceTolerancePct().Equal(DefaultBalanceTolerancePct))
	assert.True(t, v.cashFlowTol.Equal(DefaultCashFlowTolerancePct))
}

func TestNewVerifier_ZeroToleranceIsExact(t *testing.T) {
	v := NewVerifier(decimal.Zero, decimal.Zero)
	assert.True(t, v.BalanceTolerancePct().IsZero())

	exact := v.VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets:      1000,
		rules.TotalLiabilities: 600,
		rules.TotalEquity:      400,
	}))
	assert.True(t, exact.Passed)

	off := v.VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets:      1000,
		rules.TotalLiabilities: 600,
		rules.TotalEquity:      399,
	}))
	assert.False(t, off.Passed)
}

func TestVerifier_Fingerprint(t *testing.T) {
	strict := NewVerifier(decimal.RequireFromString("0.1"), DefaultCashFlowTolerancePct)
	loose := NewVerifier(decimal.RequireFromString("1.0"), DefaultCashFlowTolerancePct)
	assert.NotEqual(t, strict.Fingerprint(), loose.Fingerprint())
	assert.Equal(t, strict.Fingerprint(), NewVerifier(decimal.RequireFromString("0.1"), DefaultCashFlowTolerancePct).Fingerprint())
}

func TestVerificationResult_JSON(t *testing.T) {
	res := newVerifier().VerifyBalanceSheet(balanceSheet(map[string]int64{
		rules.TotalAssets:      100,
		rules.TotalLiabilities: 60,
		rules.TotalEquity:      40,
	}))
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"passed":true`)
	assert.Contains(t, string(b), `"confidence":"primary"`)
	assert.NotContains(t, string(b), `"secondary"`)
}
