package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/edgar"
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

const filing = `<html><body>
<div style="display:none">
<ix:header><ix:resources>
  <xbrli:context id="FY24"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000000001</xbrli:identifier></xbrli:entity>
    <xbrli:period><xbrli:startDate>2024-01-01</xbrli:startDate><xbrli:endDate>2024-12-31</xbrli:endDate></xbrli:period></xbrli:context>
  <xbrli:context id="I24"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000000001</xbrli:identifier></xbrli:entity>
    <xbrli:period><xbrli:instant>2024-12-31</xbrli:instant></xbrli:period></xbrli:context>
  <xbrli:context id="FY24_Americas"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000000001</xbrli:identifier>
    <xbrli:segment><xbrldi:explicitMember dimension="us-gaap:StatementBusinessSegmentsAxis">ex:AmericasSegmentMember</xbrldi:explicitMember></xbrli:segment></xbrli:entity>
    <xbrli:period><xbrli:startDate>2024-01-01</xbrli:startDate><xbrli:endDate>2024-12-31</xbrli:endDate></xbrli:period></xbrli:context>
  <xbrli:context id="FY24_Europe"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000000001</xbrli:identifier>
    <xbrli:segment><xbrldi:explicitMember dimension="us-gaap:StatementBusinessSegmentsAxis">ex:EuropeSegmentMember</xbrldi:explicitMember></xbrli:segment></xbrli:entity>
    <xbrli:period><xbrli:startDate>2024-01-01</xbrli:startDate><xbrli:endDate>2024-12-31</xbrli:endDate></xbrli:period></xbrli:context>
  <xbrli:unit id="usd"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
  <xbrli:unit id="usdPerShare"><xbrli:divide>
    <xbrli:unitNumerator><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unitNumerator>
    <xbrli:unitDenominator><xbrli:measure>xbrli:shares</xbrli:measure></xbrli:unitDenominator>
  </xbrli:divide></xbrli:unit>
</ix:resources></ix:header>
</div>
<p>Registrant: <ix:nonNumeric name="dei:EntityRegistrantName" contextRef="FY24">Example Corp</ix:nonNumeric></p>
<table>
  <tr><td>Total net sales</td><td>$</td><td><ix:nonFraction name="us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax" contextRef="FY24" unitRef="usd" decimals="-6" scale="6" format="ixt:num-dot-decimal">391,035</ix:nonFraction></td></tr>
  <tr><td>Research and development</td><td><ix:nonFraction name="us-gaap:ResearchAndDevelopmentExpense" contextRef="FY24" unitRef="usd" scale="6">31,370</ix:nonFraction></td></tr>
  <tr><td>Other income/(expense), net</td><td><ix:nonFraction name="us-gaap:NonoperatingIncomeExpense" contextRef="FY24" unitRef="usd" scale="6" sign="-">269</ix:nonFraction></td></tr>
  <tr><td>Restructuring</td><td><ix:nonFraction name="us-gaap:RestructuringCharges" contextRef="FY24" unitRef="usd" format="ixt:fixed-zero">—</ix:nonFraction></td></tr>
  <tr><td>Diluted</td><td><ix:nonFraction name="us-gaap:EarningsPerShareDiluted" contextRef="FY24" unitRef="usdPerShare">6.08</ix:nonFraction></td></tr>
  <tr><td>Total assets</td><td><ix:nonFraction name="us-gaap:Assets" contextRef="I24" unitRef="usd" scale="6">364,980</ix:nonFraction></td></tr>
  <tr><td>Total assets</td><td><ix:nonFraction name="us-gaap:Assets" contextRef="I24" unitRef="usd" scale="6">364,980</ix:nonFraction></td></tr>
  <tr><td>Orphan</td><td><ix:nonFraction name="us-gaap:Goodwill" contextRef="missing" unitRef="usd">5</ix:nonFraction></td></tr>
</table>
<table>
  <tr><td>Americas</td><td><ix:nonFraction name="us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax" contextRef="FY24_Americas" unitRef="usd" scale="6">167,045</ix:nonFraction></td></tr>
  <tr><td>Europe</td><td><ix:nonFraction name="us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax" contextRef="FY24_Europe" unitRef="usd" scale="6">101,328</ix:nonFraction></td></tr>
</table>
</body></html>`

func factByTag(t *testing.T, bag models.FactBag, tag, labelPrefix string) models.TaggedFact {
	t.Helper()
	for _, f := range bag.Facts {
		if f.ConceptTag == tag && strings.HasPrefix(f.Label, labelPrefix) {
			return f
		}
	}
	t.Fatalf("fact %s (%s) not found", tag, labelPrefix)
	return models.TaggedFact{}
}

func TestParseInlineXBRL(t *testing.T) {
	bag, err := ParseInlineXBRL([]byte(filing))
	require.NoError(t, err)

	assert.Equal(t, "Example Corp", bag.Entity)
	// duplicate Assets tag collapses
	assert.Len(t, bag.Facts, 9)

	rev := factByTag(t, bag, "us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax", "Total")
	assert.True(t, rev.Value.Equal(decimal.NewFromInt(391_035_000_000)), rev.Value.String())
	assert.Equal(t, models.PeriodDuration, rev.PeriodType)
	assert.Equal(t, models.NewDate(2024, time.December, 31), rev.PeriodDate)
	assert.Equal(t, models.NewDate(2024, time.January, 1), rev.PeriodStart)
	assert.Equal(t, "USD", rev.Unit)
	assert.Equal(t, 1, rev.HierarchyLevel)

	other := factByTag(t, bag, "us-gaap:NonoperatingIncomeExpense", "")
	assert.True(t, other.Value.Equal(decimal.NewFromInt(-269_000_000)))
	assert.Equal(t, 2, other.HierarchyLevel)

	assert.True(t, factByTag(t, bag, "us-gaap:RestructuringCharges", "").Value.IsZero())
	assert.Equal(t, "USD/SHARES", factByTag(t, bag, "us-gaap:EarningsPerShareDiluted", "").Unit)

	assets := factByTag(t, bag, "us-gaap:Assets", "")
	assert.Equal(t, models.PeriodInstant, assets.PeriodType)
	assert.True(t, assets.PeriodStart.IsZero(), "instants carry no start")

	orphan := factByTag(t, bag, "us-gaap:Goodwill", "")
	assert.True(t, orphan.PeriodDate.IsZero())

	seg := factByTag(t, bag, "us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax", "Europe")
	assert.Equal(t, DimensionalLevel, seg.HierarchyLevel)
	assert.Equal(t, "Europe segment Revenue From Contract With Customer Excluding Assessed Tax", seg.Label)
}

func TestParseInlineXBRL_SegmentsStayOutOfDirectMatch(t *testing.T) {
	bag, err := ParseInlineXBRL([]byte(filing))
	require.NoError(t, err)

	stmts, _, err := edgar.NewAssembler(rules.Default(), zerolog.Nop()).Assemble(bag)
	require.NoError(t, err)

	rev := stmts.Current(rules.Revenues)
	assert.Equal(t, models.TierDirectMatch, rev.Tier)
	d, ok := rev.Value.Decimal()
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(391_035_000_000)), d.String())
}

func TestParseInlineXBRL_NoFacts(t *testing.T) {
	_, err := ParseInlineXBRL([]byte("<html><body><p>nothing tagged</p></body></html>"))
	assert.ErrorIs(t, err, ErrNoInlineFacts)
}
