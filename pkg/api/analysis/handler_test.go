package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/pipeline"
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/core/store"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

const factBagJSON = `{
  "entity": "Example Corp",
  "currency": "USD",
  "facts": [
    {"concept_tag": "us-gaap:Assets", "value": "1000", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total assets"},
    {"concept_tag": "us-gaap:Liabilities", "value": "600", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total liabilities"},
    {"concept_tag": "us-gaap:StockholdersEquity", "value": "400", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total equity"},
    {"concept_tag": "us-gaap:Revenues", "value": "2000", "period_date": "2024-12-31", "period_type": "duration", "unit": "USD", "hierarchy_level": 1, "label": "Revenues"},
  ]
}`

const balanceSheetMD = "BALANCE SHEET (In thousands)\n" +
	"\n" +
	"| | Dec 31, 2024 | Dec 31, 2023 |\n" +
	"|---|---|---|\n" +
	"| Cash | 120 | 100 |\n" +
	"| Total assets | 1,000 | 900 |\n" +
	"| Total liabilities | 600 | 550 |\n" +
	"| Total stockholders' equity | 400 | 350 |\n"

type fixture struct {
	handler *Handler
	vault   *store.ReportVault
	router  *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	vault := store.NewReportVault(nil, t.TempDir(), log)
	orch := pipeline.NewOrchestrator(
		rules.Default(),
		validate.NewVerifier(validate.DefaultBalanceTolerancePct, validate.DefaultCashFlowTolerancePct),
		log,
		pipeline.WithVault(vault),
	)
	h := NewHandler(orch, vault, log, 1<<20)

	r := mux.NewRouter()
	r.HandleFunc("/api/analysis", h.HandleFactBag).Methods(http.MethodPost)
	r.HandleFunc("/api/analysis", h.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/api/analysis/ixbrl", h.HandleIXBRL).Methods(http.MethodPost)
	r.HandleFunc("/api/analysis/markdown", h.HandleMarkdown).Methods(http.MethodPost)
	r.HandleFunc("/api/analysis/{id}", h.HandleGet).Methods(http.MethodGet)
	return &fixture{handler: h, vault: vault, router: r}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeReport(t *testing.T, rr *httptest.ResponseRecorder) pipeline.Report {
	t.Helper()
	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	return rep
}

func TestHandleFactBag(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis", factBagJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rep := decodeReport(t, rr)
	assert.Equal(t, pipeline.StatusComplete, rep.Status)
	assert.Equal(t, "Example Corp", rep.Entity)
	require.NotNil(t, rep.BalanceSheetCheck)
	assert.True(t, rep.BalanceSheetCheck.Passed)
	assert.NotEmpty(t, rep.ID)

	// the stored copy is served back verbatim
	got := f.do(http.MethodGet, "/api/analysis/"+rep.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, rep.ID, decodeReport(t, got).ID)
}

func TestHandleFactBag_EmptyBag(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis", `{"entity": "Empty Co", "facts": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rep := decodeReport(t, rr)
	assert.Equal(t, pipeline.StatusNoData, rep.Status)
	assert.NotEmpty(t, rep.Reason)
}

func TestHandleFactBag_BadInput(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPost, "/api/analysis", "<<<not json>>>")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleFactBag_BodyTooLarge(t *testing.T) {
	f := newFixture(t)
	f.handler.maxBody = 16

	rr := f.do(http.MethodPost, "/api/analysis", factBagJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandleMarkdown(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis/markdown?table_type=balance_sheet&entity=Table+Co", balanceSheetMD)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rep := decodeReport(t, rr)
	assert.Equal(t, "Table Co", rep.Entity)
	require.NotNil(t, rep.BalanceSheetCheck)
	assert.True(t, rep.BalanceSheetCheck.Passed)

	assets := rep.Statements.Current(rules.TotalAssets)
	v, ok := assets.Value.Decimal()
	require.True(t, ok)
	assert.Equal(t, "1000000", v.String())
	assert.Equal(t, models.TierKeywordFallback, assets.Tier)
}

func TestHandleMarkdown_BadTableType(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis/markdown?table_type=ledger", balanceSheetMD)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "table_type")
}

func TestHandleIXBRL_NoFacts(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/analysis/ixbrl", "<html><body><p>nothing tagged</p></body></html>")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleGet_NotFound(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/analysis/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleList(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/analysis", factBagJSON).Code)
	require.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/api/analysis", `{"facts": []}`).Code)

	rr := f.do(http.MethodGet, "/api/analysis?limit=10", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var list []Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)

	statuses := []string{list[0].Status, list[1].Status}
	assert.ElementsMatch(t, []string{string(pipeline.StatusComplete), string(pipeline.StatusNoData)}, statuses)
}

func TestHandleList_NoStorage(t *testing.T) {
	h := NewHandler(stubRunner{}, nil, zerolog.Nop(), 0)

	rr := httptest.NewRecorder()
	h.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

type stubRunner struct{ err error }

func (s stubRunner) Run(context.Context, models.FactBag) (*pipeline.Report, error) {
	return nil, s.err
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(stubRunner{err: tc.err}, nil, zerolog.Nop(), 0)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewBufferString(factBagJSON))
			h.HandleFactBag(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}
