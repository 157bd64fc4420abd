// Package analysis serves the statement analysis endpoints.
package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"statement_engine/pkg/api/respond"
	"statement_engine/pkg/core/ingest"
	"statement_engine/pkg/core/pipeline"
	"statement_engine/pkg/core/store"
	"statement_engine/pkg/models"
)

// Runner produces a report from a fact bag. pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, bag models.FactBag) (*pipeline.Report, error)
}

// ReportReader looks up stored reports. store.ReportVault implements it.
type ReportReader interface {
	Get(ctx context.Context, id string) (*store.ReportRecord, error)
	List(ctx context.Context, limit int) ([]*store.ReportRecord, error)
}

// Summary is one entry of the report listing.
type Summary struct {
	ID           string    `json:"id"`
	Entity       string    `json:"entity"`
	RulesVersion string    `json:"rules_version"`
	Status       string    `json:"status"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Handler holds dependencies for analysis endpoints
type Handler struct {
	runner  Runner
	reports ReportReader
	log     zerolog.Logger
	maxBody int64
}

// NewHandler creates a new analysis handler. reports may be nil, in which
// case the lookup endpoints answer 404.
func NewHandler(runner Runner, reports ReportReader, log zerolog.Logger, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = 32 << 20
	}
	return &Handler{runner: runner, reports: reports, log: log, maxBody: maxBody}
}

// HandleFactBag analyzes a FactBag posted as JSON.
// POST /api/analysis
func (h *Handler) HandleFactBag(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, ingest.FormatJSON)
}

// HandleIXBRL analyzes an inline XBRL document.
// POST /api/analysis/ixbrl?entity=
func (h *Handler) HandleIXBRL(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, ingest.FormatIXBRL)
}

// HandleMarkdown analyzes one statement rendered as a markdown table.
// POST /api/analysis/markdown?table_type=balance_sheet&currency=USD&entity=
func (h *Handler) HandleMarkdown(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, ingest.FormatMarkdown)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, format ingest.Format) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	q := r.URL.Query()
	tableType := models.StatementType(q.Get("table_type"))
	if tableType != "" && !tableType.Valid() {
		respond.Error(w, http.StatusBadRequest, "table_type must be balance_sheet, income_statement or cash_flow")
		return
	}
	bag, err := ingest.Decode(body, format, ingest.Options{
		Entity:    q.Get("entity"),
		Currency:  q.Get("currency"),
		TableType: tableType,
	})
	if err != nil {
		h.log.Debug().Err(err).Str("format", string(format)).Msg("rejected input")
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.runner.Run(r.Context(), bag)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	status := http.StatusOK
	if rep.Status == pipeline.StatusNoData {
		status = http.StatusUnprocessableEntity
	}
	respond.JSON(w, status, rep)
}

func (h *Handler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(w, http.StatusGatewayTimeout, "analysis timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		w.WriteHeader(499)
	default:
		h.log.Error().Err(err).Msg("analysis failed")
		respond.Error(w, http.StatusInternalServerError, "analysis failed")
	}
}

// HandleGet returns a stored report.
// GET /api/analysis/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respond.Error(w, http.StatusNotFound, "report storage not configured")
		return
	}
	id := mux.Vars(r)["id"]

	rec, err := h.reports.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("report lookup failed")
		respond.Error(w, http.StatusInternalServerError, "report lookup failed")
		return
	}

	status := http.StatusOK
	if rec.Status == string(pipeline.StatusNoData) {
		status = http.StatusUnprocessableEntity
	}
	respond.Raw(w, status, rec.Report)
}

// HandleList lists stored reports, newest first.
// GET /api/analysis?limit=20
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respond.JSON(w, http.StatusOK, []Summary{})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	recs, err := h.reports.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("report listing failed")
		respond.Error(w, http.StatusInternalServerError, "report listing failed")
		return
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summary{
			ID:           rec.ID,
			Entity:       rec.Entity,
			RulesVersion: rec.RulesVersion,
			Status:       rec.Status,
			GeneratedAt:  rec.GeneratedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}
