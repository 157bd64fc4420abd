// Package rules serves the concept resolution table.
package rules

import (
	"net/http"

	"statement_engine/pkg/api/respond"
	corerules "statement_engine/pkg/core/rules"
)

// Handler exposes the active rule table.
type Handler struct {
	rules *corerules.RuleSet
}

// NewHandler creates a new rules handler
func NewHandler(rs *corerules.RuleSet) *Handler {
	return &Handler{rules: rs}
}

// HandleRules returns the full table.
// GET /api/rules
func (h *Handler) HandleRules(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.rules)
}
