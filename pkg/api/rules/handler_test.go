package rules

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corerules "statement_engine/pkg/core/rules"
)

func TestHandleRules(t *testing.T) {
	rs := corerules.Default()
	h := NewHandler(rs)

	rr := httptest.NewRecorder()
	h.HandleRules(rr, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Version  string               `json:"version"`
		Concepts []corerules.RuleView `json:"concepts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, rs.Version(), body.Version)
	assert.Len(t, body.Concepts, len(rs.Describe()))
}
