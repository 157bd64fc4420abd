package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/pipeline"
)

const balancedBag = `{
  "entity": "CLI Corp",
  "facts": [
    {"concept_tag": "us-gaap:Assets", "value": "1000", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total assets"},
    {"concept_tag": "us-gaap:Liabilities", "value": "600", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total liabilities"},
    {"concept_tag": "us-gaap:StockholdersEquity", "value": "400", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total equity"}
  ]
}`

const unbalancedBag = `{
  "entity": "Off Corp",
  "facts": [
    {"concept_tag": "us-gaap:Assets", "value": "1000", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total assets"},
    {"concept_tag": "us-gaap:Liabilities", "value": "500", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total liabilities"},
    {"concept_tag": "us-gaap:StockholdersEquity", "value": "400", "period_date": "2024-12-31", "period_type": "instant", "unit": "USD", "hierarchy_level": 1, "label": "Total equity"}
  ]
}`

// run executes the root command in a scratch directory and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())

	// flag values survive between Execute calls
	analyzeInput, verifyInput, summary, rulesFile = inputFlags{}, inputFlags{}, false, ""
	for _, c := range []*inputFlags{&analyzeInput, &verifyInput} {
		c.path, c.format = "-", "json"
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	out, err := run(t, balancedBag, "analyze")
	require.NoError(t, err)

	var rep pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "CLI Corp", rep.Entity)
	assert.Equal(t, pipeline.StatusComplete, rep.Status)
	require.NotNil(t, rep.BalanceSheetCheck)
	assert.True(t, rep.BalanceSheetCheck.Passed)
}

func TestAnalyze_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bag.json")
	require.NoError(t, os.WriteFile(path, []byte(balancedBag), 0o644))

	out, err := run(t, "", "analyze", "--input", path, "--entity", "Renamed", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Entity:   Renamed")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "RATIO")
}

func TestAnalyze_BadFormat(t *testing.T) {
	_, err := run(t, balancedBag, "analyze", "--format", "pdf")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	_, err := run(t, balancedBag, "verify")
	assert.NoError(t, err)

	out, err := run(t, unbalancedBag, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance sheet check failed")
	assert.Contains(t, out, `"passed": false`)
}

func TestVerify_NoData(t *testing.T) {
	_, err := run(t, `{"facts": []}`, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable facts")
}

func TestRules(t *testing.T) {
	out, err := run(t, "", "rules")
	require.NoError(t, err)

	var body struct {
		Version  string            `json:"version"`
		Concepts []json.RawMessage `json:"concepts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.NotEmpty(t, body.Version)
	assert.NotEmpty(t, body.Concepts)
}

func TestRules_MissingFile(t *testing.T) {
	_, err := run(t, "", "rules", "--file", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestCacheClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	t.Setenv("CACHE_DIR", dir)
	t.Setenv("REDIS_ADDR", "")

	_, err := run(t, balancedBag, "analyze")
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "analyze writes through the file cache")

	out, err := run(t, "", "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCacheClear_NotConfigured(t *testing.T) {
	t.Setenv("CACHE_DIR", "")
	_, err := run(t, "", "cache", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file cache configured")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
