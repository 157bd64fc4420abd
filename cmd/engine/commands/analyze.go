package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"statement_engine/pkg/core/app"
	"statement_engine/pkg/core/ingest"
	"statement_engine/pkg/core/pipeline"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the full report for one filing",
	Long: `Reads a FactBag (JSON), an inline XBRL document or a markdown table,
runs resolution, verification and every calculator, and prints the report.

Example:
  engine analyze --input filing.json
  engine analyze --input - --format ixbrl < 10k.htm
  engine analyze --input bs.md --format markdown --table-type balance_sheet --summary`,
	RunE: runAnalyze,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the accounting equations and exit non-zero on failure",
	Long: `Runs the same pipeline as analyze but prints only the equation checks.
Exits with an error when the balance sheet does not balance.

Example:
  engine verify --input filing.json`,
	RunE: runVerify,
}

type inputFlags struct {
	path      string
	format    string
	tableType string
	currency  string
	entity    string
}

var (
	analyzeInput inputFlags
	verifyInput  inputFlags
	summary      bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(verifyCmd)

	bindInputFlags(analyzeCmd, &analyzeInput)
	analyzeCmd.Flags().BoolVar(&summary, "summary", false, "print a text summary instead of JSON")

	bindInputFlags(verifyCmd, &verifyInput)
}

func bindInputFlags(cmd *cobra.Command, f *inputFlags) {
	cmd.Flags().StringVarP(&f.path, "input", "i", "-", "input file, - for stdin")
	cmd.Flags().StringVarP(&f.format, "format", "f", "json", "input format (json|ixbrl|markdown)")
	cmd.Flags().StringVar(&f.tableType, "table-type", "", "markdown table type (balance_sheet|income_statement|cash_flow)")
	cmd.Flags().StringVar(&f.currency, "currency", "", "currency when the input does not state one")
	cmd.Flags().StringVar(&f.entity, "entity", "", "override the entity name")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	rep, err := runPipeline(cmd, analyzeInput)
	if err != nil {
		return err
	}
	if summary {
		return writeSummary(cmd.OutOrStdout(), rep)
	}
	return writeJSON(cmd.OutOrStdout(), rep)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	rep, err := runPipeline(cmd, verifyInput)
	if err != nil {
		return err
	}
	if rep.Status == pipeline.StatusNoData {
		return fmt.Errorf("no usable facts: %s", rep.Reason)
	}

	checks := []*validate.VerificationResult{rep.BalanceSheetCheck, rep.CashFlowCheck, rep.CashLinkageCheck}
	if err := writeJSON(cmd.OutOrStdout(), checks); err != nil {
		return err
	}
	if !rep.BalanceSheetCheck.Passed {
		return fmt.Errorf("balance sheet check failed: %s", checkDetail(rep.BalanceSheetCheck))
	}
	return nil
}

func runPipeline(cmd *cobra.Command, in inputFlags) (*pipeline.Report, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	format, err := ingest.ParseFormat(in.format)
	if err != nil {
		return nil, err
	}
	tableType := models.StatementType(in.tableType)
	if tableType != "" && !tableType.Valid() {
		return nil, fmt.Errorf("unknown table type %q", in.tableType)
	}

	data, err := readInput(cmd.InOrStdin(), in.path)
	if err != nil {
		return nil, err
	}
	bag, err := ingest.Decode(data, format, ingest.Options{
		Entity:    in.entity,
		Currency:  in.currency,
		TableType: tableType,
	})
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.Orchestrator.Run(ctx, bag)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkDetail(r *validate.VerificationResult) string {
	if r == nil {
		return "not run"
	}
	if r.Reason != "" {
		return r.Reason
	}
	return fmt.Sprintf("%s vs %s (diff %s%%)", r.LHS, r.RHS, r.DifferencePct)
}

func passFail(r *validate.VerificationResult) string {
	if r != nil && r.Passed {
		return "PASS"
	}
	return "FAIL"
}

func writeSummary(w io.Writer, rep *pipeline.Report) error {
	fmt.Fprintf(w, "Entity:   %s\n", rep.Entity)
	fmt.Fprintf(w, "Report:   %s (%s)\n", rep.ID, rep.Status)
	fmt.Fprintf(w, "Rules:    %s\n", rep.RulesVersion)
	if rep.Status == pipeline.StatusNoData {
		fmt.Fprintf(w, "Reason:   %s\n", rep.Reason)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCHECK\tRESULT\tDETAIL")
	for _, c := range []*validate.VerificationResult{rep.BalanceSheetCheck, rep.CashFlowCheck, rep.CashLinkageCheck} {
		if c == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.EquationName, passFail(c), checkDetail(c))
	}

	fmt.Fprintln(tw, "\nRATIO\tVALUE\tUNIT")
	for _, g := range rep.Ratios {
		for _, r := range g.Ratios {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Value, r.Unit)
		}
	}

	fmt.Fprintln(tw, "\nGROWTH\tCURRENT\tPRIOR\tCHANGE %")
	for _, g := range rep.Growth {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Concept, g.Current, g.Prior, g.GrowthPct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if rep.FCF != nil {
		fmt.Fprintf(w, "\n%s\n", rep.FCF.Formula)
	}
	fmt.Fprintf(w, "\n%s inferred, %s excluded facts\n",
		humanize.Comma(int64(len(rep.ResolutionNotes))), humanize.Comma(int64(len(rep.Exclusions))))
	return nil
}
