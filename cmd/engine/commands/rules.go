package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"statement_engine/pkg/core/app"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the concept resolution table",
	Long: `Prints the active rule table as JSON. With --file the file is loaded
and validated first, so this doubles as a linter for custom tables.

Example:
  engine rules
  engine rules --file rules.yaml`,
	RunE: runRules,
}

var rulesFile string

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVar(&rulesFile, "file", "", "rule table to load (YAML or JSON)")
}

func runRules(cmd *cobra.Command, _ []string) error {
	path := rulesFile
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Engine.RulesFile
	}

	rs, err := app.LoadRules(path)
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), rs); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return nil
}
