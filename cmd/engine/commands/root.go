package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"statement_engine/pkg/core/config"
	"statement_engine/pkg/core/logger"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Financial statement extraction and verification",
	Long: `Statement engine CLI

Resolves tagged filing facts into standardized statements, verifies the
accounting equations and computes ratios, growth and free cash flow.

Examples:
  engine analyze --input filing.json
  engine analyze --input 10k.htm --format ixbrl
  engine analyze --input bs.md --format markdown --table-type balance_sheet
  engine verify --input filing.json
  engine rules --file rules.yaml
  engine cache clear`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (a .env file is also read)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")
}

// loadConfig reads the config and builds the CLI logger. The CLI is quiet
// unless --verbose is set since stdout carries the report.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadWithEnv(configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if !verbose {
		return cfg, zerolog.Nop(), nil
	}
	return cfg, logger.New("debug", "console"), nil
}
