package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Factor evaluation and admission",
	Long: `Factor evaluation and admission service.

Computes candidate factors over a price panel, evaluates them across
forward-return horizons (rank IC, quantile buckets, turnover, monotonicity)
and admits the ones that pass the profile thresholds into the factor library.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant evaluate mom_20
  go run ./cmd/quant batch
  go run ./cmd/quant library list
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "evaluation profile YAML (default $EVAL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
