package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate every candidate and auto-admit the passing ones",
	Long: `Loads the profile panel once, evaluates all candidates on a bounded
worker pool and saves the admitted ones to the library. A failing
candidate is reported and does not stop the others.

Example:
  go run ./cmd/quant batch
  go run ./cmd/quant batch --only mom_20,rev_5
  go run ./cmd/quant batch --json`,
	RunE: runBatch,
}

var (
	batchOnly []string
	batchJSON bool
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVar(&batchOnly, "only", nil, "restrict to these candidates")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the report as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	names := a.service.Candidates()
	if len(batchOnly) > 0 {
		for _, n := range batchOnly {
			if _, ok := a.profile.Candidate(n); !ok {
				return fmt.Errorf("unknown candidate %q", n)
			}
		}
		names = batchOnly
	}

	panel, err := a.service.LoadPanel(ctx)
	if err != nil {
		return err
	}

	report, runErr := a.runner.Run(ctx, panel, names)
	if report == nil {
		return runErr
	}

	w := cmd.OutOrStdout()
	if batchJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printHeader(w, fmt.Sprintf("Batch admission  (profile %s)", a.profile.Meta.ProfileID))
		renderBatch(w, report)
	}
	return runErr
}
