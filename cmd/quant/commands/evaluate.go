package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [factor]",
	Short: "Evaluate one candidate across horizons",
	Long: `Computes a profile candidate over the configured panel, evaluates it on
every horizon and prints the metric table and the admission checklist.

With --admit the candidate is saved to the library when it is admitted.

Example:
  go run ./cmd/quant evaluate mom_20
  go run ./cmd/quant evaluate mom_20 --horizons 1,5
  go run ./cmd/quant evaluate mom_20 --admit
  go run ./cmd/quant evaluate mom_20 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var (
	evalHorizons string
	evalAdmit    bool
	evalJSON     bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalHorizons, "horizons", "", "comma-separated horizons (default: profile horizons)")
	evaluateCmd.Flags().BoolVar(&evalAdmit, "admit", false, "save to the library when admitted")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print results as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	horizons, err := parseHorizons(evalHorizons)
	if err != nil {
		return err
	}
	if evalAdmit && len(horizons) > 0 {
		return fmt.Errorf("--admit always uses the profile horizons; drop --horizons")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	panel, err := a.service.LoadPanel(ctx)
	if err != nil {
		return err
	}

	name := args[0]
	out, err := evaluateOrAdmit(ctx, a, name, panel, horizons)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if evalJSON {
		records := make([]contracts.EvalRecord, 0, len(out.Results))
		for _, h := range evaluation.SortedHorizons(out.Results) {
			records = append(records, out.Results[h].Record(false))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"factor":   name,
			"results":  records,
			"decision": out.Decision,
		})
	}

	printHeader(w, fmt.Sprintf("Factor %s  (profile %s, %d rows, %d dates)",
		name, a.profile.Meta.ProfileID, panel.Len(), len(panel.Dates())))
	renderReport(w, out.Results)
	fmt.Fprintln(w)
	renderDecision(w, out.Decision)
	if out.Entry != nil {
		fmt.Fprintf(w, "Saved %s@%s to the library\n", out.Entry.Name, out.Entry.Version)
	}
	return nil
}

func evaluateOrAdmit(ctx context.Context, a *app, name string, panel *contracts.Panel, horizons []int) (*library.Outcome, error) {
	if evalAdmit {
		return a.service.AutoAdmit(ctx, name, panel)
	}
	return a.service.Evaluate(ctx, name, panel, horizons)
}

// parseHorizons parses "1,5,10"; empty means the profile horizons
func parseHorizons(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid horizon %q", p)
		}
		out = append(out, h)
	}
	if err := evaluation.ValidateHorizons(out); err != nil {
		return nil, err
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
