package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show profile, backends and library size",
	Long: `Prints the loaded evaluation profile, the admission thresholds, the
database and cache backends and the number of library entries.

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --profile config/evaluation.yaml`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	p := a.profile

	printHeader(w, fmt.Sprintf("Profile %s %s", p.Meta.ProfileID, p.Meta.Version))
	fmt.Fprintf(w, "  path       : %s\n", a.cfg.Eval.ProfilePath)
	fmt.Fprintf(w, "  hash       : %s\n", a.profileHash)
	fmt.Fprintf(w, "  horizons   : %v (%s returns on %s)\n", p.Evaluation.Horizons, p.Evaluation.ReturnKind, p.Evaluation.PriceField)
	fmt.Fprintf(w, "  buckets    : %d, min cross-section %d\n", p.Evaluation.BucketCount, p.Evaluation.MinCrossSection)
	fmt.Fprintf(w, "  long high  : %t\n", p.Evaluation.LongHigh)
	fmt.Fprintf(w, "  evaluators : %s\n", strings.Join(a.service.Evaluators(), ", "))
	fmt.Fprintf(w, "  candidates : %s\n", strings.Join(a.service.Candidates(), ", "))
	fmt.Fprintf(w, "  admission  : |rank_ic| >= %g, |rank_ic_ir| >= %g, turnover/h <= %g, |monotonic| >= %g\n",
		p.Admission.MinAbsRankIC, p.Admission.MinAbsRankICIR, p.Admission.MaxTurnoverPerHorizon, p.Admission.MinAbsMonotonicity)
	if p.Schedule.Enabled {
		fmt.Fprintf(w, "  schedule   : %s\n", p.Schedule.Cron)
	}

	printHeader(w, "Backends")
	fmt.Fprintf(w, "  data       : %s\n", p.Data.Source)
	if a.db == nil {
		fmt.Fprintln(w, "  database   : not configured (in-memory library)")
	} else {
		health, err := a.db.HealthCheck(ctx)
		if err != nil {
			fmt.Fprintf(w, "  database   : unhealthy (%s)\n", health.Error)
		} else {
			fmt.Fprintf(w, "  database   : healthy in %s, %d/%d conns\n",
				health.ResponseTime, health.Stats.TotalConns, health.Stats.MaxConns)
		}
	}
	fmt.Fprintf(w, "  cache      : redis enabled=%t\n", a.redis.Enabled())

	entries, err := a.service.Entries(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  library    : %d entries\n", len(entries))
	return nil
}
