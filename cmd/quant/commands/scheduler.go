package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xb1002/FactorFrameworkV2/internal/scheduler"
	"github.com/xb1002/FactorFrameworkV2/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled admission",
	Long: `Starts the scheduler or runs its jobs by hand.

Registered jobs:
  factor_admission - batch evaluation and auto-admission on the profile cron

Subcommands:
  start  - run the scheduler until interrupted
  list   - registered jobs and their schedules
  run    - run one job now

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler run factor_admission`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd, schedulerListCmd, schedulerRunCmd)
}

// newScheduler registers the jobs enabled by the profile
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)
	if !a.profile.Schedule.Enabled {
		return s, nil
	}
	if err := s.AddJob(jobs.NewAdmissionJob(a.runner, a.profile.Schedule.Cron, a.log)); err != nil {
		return nil, err
	}
	return s, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}
	if len(s.GetAllJobs()) == 0 {
		return fmt.Errorf("schedule.enabled is false in profile %s", a.profile.Meta.ProfileID)
	}

	s.Start()
	for _, name := range s.GetAllJobs() {
		next, _ := s.NextRun(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%s next run %s\n", name, next.Format("2006-01-02 15:04"))
	}

	<-ctx.Done()
	s.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s.GetJobStats())
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s := scheduler.New(a.log)
	if err := s.AddJob(jobs.NewAdmissionJob(a.runner, a.profile.Schedule.Cron, a.log)); err != nil {
		return err
	}

	result, err := s.RunNow(ctx, args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s: success=%t attempts=%d duration=%s\n",
		args[0], result.Success, result.Attempts, result.Duration)
	return err
}
