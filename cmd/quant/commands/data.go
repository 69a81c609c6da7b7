package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/data"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Panel data utilities",
	Long: `Inspects the profile panel and manages the Postgres tables.

Subcommands:
  check    - load the profile panel and print its shape and coverage
  migrate  - create the price and library tables
  import   - copy a CSV panel into market.daily_prices

Example:
  go run ./cmd/quant data check
  go run ./cmd/quant data migrate
  go run ./cmd/quant data import data/prices.csv`,
}

var (
	dataCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Load the profile panel and print its shape",
		RunE:  checkPanel,
	}

	dataMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create database tables",
		RunE:  migrateTables,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import [csv_path]",
		Short: "Import a CSV panel into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE:  importPanel,
	}
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataCheckCmd, dataMigrateCmd, dataImportCmd)
}

func checkPanel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	panel, err := a.service.LoadPanel(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printHeader(w, fmt.Sprintf("Panel  (source %s)", a.profile.Data.Source))
	fmt.Fprintf(w, "  rows     : %d\n", panel.Len())
	fmt.Fprintf(w, "  entities : %d\n", len(panel.Entities()))
	fmt.Fprintf(w, "  fields   : %v\n", panel.Fields())
	if dates := panel.Dates(); len(dates) > 0 {
		fmt.Fprintf(w, "  dates    : %d (%s ~ %s)\n", len(dates),
			dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"))
	}
	priceField := a.profile.Evaluation.PriceField
	if !panel.HasField(priceField) {
		return &contracts.SchemaError{Field: priceField}
	}

	gate := data.NewQualityGate(data.QualityConfig{
		MinPriceCoverage: data.DefaultQualityConfig().MinPriceCoverage,
		MinCrossSection:  a.profile.Evaluation.MinCrossSection,
	})
	var extra []string
	for _, f := range panel.Fields() {
		if f != priceField {
			extra = append(extra, f)
		}
	}
	snap := gate.Check(panel, priceField, extra...)
	for _, f := range append([]string{priceField}, extra...) {
		fmt.Fprintf(w, "  coverage : %-8s %.1f%%\n", f, snap.Coverage[f]*100)
	}
	fmt.Fprintf(w, "  thin     : %d dates under %d priced entities\n", snap.ThinDates, a.profile.Evaluation.MinCrossSection)
	fmt.Fprintf(w, "  quality  : score %.3f passed=%t\n", snap.Score, snap.Passed)
	return nil
}

func migrateTables(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.db == nil {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if err := a.db.Exec(ctx, append(data.PriceSchema, library.Schema...)...); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Tables ready")
	return nil
}

func importPanel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.db == nil {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if err := a.db.Exec(ctx, data.PriceSchema...); err != nil {
		return err
	}

	panel, err := data.NewCSVSource(args[0], a.log).Load(ctx, contracts.PanelQuery{})
	if err != nil {
		return err
	}
	if err := data.NewPriceRepository(a.db.Pool).SaveBatch(ctx, panel); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows for %d entities\n", panel.Len(), len(panel.Entities()))
	return nil
}
