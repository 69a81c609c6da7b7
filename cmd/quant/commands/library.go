package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xb1002/FactorFrameworkV2/internal/library"
)

// libraryCmd represents the library command
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect and manage the factor library",
	Long: `Lists, shows and edits admitted factors.

Subcommands:
  list    - all library entries
  show    - one entry with its metrics
  admit   - save a profile candidate without running checks
  remove  - delete one entry version

Example:
  go run ./cmd/quant library list
  go run ./cmd/quant library show mom_20
  go run ./cmd/quant library admit vol_20
  go run ./cmd/quant library remove vol_20 --version v1`,
}

var (
	libraryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List library entries",
		RunE:  listLibrary,
	}

	libraryShowCmd = &cobra.Command{
		Use:   "show [name]",
		Short: "Show one library entry",
		Args:  cobra.ExactArgs(1),
		RunE:  showLibraryEntry,
	}

	libraryAdmitCmd = &cobra.Command{
		Use:   "admit [candidate]",
		Short: "Manually admit a profile candidate",
		Args:  cobra.ExactArgs(1),
		RunE:  admitManually,
	}

	libraryRemoveCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove one entry version",
		Args:  cobra.ExactArgs(1),
		RunE:  removeLibraryEntry,
	}

	showVersion   string
	removeVersion string
)

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryListCmd, libraryShowCmd, libraryAdmitCmd, libraryRemoveCmd)

	libraryShowCmd.Flags().StringVar(&showVersion, "version", "", "entry version (default: newest)")
	libraryRemoveCmd.Flags().StringVar(&removeVersion, "version", "v1", "entry version")
}

func listLibrary(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.service.Entries(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "Library is empty")
		return nil
	}
	renderEntries(w, entries)
	return nil
}

func showLibraryEntry(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.service.Entry(ctx, args[0], showVersion)
	if errors.Is(err, library.ErrNotFound) {
		return fmt.Errorf("%s is not in the library", args[0])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(entry)
}

func admitManually(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	spec, ok := a.profile.Candidate(args[0])
	if !ok {
		return fmt.Errorf("unknown candidate %q", args[0])
	}
	entry, err := a.service.ManualAdmit(ctx, spec)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s@%s (manual)\n", entry.Name, entry.Version)
	return nil
}

func removeLibraryEntry(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.service.Remove(ctx, args[0], removeVersion); err != nil {
		return fmt.Errorf("remove %s@%s: %w", args[0], removeVersion, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s@%s\n", args[0], removeVersion)
	return nil
}
