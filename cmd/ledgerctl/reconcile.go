package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/synergy-api/internal/database"
	"github.com/yukikurage/synergy-api/internal/logger"
	"github.com/yukikurage/synergy-api/internal/repository"
	"github.com/yukikurage/synergy-api/internal/services"
)

var (
	reconcileFix  bool
	reconcileJSON bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute task counters and report drift",
	Long: `Recomputes every project's totalTasks and every user's openTasksCount from
the task rows and compares them with the stored counters. With --fix the
drifted counters are rewritten in a single transaction.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "Rewrite drifted counters")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "Print the report as JSON")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zlog := logger.New(cfg.LogLevel)
	defer zlog.Sync()

	if err := database.Connect(cfg, zlog); err != nil {
		return err
	}

	ledger := services.NewLedgerService(repository.NewStore(database.GetDB()), zlog)
	report, err := ledger.Reconcile(cmd.Context(), reconcileFix)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	out := cmd.OutOrStdout()
	if reconcileJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if len(report.Drifts) == 0 {
		fmt.Fprintln(out, "All counters are consistent.")
		return nil
	}

	for _, d := range report.Drifts {
		fmt.Fprintf(out, "%-18s id=%-8d stored=%-6d actual=%d\n", d.Counter, d.ID, d.Stored, d.Actual)
	}
	if report.Fixed {
		fmt.Fprintf(out, "Fixed %d counter(s).\n", len(report.Drifts))
	} else {
		fmt.Fprintf(out, "%d counter(s) drifted. Re-run with --fix to repair.\n", len(report.Drifts))
	}
	return nil
}
