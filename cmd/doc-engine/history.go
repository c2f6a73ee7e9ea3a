// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doc-engine/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs from the run ledger",
	Long: `History lists past batch runs recorded in the SQLite run ledger:
when each run started, which pipeline it used, and how many files were
converted, skipped, or failed. Use --run to show one run's per-file
outcomes, or --export to dump the full history as YAML or JSON.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("logs-dir", "", "log and ledger directory (default logs)")
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyCmd.Flags().Int64("run", 0, "show per-file outcomes for a run ID")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyCmd.Flags().String("export", "", "export full history in the given format: yaml or json")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	logsDir := stringSetting(cmd, "logs-dir", "engine.logs_dir", "logs")

	led, err := ledger.Open(logsDir)
	if err != nil {
		return err
	}
	defer led.Close()

	if format, _ := cmd.Flags().GetString("export"); format != "" {
		return led.Export(cmd.Context(), os.Stdout, format)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if runID, _ := cmd.Flags().GetInt64("run"); runID > 0 {
		outcomes, err := led.Outcomes(cmd.Context(), runID)
		if err != nil {
			return err
		}
		return formatOutcomes(outcomes, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := led.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return formatRuns(runs, jsonOutput)
}

func formatRuns(runs []ledger.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-8s  %-9s  %-7s  %-6s  %s\n",
		"ID", "Started", "Pipeline", "Converted", "Skipped", "Failed", "Duration")
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-8s  %-9d  %-7d  %-6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Pipeline, r.Converted, r.Skipped, r.Failed,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

func formatOutcomes(outcomes []ledger.Outcome, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}

	if len(outcomes) == 0 {
		fmt.Println("No outcomes for that run.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-10s  %-10s  %s\n", "File", "Status", "Duration", "Detail")
	for _, o := range outcomes {
		fmt.Fprintf(os.Stdout, "%-30s  %-10s  %-10s  %s\n",
			o.File, o.Status, (time.Duration(o.DurationMS) * time.Millisecond).String(), o.Detail)
	}
	return nil
}
