package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/display"
	"github.com/teranos/capgen/errors"
)

// UsageCmd prints model usage totals
var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show model usage recorded in the usage database",
	Long: `Summarize model calls recorded while database.track_usage is enabled:
totals, a breakdown by operation (l0_batch, l2_batch) and by model.

Examples:
  capgen usage
  capgen usage --since 168h
  capgen usage --json`,
	RunE: runUsage,
}

var (
	usageSince  time.Duration
	usageDBPath string
)

func init() {
	UsageCmd.Flags().DurationVar(&usageSince, "since", 24*time.Hour, "Time window to summarize")
	UsageCmd.Flags().StringVar(&usageDBPath, "db-path", "", "Usage database path (overrides config)")
}

type usageReport struct {
	Since      time.Time                    `json:"since"`
	Stats      *tracker.UsageStats          `json:"stats"`
	Operations []tracker.OperationBreakdown `json:"operations"`
	Models     []tracker.ModelBreakdown     `json:"models"`
}

func runUsage(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(usageDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	t := tracker.NewUsageTracker(database)
	since := time.Now().Add(-usageSince)

	report := usageReport{Since: since}
	if report.Stats, err = t.GetUsageStats(ctx, since); err != nil {
		return errors.Wrap(err, "failed to load usage stats")
	}
	if report.Operations, err = t.GetOperationBreakdown(ctx, since); err != nil {
		return errors.Wrap(err, "failed to load operation breakdown")
	}
	if report.Models, err = t.GetModelBreakdown(ctx, since); err != nil {
		return errors.Wrap(err, "failed to load model breakdown")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), report)
	}
	return renderUsage(report)
}

func renderUsage(r usageReport) error {
	s := r.Stats
	pterm.DefaultSection.Printfln("Usage since %s", r.Since.Format(time.RFC3339))
	pterm.Printfln("  Requests: %d (%.1f%% successful)", s.TotalRequests, s.SuccessRate*100)
	pterm.Printfln("  Runs:     %d", s.Runs)
	pterm.Printfln("  Tokens:   %d", s.TotalTokens)
	pterm.Printfln("  Cost:     $%.4f", s.TotalCost)
	pterm.Println()

	if len(r.Operations) > 0 {
		data := pterm.TableData{{"Operation", "Requests", "Failed", "Tokens", "Avg ms"}}
		for _, op := range r.Operations {
			avg := "-"
			if op.AvgResponseTimeMs != nil {
				avg = fmt.Sprintf("%.0f", *op.AvgResponseTimeMs)
			}
			data = append(data, []string{
				op.OperationType,
				fmt.Sprint(op.RequestCount),
				fmt.Sprint(op.FailedCount),
				fmt.Sprint(op.TotalTokens),
				avg,
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return errors.Wrap(err, "failed to render operations")
		}
		pterm.Println()
	}

	if len(r.Models) > 0 {
		data := pterm.TableData{{"Model", "Provider", "Requests", "Tokens", "Cost"}}
		for _, m := range r.Models {
			data = append(data, []string{
				m.ModelName,
				m.ModelProvider,
				fmt.Sprint(m.RequestCount),
				fmt.Sprint(m.TotalTokens),
				fmt.Sprintf("$%.4f", m.TotalCost),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return errors.Wrap(err, "failed to render models")
		}
	}
	return nil
}
