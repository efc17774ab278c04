package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
	"github.com/teranos/capgen/pulse"
	"github.com/teranos/capgen/taxonomy"
)

// GenerateCmd generates the taxonomy for one industry
var GenerateCmd = &cobra.Command{
	Use:   "generate <industry>",
	Short: "Generate the capability taxonomy for an industry",
	Long: `Generate L0 capabilities in sequential batches, attach 20 L2 capabilities
to every L1 and write the flattened table as CSV.

Flags override the taxonomy, attach and generator sections of am config.

Examples:
  capgen generate "Healthcare"
  capgen generate "Retail" --batches 3 --batch-size 2 --out retail.csv
  capgen generate "Retail" --workers 4 --pause 500ms
  capgen generate "Retail" --outline --out -`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	generateOut       string
	generateBatches   int
	generateBatchSize int
	generateWorkers   int
	generatePause     time.Duration
	generateProvider  string
	generateOutline   bool
)

func init() {
	GenerateCmd.Flags().StringVarP(&generateOut, "out", "o", "capabilities.csv", "Output file (- for stdout)")
	GenerateCmd.Flags().IntVar(&generateBatches, "batches", 0, "Number of sequential L0 batches (default from config)")
	GenerateCmd.Flags().IntVar(&generateBatchSize, "batch-size", 0, "L0 capabilities per batch (default from config)")
	GenerateCmd.Flags().IntVar(&generateWorkers, "workers", 0, "Concurrent L2 requests (default from config)")
	GenerateCmd.Flags().DurationVar(&generatePause, "pause", -1, "Minimum gap between L2 requests, e.g. 2s (default from config)")
	GenerateCmd.Flags().StringVar(&generateProvider, "provider", "", "Text generation provider: gemini, openrouter, local, auto")
	GenerateCmd.Flags().BoolVar(&generateOutline, "outline", false, "Stop after the L0/L1 stage and write the two-level outline")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	runCfg := applyGenerateFlags(pipeline.ConfigFromAM(cfg))

	providerName := generateProvider
	if providerName == "" {
		providerName = cfg.Generator.Provider
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeClient, err := newClient(ctx, cfg, providerName)
	if err != nil {
		return err
	}
	defer closeClient()

	out, closeOut, err := openOutput(generateOut)
	if err != nil {
		return err
	}
	toStdout := generateOut == "-"
	if toStdout {
		// Keep stdout for CSV only
		pterm.SetDefaultOutput(os.Stderr)
	}

	driver := pipeline.New(client, runCfg, logger.Logger.Named("pipeline"))

	if generateOutline {
		err = writeOutline(ctx, driver, args[0], out)
	} else {
		err = writeFull(ctx, driver, args[0], out)
	}
	if closeErr := closeOut(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "failed to close output")
	}
	if err != nil {
		if !toStdout {
			// Never leave a partial table behind
			_ = os.Remove(generateOut)
		}
		return err
	}
	if !toStdout {
		pterm.Success.Printfln("Wrote %s", generateOut)
	}
	return nil
}

func applyGenerateFlags(runCfg pipeline.Config) pipeline.Config {
	if generateBatches > 0 {
		runCfg.BatchCount = generateBatches
	}
	if generateBatchSize > 0 {
		runCfg.BatchSize = generateBatchSize
	}
	if generateWorkers > 0 {
		runCfg.Workers = generateWorkers
	}
	if generatePause >= 0 {
		runCfg.Throttle.Pause = generatePause
	}
	return runCfg
}

func writeFull(ctx context.Context, driver *pipeline.Driver, industry string, out io.Writer) error {
	cfg := driver.Config()
	pterm.Info.Printfln("Generating %d×%d L0 capabilities for %q (%d L2 requests)",
		cfg.BatchCount, cfg.BatchSize, industry, cfg.TotalL2Calls())

	bar := newProgressBar(os.Stderr)
	observer := pulse.MultiObserver(bar, pulse.LogObserver(logger.Logger.Named("progress")))
	result, err := driver.Run(ctx, industry, observer)
	bar.Stop()
	if err != nil {
		return err
	}

	printWarnings(result.Warnings)
	if err := taxonomy.WriteCSV(out, result.Rows); err != nil {
		return err
	}
	pterm.Info.Printfln("%d L0, %d L1, %d L2 capabilities in %s",
		result.Counts.L0, result.Counts.L1, result.Counts.L2, result.Duration.Round(time.Second))
	return nil
}

func writeOutline(ctx context.Context, driver *pipeline.Driver, industry string, out io.Writer) error {
	outline, err := driver.Outline(ctx, industry)
	if err != nil {
		return err
	}
	printWarnings(outline.Warnings)
	return taxonomy.StreamOutline(ctx, out, outline.Industry)
}

func printWarnings(warnings []taxonomy.Warning) {
	for _, w := range warnings {
		pterm.Warning.Println(w.String())
	}
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, am.DefaultFilePermissions)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create %s", path)
	}
	return f, f.Close, nil
}
