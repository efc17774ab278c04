package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/cmd/capgen/commands"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "capgen",
	Short: "capgen - Generate industry capability taxonomies",
	Long: `capgen - Generate a three-level capability taxonomy (L0 → L1 → L2)
for an industry using a text generation model, and export it as CSV.

Available commands:
  generate - Generate the taxonomy for one industry
  serve    - Start the HTTP/WebSocket server
  am       - Manage capgen configuration ("I am")
  usage    - Show model usage recorded in the usage database
  version  - Show version information

Examples:
  capgen generate "Healthcare" --out healthcare.csv
  capgen generate "Retail" --outline --out -
  capgen serve --port 8787
  capgen am show --format yaml
  capgen usage --since 24h`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
			if err := am.UseConfigFile(configPath); err != nil {
				return errors.Mark(err, errors.ErrInvalidRequest)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Structured JSON logs (and JSON output where supported)")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file instead of the capgen.toml search path")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.UsageCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		commands.PrintError(err)
		os.Exit(1)
	}
}
