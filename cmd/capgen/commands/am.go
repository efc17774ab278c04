package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/capgen/ai/provider"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage capgen configuration",
	Long: `am - Manage capgen configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (CAPGEN_* prefix, plus GEMINI_API_KEY and OPENROUTER_API_KEY)
3. Project config (./capgen.toml, searched up from the working directory)
4. User config (~/.capgen/capgen.toml)
5. System config (/etc/capgen/capgen.toml)
6. Default values

Examples:
  capgen am show                    # Show current configuration
  capgen am show --format json      # Show configuration in JSON format
  capgen am get taxonomy.batch_size # Get specific config value
  capgen am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., attach.workers, generator.provider)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return writeConfig(cmd.OutOrStdout(), redact(*cfg), configFormat)
}

// redact hides API keys so `am show` output can be pasted safely
func redact(cfg am.Config) am.Config {
	if cfg.Generator.Gemini.APIKey != "" {
		cfg.Generator.Gemini.APIKey = "********"
	}
	if cfg.Generator.OpenRouter.APIKey != "" {
		cfg.Generator.OpenRouter.APIKey = "********"
	}
	return cfg
}

func writeConfig(w io.Writer, cfg am.Config, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# capgen configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# capgen configuration\n%s", string(data))

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.GetViper().IsSet(key) {
		return errors.NewInvalidRequestError("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration is valid")
	fmt.Fprintf(out, "  provider: %s\n", provider.DetermineProvider(cfg))
	if available := provider.GetAvailableProviders(cfg); len(available) > 0 {
		fmt.Fprintf(out, "  configured: %v\n", available)
	} else {
		pterm.Warning.Println("No provider credentials configured (set GEMINI_API_KEY, OPENROUTER_API_KEY or generator.local_inference)")
	}
	return nil
}
