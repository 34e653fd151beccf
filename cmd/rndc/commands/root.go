// Package commands implements the rndc CLI's cobra command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/b1-systems/rndc-go/internal/config"
)

var (
	// cfg is the resolved configuration, populated in
	// PersistentPreRunE from --config plus flag overrides.
	cfg *config.Config

	// configPath is the --config flag value.
	configPath string

	// hostFlag, portFlag, and keyFlag override the corresponding
	// config fields for this invocation only.
	hostFlag string
	portFlag int
	keyFlag  string
)

// rootCmd is the top-level cobra command for rndc.
var rootCmd = &cobra.Command{
	Use:   "rndc <command> [args...]",
	Short: "Send an RNDC v1 command to a BIND name server",
	Long: "rndc sends an administrative command (e.g. status, reload) to a name " +
		"server's control channel, authenticated with the RNDC v1 HMAC-MD5 handshake.",
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.LoadPartial(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		applyFlagOverrides(loaded)
		if err := config.Validate(loaded); err != nil {
			return fmt.Errorf("validate configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
	RunE: func(_ *cobra.Command, args []string) error {
		return runCommand(args)
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// applyFlagOverrides copies any non-zero flag value onto cfg, letting a
// one-off --host/--port/--key on the command line win over the loaded
// configuration file or environment.
func applyFlagOverrides(cfg *config.Config) {
	if hostFlag != "" {
		cfg.Server.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	if keyFlag != "" {
		cfg.Server.Key = keyFlag
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "",
		"name server host (overrides configuration)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0,
		"name server control port (overrides configuration)")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "",
		"base64-encoded HMAC-MD5 key (overrides configuration)")

	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rndc:", err)
		os.Exit(1)
	}
}
