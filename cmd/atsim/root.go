package main

import (
	"fmt"
	"os"

	"github.com/aretw0/atsim/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "atsim",
	Short:         "atsim hosts discrete-time simulation processes",
	Long:          `atsim runs simulation models as long-lived processes that can be started, paused, killed and observed tick by tick.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().String("models", "", "Directory containing model files")
}

// loadConfig resolves the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"models", &cfg.ModelsDir},
		{"addr", &cfg.Addr},
		{"tokens", &cfg.TokensFile},
		{"store", &cfg.Store},
	}
	for _, o := range overrides {
		if f := flags.Lookup(o.flag); f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}
	if f := flags.Lookup("max-running"); f != nil && f.Changed {
		cfg.MaxRunning, _ = flags.GetInt("max-running")
	}
	return cfg, cfg.Validate()
}
