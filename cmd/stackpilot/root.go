package main

import (
	"github.com/spf13/cobra"

	"github.com/stackpilot/stackpilot/internal/config"
)

var (
	// Persistent flags
	cfgFile     string
	cfgSocket   string
	cfgSecret   string
	cfgStateDir string
	cfgVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "stackpilot",
	Short: "Web stack provisioner",
	Long:  `stackpilot provisions an nginx/PHP/MariaDB stack, routing privileged actions through the stackpilotd helper daemon with direct-execution fallback.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", envStr("STACKPILOT_CONFIG", "/etc/stackpilot/stackpilot.yaml"), "Path to YAML configuration")
	rootCmd.PersistentFlags().StringVar(&cfgSocket, "socket", envStr("STACKPILOT_SOCKET", ""), "Override the daemon socket path")
	rootCmd.PersistentFlags().StringVar(&cfgSecret, "secret-file", envStr("STACKPILOT_SECRET_FILE", ""), "Override the signing secret path")
	rootCmd.PersistentFlags().StringVar(&cfgStateDir, "state-dir", envStr("STACKPILOT_STATE_DIR", ""), "Directory for logs and persistent state")
	rootCmd.PersistentFlags().BoolVarP(&cfgVerbose, "verbose", "v", false, "Show debug output on the console")
}

// loadConfig reads the YAML config and applies flag/env overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if cfgSocket != "" {
		cfg.SocketPath = cfgSocket
	}
	if cfgSecret != "" {
		cfg.SecretPath = cfgSecret
	}
	if cfgStateDir != "" {
		cfg.StateDir = cfgStateDir
	}
	return cfg, cfg.Validate()
}
