package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/privd"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the privileged daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("socket:  %s\n", cfg.SocketPath)

		secret, err := auth.LoadSecret(cfg.SecretPath)
		if err != nil {
			fmt.Printf("secret:  not available (%v)\n", err)
			fmt.Printf("daemon:  unknown (cannot sign probe)\n")
			return nil
		}
		fmt.Printf("secret:  %s (fingerprint %s)\n", cfg.SecretPath, auth.SecretFingerprint(secret))

		if _, err := os.Stat(cfg.SocketPath); err != nil {
			fmt.Printf("daemon:  not running (socket absent)\n")
			return nil
		}

		client := privd.NewClient(privd.ClientConfig{
			SocketPath: cfg.SocketPath,
			Secret:     secret,
			Timeout:    10 * time.Second, // a ping should be instant
		})

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := client.Ping(ctx); err != nil {
			fmt.Printf("daemon:  unusable (%v)\n", err)
			return nil
		}
		fmt.Printf("daemon:  ready\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
