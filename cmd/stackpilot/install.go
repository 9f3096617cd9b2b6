package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/fallback"
	"github.com/stackpilot/stackpilot/internal/logger"
	"github.com/stackpilot/stackpilot/internal/privd"
)

var (
	installDomain     string
	installEmail      string
	installPHPVersion string
	installDBName     string
	installDBUser     string
	installDBPass     string
	installRequire    bool
	installMetrics    string
	installProbes     int
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision the web stack",
	Long: `Provision nginx, PHP-FPM and MariaDB for a site. Privileged actions go
through stackpilotd when it is usable and fall back to direct execution
otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("require-daemon") {
			cfg.RequireDaemon = installRequire
		}
		if installProbes > 0 {
			cfg.ProbeAttempts = installProbes
		}
		if installDomain == "" {
			return fmt.Errorf("--domain is required")
		}

		logger.Setup(cfg.StateDir, cfgVerbose)
		return runInstall(cfg)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(&installDomain, "domain", "", "Site domain to provision (required)")
	installCmd.Flags().StringVar(&installEmail, "email", "", "Contact email for Let's Encrypt (omit to skip TLS)")
	installCmd.Flags().StringVar(&installPHPVersion, "php-version", "8.3", "PHP version to install")
	installCmd.Flags().StringVar(&installDBName, "db-name", "", "Database to create (omit to skip database setup)")
	installCmd.Flags().StringVar(&installDBUser, "db-user", "", "Database user to create")
	installCmd.Flags().StringVar(&installDBPass, "db-password", "", "Password for the database user")
	installCmd.Flags().BoolVar(&installRequire, "require-daemon", envBool("STACKPILOT_REQUIRE_DAEMON", false), "Abort if the daemon is unusable instead of falling back")
	installCmd.Flags().StringVar(&installMetrics, "metrics-addr", envStr("STACKPILOT_METRICS_ADDR", ""), "Serve Prometheus metrics on this address during the install")
	installCmd.Flags().IntVar(&installProbes, "probe-attempts", envInt("STACKPILOT_PROBE_ATTEMPTS", 0), "Override the readiness probe attempt budget")
}

func runInstall(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if installMetrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", privd.MetricsHandler())
		srv := &http.Server{Addr: installMetrics, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	secret, err := auth.LoadOrCreateSecret(cfg.SecretPath)
	if err != nil {
		return fmt.Errorf("signing secret: %w", err)
	}

	client := privd.NewClient(privd.ClientConfig{
		SocketPath: cfg.SocketPath,
		Secret:     secret,
		Timeout:    cfg.ConnectTimeout,
	})

	monitor := privd.NewMonitor(cfg.SocketPath, client)
	monitor.MaxAttempts = cfg.ProbeAttempts
	usable := monitor.Wait(ctx)

	if !usable && cfg.RequireDaemon {
		return fmt.Errorf("daemon at %s is unusable and require_daemon is set", cfg.SocketPath)
	}

	printBanner(cfg, usable)

	ctrl := &fallback.Controller{DaemonUsable: usable}
	local := fallback.NewLocal()

	for _, op := range installOperations(client, local) {
		// Stop before starting the next operation on Ctrl-C; an operation
		// already in flight is bounded by its own ctx.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("install interrupted: %w", err)
		}
		if err := ctrl.Run(ctx, op); err != nil {
			return err
		}
	}

	slog.Info("installation complete", "domain", installDomain)
	fmt.Printf("\n  %s provisioned.\n\n", installDomain)
	return nil
}

// installOperations builds the provisioning pipeline. Each operation carries
// its daemon-mediated form and its direct-local twin; the fallback controller
// picks between them at run time.
func installOperations(client *privd.Client, local *fallback.Local) []fallback.Operation {
	webroot := filepath.Join("/var/www", installDomain)
	phpFPM := "php" + installPHPVersion + "-fpm"
	basePackages := []string{"nginx", "mariadb-server"}

	ops := []fallback.Operation{
		{
			Desc:   "refresh package index",
			Daemon: func(ctx context.Context) error { return client.UpdatePackages(ctx) },
			Direct: func(ctx context.Context) error { return local.UpdatePackages(ctx) },
		},
		{
			Desc:   "install base packages",
			Daemon: func(ctx context.Context) error { return client.InstallPackages(ctx, basePackages) },
			Direct: func(ctx context.Context) error { return local.InstallPackages(ctx, basePackages) },
		},
		{
			Desc:   "install PHP " + installPHPVersion,
			Daemon: func(ctx context.Context) error { return client.InstallPHPVersion(ctx, installPHPVersion) },
			Direct: func(ctx context.Context) error { return local.InstallPHPVersion(ctx, installPHPVersion) },
		},
	}

	for _, ext := range []string{"mysql", "mbstring", "xml"} {
		ops = append(ops, fallback.Operation{
			Desc:   "install PHP extension " + ext,
			Daemon: func(ctx context.Context) error { return client.InstallPHPExtension(ctx, installPHPVersion, ext) },
			Direct: func(ctx context.Context) error { return local.InstallPHPExtension(ctx, installPHPVersion, ext) },
		})
	}

	ops = append(ops,
		fallback.Operation{
			Desc:   "create webroot",
			Daemon: func(ctx context.Context) error { return client.Mkdir(ctx, webroot, "0755") },
			Direct: func(ctx context.Context) error { return local.Mkdir(ctx, webroot, "0755") },
		},
		fallback.Operation{
			Desc:   "enable site " + installDomain,
			Daemon: func(ctx context.Context) error { return client.EnableSite(ctx, installDomain) },
			Direct: func(ctx context.Context) error { return local.EnableSite(ctx, installDomain) },
		},
		fallback.Operation{
			Desc:   "validate nginx configuration",
			Daemon: func(ctx context.Context) error { return client.TestNginxConfig(ctx) },
			Direct: func(ctx context.Context) error { return local.TestNginxConfig(ctx) },
		},
		fallback.Operation{
			Desc:   "enable " + phpFPM,
			Daemon: func(ctx context.Context) error { return client.EnableService(ctx, phpFPM) },
			Direct: func(ctx context.Context) error { return local.EnableService(ctx, phpFPM) },
		},
		fallback.Operation{
			Desc:   "start " + phpFPM,
			Daemon: func(ctx context.Context) error { return client.StartService(ctx, phpFPM) },
			Direct: func(ctx context.Context) error { return local.StartService(ctx, phpFPM) },
		},
		fallback.Operation{
			Desc:   "reload nginx",
			Daemon: func(ctx context.Context) error { return client.ReloadService(ctx, "nginx") },
			Direct: func(ctx context.Context) error { return local.ReloadService(ctx, "nginx") },
		},
	)

	if installDBName != "" {
		ops = append(ops, fallback.Operation{
			Desc:   "create database " + installDBName,
			Daemon: func(ctx context.Context) error { return client.CreateDatabase(ctx, installDBName) },
			Direct: func(ctx context.Context) error { return local.CreateDatabase(ctx, installDBName) },
		})
		if installDBUser != "" {
			ops = append(ops,
				fallback.Operation{
					Desc:   "create database user " + installDBUser,
					Daemon: func(ctx context.Context) error { return client.CreateDatabaseUser(ctx, installDBUser, installDBPass) },
					Direct: func(ctx context.Context) error { return local.CreateDatabaseUser(ctx, installDBUser, installDBPass) },
				},
				fallback.Operation{
					Desc:   "grant privileges on " + installDBName,
					Daemon: func(ctx context.Context) error { return client.GrantPrivileges(ctx, installDBName, installDBUser) },
					Direct: func(ctx context.Context) error { return local.GrantPrivileges(ctx, installDBName, installDBUser) },
				},
			)
		}
	}

	if installEmail != "" {
		ops = append(ops, fallback.Operation{
			Desc:   "request certificate for " + installDomain,
			Daemon: func(ctx context.Context) error { return client.RequestLetsEncrypt(ctx, installDomain, installEmail) },
			Direct: func(ctx context.Context) error { return local.RequestLetsEncrypt(ctx, installDomain, installEmail) },
		})
	}

	return ops
}

func printBanner(cfg config.Config, daemonUsable bool) {
	mode := "direct execution (daemon unusable)"
	if daemonUsable {
		mode = "daemon-mediated with direct fallback"
	}

	fmt.Printf("\n")
	fmt.Printf("  stackpilot v%s\n", version)
	fmt.Printf("  domain: %s  php: %s\n", installDomain, installPHPVersion)
	fmt.Printf("  daemon: %s  mode: %s\n", cfg.SocketPath, mode)
	fmt.Printf("  state:  %s\n", cfg.StateDir)
	fmt.Printf("\n")
}
