package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cododel/directus-alto/internal/config"
	"github.com/cododel/directus-alto/internal/logger"
	"github.com/cododel/directus-alto/internal/vault"
)

var (
	// configFile is an optional YAML file; environment variables win.
	configFile string
	cfg        config.Config
	log        logger.Logger

	rootCmd = &cobra.Command{
		Use:   "alto",
		Short: "Backup, restore and sync for a Directus deployment",
		Long: `alto orchestrates backups of a Directus CMS running under Docker
Compose: database dumps through the container runtime, hardlink-incremental
uploads snapshots, and time/count-based retention. Configuration comes from
ALTO_-prefixed environment variables with optional YAML and .env files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(configFile); err != nil {
				return err
			}
			l, err := logger.Init(cfg.LogLevel)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
)

// Execute runs the root command. Any hard failure exits 1; help and
// successful runs exit 0.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("command failed", "error", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		logger.Cleanup()
		os.Exit(1)
	}
	logger.Cleanup()
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configFile, "config", "c", "", "path to optional YAML config file")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(envCmd)
}

// signalContext is cancelled on SIGINT/SIGTERM so an interrupted stage
// fails cleanly and the error recorder still runs.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// overrideBackupRoot applies a positional backups-root argument, carrying
// the derived error log directory along unless it was set explicitly.
func overrideBackupRoot(root string) {
	derived := filepath.Join(cfg.BackupDir, "error_logs")
	cfg.BackupDir = root
	if cfg.ErrorLogDir == derived {
		cfg.ErrorLogDir = filepath.Join(root, "error_logs")
	}
}

// resolveCredentials swaps in Vault-held database credentials. A dynamic
// role takes precedence; otherwise a static KV path is read. With neither
// configured, credentials stay as loaded from the environment.
func resolveCredentials(ctx context.Context) error {
	if cfg.VaultRole == "" && cfg.VaultStaticPath == "" {
		return nil
	}

	var opts []vault.Option
	if cfg.VaultAddress != "" {
		opts = append(opts, vault.WithAddress(cfg.VaultAddress))
	}
	if cfg.VaultToken != "" {
		opts = append(opts, vault.WithToken(cfg.VaultToken))
	}
	if cfg.VaultRoleID != "" && cfg.VaultRoleName != "" {
		opts = append(opts, vault.WithAppRole(cfg.VaultRoleID, cfg.VaultRoleName))
	}
	client, err := vault.NewClient(ctx, opts...)
	if err != nil {
		return err
	}

	if cfg.VaultRole != "" {
		creds, err := client.GetDynamicCredentials(ctx, cfg.VaultRole)
		if err != nil {
			return err
		}
		cfg.DBUser = creds.Username
		cfg.DBPassword = creds.Password
		log.Info("database credentials resolved from vault",
			"role", cfg.VaultRole,
			"ttl", creds.TTL.String(),
		)
		return nil
	}

	creds, err := client.GetStaticCredentials(ctx, cfg.VaultStaticPath)
	if err != nil {
		return err
	}
	if creds.Username != "" {
		cfg.DBUser = creds.Username
	}
	cfg.DBPassword = creds.Password
	if creds.Database != "" {
		cfg.DBName = creds.Database
	}
	log.Info("database credentials resolved from vault",
		"path", cfg.VaultStaticPath,
	)
	return nil
}
