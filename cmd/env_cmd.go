package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "backup_dir=%s\n", cfg.BackupDir)
		fmt.Fprintf(out, "uploads_dir=%s\n", cfg.UploadsDir)
		fmt.Fprintf(out, "error_log_dir=%s\n", cfg.ErrorLogDir)
		fmt.Fprintf(out, "retention_days=%d\n", cfg.RetentionDays)
		fmt.Fprintf(out, "min_backups=%d\n", cfg.MinBackups)
		fmt.Fprintf(out, "error_log_retention_days=%d\n", cfg.ErrorLogRetentionDays)
		fmt.Fprintf(out, "compression_level=%d\n", cfg.CompressionLevel)
		fmt.Fprintf(out, "date_format=%s\n", cfg.DateFormat)
		fmt.Fprintf(out, "db_container=%s\n", cfg.DBContainer)
		fmt.Fprintf(out, "db_user=%s\n", cfg.DBUser)
		fmt.Fprintf(out, "db_name=%s\n", cfg.DBName)
		fmt.Fprintf(out, "log_level=%s\n", cfg.LogLevel)
		if cfg.VaultRole != "" {
			fmt.Fprintf(out, "vault_role=%s\n", cfg.VaultRole)
		}
	},
}
