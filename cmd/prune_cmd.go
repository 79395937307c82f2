package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cododel/directus-alto/internal/retention"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [backups-root]",
	Short: "Apply the retention policy without taking a backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			overrideBackupRoot(args[0])
		}

		pruner := retention.New(cfg.BackupDir, cfg.ErrorLogDir, retention.Policy{
			MaxAgeDays:         cfg.RetentionDays,
			MinCount:           cfg.MinBackups,
			ErrorLogMaxAgeDays: cfg.ErrorLogRetentionDays,
		}, cfg.Now(), log)

		sum := pruner.Run()
		log.Info("retention pass complete",
			"aged_out", sum.AgedOut,
			"excess_removed", sum.ExcessRemoved,
			"orphans_removed", sum.OrphansRemoved,
			"malformed_removed", sum.MalformedRemoved,
			"error_logs_removed", sum.ErrorLogsRemoved,
			"remaining", sum.Remaining,
		)
		return nil
	},
}
