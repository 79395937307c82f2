package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cododel/directus-alto/internal/docker"
	"github.com/cododel/directus-alto/internal/restore"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-dir]",
	Short: "Restore database and uploads from a backup record",
	Long: `Restore loads a backup record back into the deployment. Without an
argument the record behind the backup_latest pointer is used. Both raw and
gzip-compressed dump artifacts are handled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordPath := ""
		if len(args) == 1 {
			recordPath = args[0]
		}

		ctx, cancel := signalContext()
		defer cancel()

		client, err := docker.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := resolveCredentials(ctx); err != nil {
			return err
		}

		return restore.New(cfg, client, log).Restore(ctx, recordPath)
	},
}
