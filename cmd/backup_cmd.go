package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cododel/directus-alto/internal/docker"
	"github.com/cododel/directus-alto/internal/pipeline"
)

var backupCmd = &cobra.Command{
	Use:   "backup [backups-root]",
	Short: "Run one backup job: dump, sync uploads, finalize, prune",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			overrideBackupRoot(args[0])
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

		return pipeline.New(cfg, client, log).Run(ctx)
	},
}
