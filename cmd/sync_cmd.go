package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cododel/directus-alto/internal/docker"
	"github.com/cododel/directus-alto/internal/restore"
)

var syncCmd = &cobra.Command{
	Use:   "sync <source-backups-root>",
	Short: "Synchronize this environment from another environment's latest backup",
	Long: `Sync restores the database and uploads of this environment from the
latest backup record found under another environment's backups root, e.g.
pulling production data into staging.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		return restore.New(cfg, client, log).SyncFrom(ctx, args[0])
	},
}
