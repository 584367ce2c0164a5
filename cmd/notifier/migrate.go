package main

import (
	"github.com/spf13/cobra"

	"video_notifier/internal/storage/sqldb"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqldb.Migrate(db); err != nil {
				return err
			}

			a.logger.Info("migrations applied")
			return nil
		},
	}
}
