package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Create the database schema for the configured backend",
		Annotations: map[string]string{annotationStorageOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, dialect, err := openDB(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := sqlstore.Migrate(cmd.Context(), conn, dialect); err != nil {
				return err
			}
			opts.logger.Info("schema ready", zap.String("dialect", dialect.Name))
			return nil
		},
	}
}
