package main

import (
	"github.com/deppfellow/servicekit/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var to int32

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Long: `Migrates the schema to --to, or to the latest version when --to is
negative. Migrating to 0 drops every table the migrations created.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(cmd.Context(), a.log, a.cfg, to); err != nil {
				a.log.Error().Err(err).Msg("migration failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&to, "to", -1, "target schema version (negative means latest)")
	return cmd
}
