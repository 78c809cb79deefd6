package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savegress/opsight/internal/store"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations for the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			target, err := migrationTarget(cfg)
			if err != nil {
				return err
			}
			version, err := store.Migrate(cfg.Store.Driver, target, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
