package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed the role catalog",
		Long: `Apply schema migrations and seed the role catalog.

The command is idempotent: existing tables are altered in place and seeded
roles are only inserted when missing.

Examples:
  crmctl migrate
  crmctl migrate --config /etc/estatecrm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database migrated (%s)\n", env.cfg.Database.ConnectionConfig().Driver)
			return nil
		},
	}
}
