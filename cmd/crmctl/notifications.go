package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func notificationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Maintain existing notifications",
	}
	cmd.AddCommand(rematerializeCmd(opts))
	return cmd
}

func rematerializeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rematerialize <notification-id>...",
		Short: "Add recipient rows for users who joined a role or all-users audience after it was sent",
		Long: `Resolve the audience of role and all-users notifications again and add the
recipient rows that are missing. Existing rows are kept, so running it twice is safe.
Direct notifications are left untouched.

Examples:
  crmctl notifications rematerialize 6c0f...
  crmctl notifications rematerialize 6c0f... 91ab...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			svc, err := env.notificationService()
			if err != nil {
				return err
			}

			for _, id := range args {
				added, err := svc.Rematerialize(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("rematerialize %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Notification %s: %d recipients added\n", id, added)
			}
			return nil
		},
	}
}
