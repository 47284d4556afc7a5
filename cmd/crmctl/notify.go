package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/services"
)

type notifyOptions struct {
	user     string
	users    []string
	role     string
	all      bool
	message  string
	kind     string
	priority string
	module   string
	link     string
}

func notifyCmd(opts *rootOptions) *cobra.Command {
	n := &notifyOptions{}

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification to a user, a role or everyone",
		Long: `Send a notification to a user, a role or everyone.

Exactly one audience flag is required.

Examples:
  crmctl notify --user 6c0f... --message "Firma confirmada"
  crmctl notify --role postventa --message "Revisar reclamos" --type warning
  crmctl notify --all --message "Mantenimiento programado" --priority high`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			audience, err := n.audience(env.roles)
			if err != nil {
				return err
			}

			svc, err := env.notificationService()
			if err != nil {
				return err
			}

			notification, err := svc.Create(cmd.Context(), services.CreateNotificationInput{
				Audience: audience,
				Message:  n.message,
				Type:     models.NotificationType(strings.ToLower(n.kind)),
				Priority: models.Priority(strings.ToLower(n.priority)),
				Module:   n.module,
				Link:     n.link,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s created (%s)\n", notification.ID, notification.Mode)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&n.user, "user", "", "recipient user id")
	flags.StringSliceVar(&n.users, "users", nil, "comma separated recipient user ids")
	flags.StringVar(&n.role, "role", "", "recipient role key, e.g. postventa")
	flags.BoolVar(&n.all, "all", false, "address every active user")
	flags.StringVarP(&n.message, "message", "m", "", "notification text")
	flags.StringVarP(&n.kind, "type", "t", string(models.NotificationInfo), "info, warning, success or error")
	flags.StringVarP(&n.priority, "priority", "p", string(models.PriorityMedium), "low, medium, high or critical")
	flags.StringVar(&n.module, "module", "", "originating module")
	flags.StringVar(&n.link, "link", "", "link opened from the notification")

	_ = cmd.MarkFlagRequired("message")
	cmd.MarkFlagsMutuallyExclusive("user", "users", "role", "all")
	cmd.MarkFlagsOneRequired("user", "users", "role", "all")

	return cmd
}

func (n *notifyOptions) audience(roles *services.RoleCatalog) (models.Audience, error) {
	switch {
	case n.user != "":
		return models.ToUser(n.user), nil
	case len(n.users) > 0:
		return models.ToUsers(n.users...), nil
	case n.all:
		return models.ToAll(), nil
	default:
		key := models.RoleKey(strings.ToLower(strings.TrimSpace(n.role)))
		if _, ok := roles.ID(key); !ok {
			return nil, fmt.Errorf("unknown role %q", n.role)
		}
		return roles.Audience(key), nil
	}
}
