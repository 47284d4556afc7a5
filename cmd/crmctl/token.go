package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlesng35/estatecrm/internal/app"
	iauth "github.com/charlesng35/estatecrm/internal/auth"
)

func tokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured secret",
		Long: `Issue an access token signed with the configured secret.

The token is accepted by the HTTP API as a Bearer credential and, for the
notification stream, as the access_token query parameter.

Examples:
  crmctl token --user 6c0f... --role admin
  crmctl token --user 6c0f... --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfigPath(opts.configPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
				return fmt.Errorf("auth.jwt.secret must be configured to issue tokens")
			}

			jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
			if err != nil {
				return err
			}

			token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
				UserID: userID,
				Role:   strings.ToLower(strings.TrimSpace(role)),
				TTL:    ttl,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id carried in the token")
	cmd.Flags().StringVarP(&role, "role", "r", "", "role key carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.jwt.access_token_ttl")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
