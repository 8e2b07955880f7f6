package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/domain/auth"
)

var tokenOpts struct {
	userID string
	email  string
	name   string
	roles  []string
	ttl    time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with the configured secret",
	Long: `Mint a bearer token for calling the API locally.

The token is signed with jwt.secret from the active configuration, so the
server only accepts it when both share that secret.`,
	Example: `  cashdeskctl token --email clerk@example.com --name "Front Desk"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ttl := cfg.JWT.AccessTokenTTL
		if tokenOpts.ttl > 0 {
			ttl = tokenOpts.ttl
		}
		svc, err := auth.NewJWTService(auth.JWTConfig{
			Secret:         cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			AccessTokenTTL: ttl,
		})
		if err != nil {
			return err
		}

		userID := tokenOpts.userID
		if userID == "" {
			userID = uuid.NewString()
		}
		token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
			UserID: userID,
			Email:  tokenOpts.email,
			Name:   tokenOpts.name,
			Roles:  tokenOpts.roles,
		})
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		cmd.PrintErrf("user %s, expires %s\n", userID, expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenOpts.userID, "user", "", "user ID (random when empty)")
	f.StringVar(&tokenOpts.email, "email", "", "user e-mail")
	f.StringVar(&tokenOpts.name, "name", "", "display name")
	f.StringSliceVar(&tokenOpts.roles, "role", nil, "role, repeatable")
	f.DurationVar(&tokenOpts.ttl, "ttl", 0, "token lifetime (defaults to jwt.accessTokenTTL)")

	rootCmd.AddCommand(tokenCmd)
}
