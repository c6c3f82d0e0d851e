package tokencmder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/auth/jwt"
	"github.com/papercomputeco/mnemo/pkg/config"
)

const issueLongDesc string = `Sign a JWT for a client.

Uses auth.jwt_secret, auth.jwt_issuer and auth.jwt_audience from the
resolved configuration. Only useful when the server runs with
auth.provider = "jwt". The token is printed alone on stdout.

Examples:
  mnemo token issue my-agent
  mnemo token issue reader --scopes read:data --ttl 15m`

const issueShortDesc string = "Sign a JWT for a client"

const defaultTTL = 24 * time.Hour

func newIssueCmd() *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue <client-id>",
		Short: issueShortDesc,
		Long:  issueLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runIssue(cmd.OutOrStdout(), cfg.Auth, args[0], scopes, ttl)
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scopes", defaultScopes(), "Scopes granted to the client")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTTL, "Token lifetime")

	return cmd
}

func runIssue(w io.Writer, c config.AuthConfig, clientID string, scopes []string, ttl time.Duration) error {
	if c.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set; run \"mnemo config set auth.jwt_secret <secret>\"")
	}

	parsed, err := auth.ParseScopes(scopes)
	if err != nil {
		return err
	}

	registry, err := jwt.New(jwt.Config{
		Secret:   []byte(c.JWTSecret),
		Issuer:   c.JWTIssuer,
		Audience: c.JWTAudience,
	})
	if err != nil {
		return err
	}

	token, err := registry.Issue(clientID, parsed, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, token)
	return nil
}
