// Package tokencmder provides the token command for managing client
// credentials accepted by the mnemo server.
package tokencmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

const tokenLongDesc string = `Manage client tokens.

With the static auth provider, tokens live in tokens.toml in the .mnemo/
directory (or auth.tokens_file). A running server picks up changes to the
file without a restart.

With the jwt auth provider, "mnemo token issue" signs short-lived tokens
with auth.jwt_secret.

Examples:
  mnemo token add my-agent
  mnemo token add reader --scopes read:data
  mnemo token list
  mnemo token remove my-agent
  mnemo token issue my-agent --ttl 1h`

const tokenShortDesc string = "Manage client tokens"

func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: tokenShortDesc,
		Long:  tokenLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newIssueCmd())

	return cmd
}

func defaultScopes() []string {
	known := auth.KnownScopes()
	names := make([]string, len(known))
	for i, s := range known {
		names[i] = string(s)
	}
	return names
}

// loadConfig resolves settings the same way "mnemo serve" does.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, configDir, nil
}

func newManager(cmd *cobra.Command) (*credentials.Manager, error) {
	cfg, configDir, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	mgr, err := credentials.NewManagerFor(configDir, cfg.Auth.TokensFile)
	if err != nil {
		return nil, fmt.Errorf("resolving tokens file: %w", err)
	}
	return mgr, nil
}
