// Package configcmder provides the config command for managing persistent
// mnemo configuration stored in the .mnemo/ directory.
package configcmder

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

const configLongDesc string = `Manage persistent mnemo configuration.

Configuration is stored as config.toml in the .mnemo/ directory and provides
default values for command flags. CLI flags and MNEMO_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.namespace, storage.sqlite_path,
  storage.postgres_dsn, storage.redis_addr, storage.redis_password,
  storage.redis_db, storage.timeout, storage.max_retries,
  auth.provider, auth.tokens_file, auth.jwt_secret, auth.jwt_issuer,
  auth.jwt_audience, api.listen, mcp.transport, mcp.token,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  mnemo config set <key> <value>    Set a configuration value
  mnemo config get <key>            Get a configuration value
  mnemo config list                 List all configuration values

Examples:
  mnemo config set storage.backend sqlite
  mnemo config set storage.sqlite_path ./mnemo.db
  mnemo config get storage.backend
  mnemo config list`

const configShortDesc string = "Manage persistent mnemo configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// display masks credentials unless reveal is set.
func display(key, value string, reveal bool) string {
	if reveal || value == "" || !config.IsSecretConfigKey(key) {
		return value
	}
	return credentials.Mask(value)
}

func completeKeys(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var keys []string
	for _, k := range config.ValidConfigKeys() {
		if strings.HasPrefix(k, toComplete) {
			keys = append(keys, k)
		}
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}
