// Package mnemocmder
package mnemocmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/mnemo/cmd/mnemo/config"
	servecmder "github.com/papercomputeco/mnemo/cmd/mnemo/serve"
	statuscmder "github.com/papercomputeco/mnemo/cmd/mnemo/status"
	tokencmder "github.com/papercomputeco/mnemo/cmd/mnemo/token"
	versioncmder "github.com/papercomputeco/mnemo/cmd/version"
)

const mnemoLongDesc string = `Mnemo is a namespaced key-value memory service for agents.

Memories are exposed as MCP tools (remember, recall, forget, list_memories)
and as a small REST API. Every call presents a bearer token that must carry
the read:data or write:data scope.

Get started:
  mnemo token add my-agent         Create a client token
  mnemo serve                      Run the server
  mnemo status                     Check a running server`

const mnemoShortDesc string = "Mnemo - Agent Memory"

func NewMnemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mnemo",
		Short:         mnemoShortDesc,
		Long:          mnemoLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .mnemo/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(tokencmder.NewTokenCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
