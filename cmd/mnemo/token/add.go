package tokencmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

const addLongDesc string = `Register a client and print its bearer token.

A token is generated unless --token is given. Re-adding an existing client
replaces its token and scopes.

Examples:
  mnemo token add my-agent
  mnemo token add reader --scopes read:data
  mnemo token add ci --token "$CI_MNEMO_TOKEN"`

const addShortDesc string = "Register a client token"

func newAddCmd() *cobra.Command {
	var (
		token  string
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "add <client-id>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(cmd)
			if err != nil {
				return err
			}
			return runAdd(cmd.OutOrStdout(), mgr, args[0], token, scopes)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Use this token instead of generating one")
	cmd.Flags().StringSliceVar(&scopes, "scopes", defaultScopes(), "Scopes granted to the client")

	return cmd
}

func runAdd(w io.Writer, mgr *credentials.Manager, clientID, token string, scopes []string) error {
	if _, err := auth.ParseScopes(scopes); err != nil {
		return err
	}

	token, err := mgr.AddClient(clientID, token, scopes)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Added %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(clientID),
		cliui.DimStyle.Render("("+strings.Join(scopes, ", ")+")"),
	)
	fmt.Fprintf(w, "  %s %s\n\n", cliui.KeyStyle.Render("Token:"), token)
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("Stored in "+mgr.GetTarget()))
	return nil
}
