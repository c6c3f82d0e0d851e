package tokencmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

const removeShortDesc string = "Revoke a client token"

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <client-id>",
		Aliases: []string{"rm"},
		Short:   removeShortDesc,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(cmd)
			if err != nil {
				return err
			}
			return runRemove(cmd.OutOrStdout(), mgr, args[0])
		},
	}

	return cmd
}

func runRemove(w io.Writer, mgr *credentials.Manager, clientID string) error {
	removed, err := mgr.RemoveClient(clientID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no token registered for client %q", clientID)
	}

	fmt.Fprintf(w, "  %s Removed %s\n", cliui.SuccessMark, cliui.NameStyle.Render(clientID))
	return nil
}
