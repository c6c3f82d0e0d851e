package tokencmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

const listShortDesc string = "List registered clients"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   listShortDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newManager(cmd)
			if err != nil {
				return err
			}
			return runList(cmd.OutOrStdout(), mgr)
		},
	}

	return cmd
}

func runList(w io.Writer, mgr *credentials.Manager) error {
	tokens, err := mgr.Load()
	if err != nil {
		return err
	}

	ids, err := mgr.ListClients()
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Fprintf(w, "  %s No clients registered. Add one with \"mnemo token add <client-id>\".\n",
			cliui.DimStyle.Render("●"))
		return nil
	}

	width := 0
	for _, id := range ids {
		width = max(width, len(id))
	}

	for _, id := range ids {
		ct := tokens.Clients[id]
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("%-*s", width, id)),
			cliui.ValueStyle.Render(credentials.Mask(ct.Token)),
			cliui.DimStyle.Render(strings.Join(ct.Scopes, ", ")),
		)
	}
	return nil
}
