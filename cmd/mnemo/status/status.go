// Package statuscmder provides the status command for checking a running
// mnemo server.
package statuscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/api"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/config"
)

const statusLongDesc string = `Check a running mnemo server.

Pings client.api_target. When --token is given, also lists memories with
that token to confirm the credential is accepted.

Examples:
  mnemo status
  mnemo status --api-target http://memory.internal:8081
  mnemo status --token "$MNEMO_TOKEN"`

const statusShortDesc string = "Check a running mnemo server"

const requestTimeout = 2 * time.Second

var statusFlags = config.FlagSet{
	config.FlagAPITarget: {Name: "api-target", ViperKey: "client.api_target", Description: "URL of the mnemo API server"},
}

var errNotAuthorized = errors.New("not authorized")

type statusCommander struct {
	apiTarget string
	token     string
	client    *http.Client
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{
		client: &http.Client{Timeout: requestTimeout},
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, statusFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, statusFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.token, "token", "", "Bearer token to verify against the server")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	base := strings.TrimRight(c.apiTarget, "/")

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Server:"), cliui.ValueStyle.Render(base))

	err := cliui.Step(w, "Pinging server", func() error {
		return c.ping(ctx, base)
	})
	if err != nil {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.WarnStyle.Render(err.Error()))
		return fmt.Errorf("server at %s is not reachable", base)
	}

	if c.token == "" {
		fmt.Fprintln(w)
		return nil
	}

	var count int
	err = cliui.Step(w, "Checking token", func() error {
		var err error
		count, err = c.count(ctx, base)
		return err
	})
	if err != nil {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.WarnStyle.Render(err.Error()))
		return err
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Memories:"), cliui.NameStyle.Render(fmt.Sprint(count)))
	return nil
}

func (c *statusCommander) ping(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *statusCommander) count(ctx context.Context, base string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/memories", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return 0, errNotAuthorized
	default:
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var list api.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, fmt.Errorf("decoding memories: %w", err)
	}
	return list.Count, nil
}
