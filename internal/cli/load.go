package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/observability"
)

func (c *CLI) loadCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a graph session and print a summary",
		Long: `Load runs the configured session load: the container first, then every
entity source in the order of the [[graph.entities]] tables, then the
relations, and finally the saved layout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoad(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}

func (c *CLI) runLoad(ctx context.Context, out io.Writer, configPath string) error {
	ws, err := c.openWorkspace(ctx, configPath)
	if err != nil {
		return err
	}
	defer ws.Close(context.Background())

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, c.status, "loading graph")
	observability.SetSyncHooks(stageHooks{spinner: spin})
	defer observability.Reset()

	spin.Start()
	err = ws.load(ctx)
	spin.Stop()
	if err != nil {
		printError(out, "%s", errors.UserMessage(err))
		return err
	}
	prog.done(fmt.Sprintf("Loaded graph %s", ws.cfg.Graph.ContainerID))

	printSummary(out, ws)
	return nil
}

func printSummary(out io.Writer, ws *workspace) {
	eng := ws.engine
	fmt.Fprintln(out, StyleTitle.Render("graph "+ws.cfg.Graph.ContainerID))
	printKeyValue(out, "session", eng.Session().ID)
	printKeyValue(out, "backend", ws.cfg.Backend.Kind)
	for _, col := range eng.Entities().Collections() {
		placed := len(eng.Entities().Present(col.Key))
		printKeyValue(out, col.Key, fmt.Sprintf("%d loaded, %d placed", len(col.Resources), placed))
	}
	printStats(out, eng.Entities().Len(), eng.Links().Len(), ws.surface.Len())
	printSuccess(out, "in sync")
}
