package cli

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a graph session and accept diagram edits over HTTP",
		Long: `Serve loads the configured session and keeps it open. Diagram edits sent
over HTTP are applied to the diagram and synchronized with the backend.

Routes:
  GET    /diagram                    saved layout of the current diagram
  POST   /nodes                      drop an entity on the diagram
  DELETE /nodes/{id}                 remove a node and its links
  PATCH  /nodes/{id}/position        move a node
  POST   /links                      connect two nodes
  DELETE /links/{id}                 remove a link
  GET    /entities                   loaded entities by source
  DELETE /entities/{key}/{id}        delete an unplaced entity
  GET    /selection                  current selection
  POST   /selection/{op}             select, sync, revert, clear or discard
  GET    /errors                     recent synchronization errors`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd.OutOrStdout(), configPath, addr)
		},
	}

	configFlag(cmd, &configPath)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, out io.Writer, configPath, addr string) error {
	ws, err := c.openWorkspace(ctx, configPath)
	if err != nil {
		return err
	}
	defer ws.Close(context.Background())

	if err := ws.load(ctx); err != nil {
		printError(out, "%s", err)
		return err
	}
	printSummary(out, ws)

	if addr == "" {
		addr = ws.cfg.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(ws, c.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	printAddr(out, addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.loop.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Logger.Info("shutting down", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
