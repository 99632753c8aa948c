package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphsync/internal/config"
	"github.com/matzehuels/graphsync/pkg/buildinfo"
	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/engine"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/events"
	"github.com/matzehuels/graphsync/pkg/loop"
)

const (
	// appName is the application name used for display.
	appName = "graphsync"

	// defaultConfigFile is read when --config is not given.
	defaultConfigFile = "graphsync.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// status receives spinner output.
	status io.Writer
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), status: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "graphsync keeps diagrams in sync with backend resources",
		Long:         `graphsync loads a node-and-link diagram from a backend store, keeps every node and link correlated with the entity or relation it stands for, and saves the layout back as the diagram changes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.loadCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace
// =============================================================================

// workspace is one configured session: backend store, loop, surface and
// engine.
type workspace struct {
	cfg     *config.Config
	store   *config.Store
	loop    *loop.Loop
	surface *diagram.Memory
	engine  *engine.Engine

	// errs collects application errors. Only touched on the loop.
	errs []events.ApplicationError
}

// openWorkspace loads the configuration at path and wires a workspace.
func (c *CLI) openWorkspace(ctx context.Context, path string) (*workspace, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return c.newWorkspace(ctx, cfg)
}

func (c *CLI) newWorkspace(ctx context.Context, cfg *config.Config) (*workspace, error) {
	store, err := cfg.Backend.Open(ctx, c.Logger)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open %s backend", cfg.Backend.Kind)
	}

	l := loop.New(c.Logger)
	surface := diagram.NewMemory()
	ws := &workspace{
		cfg:     cfg,
		store:   store,
		loop:    l,
		surface: surface,
		engine:  engine.New(ctx, engine.Config{Loop: l, Client: store, Surface: surface, Logger: c.Logger}),
	}
	events.On(ws.engine.Bus(), func(e events.ApplicationError) {
		ws.errs = append(ws.errs, e)
	})
	return ws, nil
}

// load runs the session load to completion. The loop must not be running.
func (w *workspace) load(ctx context.Context) error {
	if err := w.engine.Load(ctx, w.cfg.Descriptor()); err != nil {
		return err
	}
	if err := w.loop.RunUntilIdle(ctx); err != nil {
		return err
	}
	if len(w.errs) > 0 {
		return w.errs[0].Err
	}
	if !w.engine.Loaded() {
		return errors.New(errors.ErrCodeLoadFailure, "load did not complete")
	}
	return nil
}

func (w *workspace) Close(ctx context.Context) error {
	return w.store.Close(ctx)
}
