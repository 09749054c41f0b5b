package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/mcp-api-catalog/rpc"
	"github.com/ggoodman/mcp-api-catalog/stdio"
)

// StdioCmd serves a single client over stdin and stdout. Logs always go to
// stderr so they never corrupt the protocol stream.
type StdioCmd struct{}

func (c *StdioCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	log := g.logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := g.store(cfg, log)
	if _, err := store.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial catalog build: %w", err)
	}
	if cfg.Watch && len(cfg.OpenAPIFiles) > 0 {
		go func() {
			if err := store.Watch(ctx, cfg.OpenAPIFiles...); err != nil {
				log.ErrorContext(ctx, "catalog.watch.err", slog.String("err", err.Error()))
			}
		}()
	}

	d := rpc.New(store,
		rpc.WithServerInfo(cfg.ServerName, cfg.ServerVersion),
		rpc.WithLogger(log),
	)
	err = stdio.NewHandler(d, stdio.WithLogger(log)).Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
