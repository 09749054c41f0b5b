package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ggoodman/mcp-api-catalog/catalog"
)

type DumpCmd struct {
	Category string `help:"Only endpoints in this category."`
	Method   string `help:"Only endpoints with this HTTP method."`
	Keyword  string `help:"Only endpoints whose title, description or URL contains this." short:"k"`
}

func (c *DumpCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	log := g.logger(cfg)

	cat, err := g.store(cfg, log).Rebuild(context.Background())
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	docs := cat.Filter(catalog.Filter{Category: c.Category, Method: c.Method, Keyword: c.Keyword})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
