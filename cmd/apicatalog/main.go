package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/config"
	"github.com/ggoodman/mcp-api-catalog/examples/petstore"
	"github.com/ggoodman/mcp-api-catalog/internal/logctx"
	"github.com/ggoodman/mcp-api-catalog/openapisource"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the catalog over SSE and the REST mirror."`
	Stdio   StdioCmd   `cmd:"" help:"Serve a single client over stdin and stdout."`
	Dump    DumpCmd    `cmd:"" help:"Build the catalog once and print it as JSON."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// Globals are the flags shared by every command.
type Globals struct {
	Config   string   `help:"Path to a YAML configuration file." short:"c" type:"existingfile" env:"APICATALOG_CONFIG"`
	OpenAPI  []string `help:"OpenAPI document to catalog (repeatable)." name:"openapi"`
	Petstore bool     `help:"Include the built-in pet shop endpoints."`
	LogLevel string   `help:"Override the configured log level (debug, info, warn, error)."`
}

// load resolves the configuration and applies flag overrides on top.
func (g *Globals) load() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, err
	}
	if len(g.OpenAPI) > 0 {
		cfg.OpenAPIFiles = g.OpenAPI
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (g *Globals) logger(cfg config.Config) *slog.Logger {
	return logctx.Wrap(slog.New(cfg.Handler(os.Stderr)))
}

// store assembles the catalog sources named by cfg and the flags.
func (g *Globals) store(cfg config.Config, log *slog.Logger) *catalog.Store {
	var providers catalog.MultiProvider
	if len(cfg.OpenAPIFiles) > 0 {
		providers = append(providers, openapisource.New(cfg.OpenAPIFiles, openapisource.WithLogger(log)))
	}
	if g.Petstore {
		providers = append(providers, petstore.Registry())
	}
	describer := catalog.NewDescriber(
		catalog.WithResolver(&typemodel.Resolver{MaxDepth: cfg.MaxDepth, Logger: log}),
		catalog.WithDescriberLogger(log),
	)
	return catalog.NewStore(providers,
		catalog.WithDescriber(describer),
		catalog.WithStoreLogger(log),
	)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("apicatalog"),
		kong.Description("Serve API endpoint documentation to MCP clients."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
