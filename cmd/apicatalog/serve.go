package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ggoodman/mcp-api-catalog/httpapi"
	"github.com/ggoodman/mcp-api-catalog/metrics"
	"github.com/ggoodman/mcp-api-catalog/rpc"
	"github.com/ggoodman/mcp-api-catalog/sessions/redishost"
	"github.com/ggoodman/mcp-api-catalog/sse"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	Addr  string `help:"Listen address; overrides the configured one."`
	Watch bool   `help:"Rebuild the catalog when an OpenAPI document changes."`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	log := g.logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)
	metrics.SetBuildInfo(Version())

	store := g.store(cfg, log)
	cat, err := store.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("initial catalog build: %w", err)
	}
	log.InfoContext(ctx, "catalog.ready", slog.Int("endpoints", cat.Len()))

	if (cfg.Watch || c.Watch) && len(cfg.OpenAPIFiles) > 0 {
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

	mux := http.NewServeMux()
	var stream *sse.Handler
	apiOpts := []httpapi.Option{httpapi.WithLogger(log)}

	if cfg.Enabled {
		opts := []sse.Option{
			sse.WithSSEPath(cfg.SSEPath),
			sse.WithMessagePath(cfg.MessagePath),
			sse.WithKeepAlive(cfg.KeepAlive),
			sse.WithLogger(log),
		}
		if cfg.RedisAddr != "" {
			host, err := redishost.New(ctx, redishost.Config{
				RedisAddr:   cfg.RedisAddr,
				KeyPrefix:   cfg.RedisKeyPrefix,
				PresenceTTL: time.Minute,
			}, redishost.WithLogger(log))
			if err != nil {
				return fmt.Errorf("connect session host: %w", err)
			}
			defer func() {
				if err := host.Close(); err != nil {
					log.WarnContext(ctx, "sessions.host.close.err", slog.String("err", err.Error()))
				}
			}()
			opts = append(opts, sse.WithHost(host), sse.WithNodeID(host.Node()))
		}
		stream = sse.New(d, opts...)
		mux.Handle(cfg.SSEPath, stream)
		mux.Handle(cfg.MessagePath, stream)
		apiOpts = append(apiOpts, httpapi.WithSessionCount(stream.SessionCount))
	}
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", httpapi.New(d, store, apiOpts...))

	var handler http.Handler = mux
	if len(cfg.AllowedOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
			MaxAge:         300,
		})(handler)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "server.listen",
			slog.String("addr", cfg.Addr),
			slog.Bool("sse", cfg.Enabled),
			slog.String("version", Version()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Open streams never finish on their own, so they are closed before the
	// server waits for in-flight requests.
	if stream != nil {
		if err := stream.Shutdown(shutdownCtx); err != nil {
			log.Warn("sse.shutdown.err", slog.String("err", err.Error()))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
