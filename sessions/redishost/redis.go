package redishost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/mcp-api-catalog/sessions"
)

// Config for the Redis-backed Host. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys and channels. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=apicatalog:sessions:"`
	// PresenceTTL bounds how long a crashed node's sessions stay routable.
	// ENV: SESSIONS_PRESENCE_TTL
	PresenceTTL time.Duration `env:"SESSIONS_PRESENCE_TTL,default=1m"`
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// WithNodeID overrides the random node id stored in presence keys.
func WithNodeID(id string) Option {
	return func(h *Host) { h.node = id }
}

type Host struct {
	client      *redis.Client
	ownsClient  bool
	keyPrefix   string
	presenceTTL time.Duration
	node        string
	log         *slog.Logger

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// New connects to cfg.RedisAddr and verifies the connection.
func New(ctx context.Context, cfg Config, opts ...Option) (*Host, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	h := NewWithClient(cl, cfg, opts...)
	h.ownsClient = true
	return h, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv(ctx context.Context, opts ...Option) (*Host, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode redis host config: %w", err)
	}
	return New(ctx, cfg, opts...)
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(cl *redis.Client, cfg Config, opts ...Option) *Host {
	h := &Host{
		client:      cl,
		keyPrefix:   cfg.KeyPrefix,
		presenceTTL: cfg.PresenceTTL,
		node:        uuid.NewString(),
		subs:        make(map[string]*subscription),
	}
	if h.keyPrefix == "" {
		h.keyPrefix = "apicatalog:sessions:"
	}
	if h.presenceTTL <= 0 {
		h.presenceTTL = time.Minute
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// Node returns the id this host writes into presence keys.
func (h *Host) Node() string { return h.node }

// --- Key helpers ---

func (h *Host) presenceKey(sessionID string) string { return h.keyPrefix + "session:" + sessionID }
func (h *Host) inboxChannel(sessionID string) string { return h.keyPrefix + "inbox:" + sessionID }

func (h *Host) Register(ctx context.Context, sessionID string, handler sessions.MessageHandlerFunction) error {
	ok, err := h.client.SetNX(ctx, h.presenceKey(sessionID), h.node, h.presenceTTL).Result()
	if err != nil {
		return fmt.Errorf("claim session %s: %w", sessionID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", sessions.ErrSessionExists, sessionID)
	}

	ps := h.client.Subscribe(ctx, h.inboxChannel(sessionID))
	// Wait for the subscription to be confirmed so a Publish issued after
	// Register returns is counted as received.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		_ = h.client.Del(context.WithoutCancel(ctx), h.presenceKey(sessionID)).Err()
		return fmt.Errorf("subscribe session %s: %w", sessionID, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{ps: ps, cancel: cancel, done: make(chan struct{})}

	h.mu.Lock()
	h.subs[sessionID] = sub
	h.mu.Unlock()

	go h.run(runCtx, sessionID, sub, handler)
	return nil
}

// run delivers messages for one session and keeps its presence key alive.
func (h *Host) run(ctx context.Context, sessionID string, sub *subscription, handler sessions.MessageHandlerFunction) {
	defer close(sub.done)

	refresh := time.NewTicker(h.presenceTTL / 3)
	defer refresh.Stop()

	msgs := sub.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if err := h.client.Expire(ctx, h.presenceKey(sessionID), h.presenceTTL).Err(); err != nil && ctx.Err() == nil {
				h.log.WarnContext(ctx, "redishost.presence.refresh_err", slog.String("session_id", sessionID), slog.String("err", err.Error()))
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := handler(ctx, []byte(m.Payload)); err != nil {
				h.log.WarnContext(ctx, "redishost.deliver.err", slog.String("session_id", sessionID), slog.String("err", err.Error()))
			}
		}
	}
}

func (h *Host) Deregister(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	sub, ok := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return h.release(ctx, sessionID, sub)
}

func (h *Host) release(ctx context.Context, sessionID string, sub *subscription) error {
	c := context.WithoutCancel(ctx)
	err := h.client.Del(c, h.presenceKey(sessionID)).Err()
	sub.cancel()
	if cerr := sub.ps.Close(); cerr != nil && err == nil {
		err = cerr
	}
	<-sub.done
	if err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	return nil
}

func (h *Host) Publish(ctx context.Context, sessionID string, msg []byte) error {
	n, err := h.client.Exists(ctx, h.presenceKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}
	receivers, err := h.client.Publish(ctx, h.inboxChannel(sessionID), msg).Result()
	if err != nil {
		return fmt.Errorf("publish to session %s: %w", sessionID, err)
	}
	// A presence key without a subscriber belongs to a node that died
	// before its TTL ran out.
	if receivers == 0 {
		return fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}
	return nil
}

// Close deregisters every session of this node and, when the host created
// its own client, closes it.
func (h *Host) Close() error {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[string]*subscription)
	h.mu.Unlock()

	var errs []error
	for id, sub := range all {
		if err := h.release(context.Background(), id, sub); err != nil {
			errs = append(errs, err)
		}
	}
	if h.ownsClient {
		errs = append(errs, h.client.Close())
	}
	return errors.Join(errs...)
}

// Interface compliance
var _ sessions.Host = (*Host)(nil)
