package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ggoodman/mcp-api-catalog/metrics"
)

// Store publishes the current Catalog. Readers always see a complete
// catalog: rebuilds are swapped in with a single pointer store.
type Store struct {
	provider  DescriptorProvider
	describer *Describer
	log       *slog.Logger
	debounce  time.Duration

	current atomic.Pointer[Catalog]
	// mu serializes rebuilds.
	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithDescriber sets the describer used for rebuilds.
func WithDescriber(d *Describer) StoreOption {
	return func(s *Store) { s.describer = d }
}

// WithWatchDebounce sets how long Watch waits for file events to settle.
func WithWatchDebounce(d time.Duration) StoreOption {
	return func(s *Store) { s.debounce = d }
}

// NewStore returns a Store over p. Current returns an empty catalog until
// the first successful Rebuild.
func NewStore(p DescriptorProvider, opts ...StoreOption) *Store {
	s := &Store{provider: p, debounce: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.describer == nil {
		s.describer = NewDescriber(WithDescriberLogger(s.log))
	}
	s.current.Store(New())
	return s
}

// Current returns the published catalog. It is never nil.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Rebuild pulls descriptors, builds a new catalog and publishes it. On
// error the previously published catalog stays in place.
func (s *Store) Rebuild(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if s.provider == nil {
		err := errors.New("no descriptor provider configured")
		metrics.ObserveCatalogBuild(0, time.Since(start), err)
		return nil, err
	}
	descs, err := s.provider.Descriptors(ctx)
	if err != nil {
		metrics.ObserveCatalogBuild(0, time.Since(start), err)
		s.log.ErrorContext(ctx, "catalog.rebuild.err", slog.String("err", err.Error()))
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	c := Build(ctx, descs, s.describer)
	s.current.Store(c)

	elapsed := time.Since(start)
	metrics.ObserveCatalogBuild(c.Len(), elapsed, nil)
	s.log.InfoContext(ctx, "catalog.rebuild.ok",
		slog.Int("descriptors", len(descs)),
		slog.Int("endpoints", c.Len()),
		slog.Duration("took", elapsed),
	)
	return c, nil
}
