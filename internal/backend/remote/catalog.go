package remote

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seantiz/runbox/internal/backend"
)

// FetchFunc retrieves the provider's full runtime catalog.
type FetchFunc func(ctx context.Context) ([]Runtime, error)

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithTTL sets how long a fetched catalog is reused.
func WithTTL(ttl time.Duration) CatalogOption {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the time source used for staleness checks.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = logger }
}

// Catalog caches the provider's runtime catalog. A snapshot is reused while
// it is non-empty and younger than the TTL; otherwise the next lookup fetches
// a new one and replaces it wholesale. Concurrent refreshes share one fetch.
type Catalog struct {
	fetch  FetchFunc
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.RWMutex
	runtimes  []Runtime
	fetchedAt time.Time

	group singleflight.Group
}

// NewCatalog creates a catalog backed by fetch.
func NewCatalog(fetch FetchFunc, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		fetch:  fetch,
		ttl:    DefaultCatalogTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Runtimes returns the cached catalog, fetching it first if it is empty or
// stale.
func (c *Catalog) Runtimes(ctx context.Context) ([]Runtime, error) {
	if rts, ok := c.fresh(); ok {
		return rts, nil
	}

	ch := c.group.DoChan("runtimes", func() (any, error) {
		if rts, ok := c.fresh(); ok {
			return rts, nil
		}
		rts, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			catalogFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		catalogFetches.WithLabelValues("ok").Inc()

		c.mu.Lock()
		c.runtimes = slices.Clone(rts)
		c.fetchedAt = c.now()
		c.mu.Unlock()

		c.logger.Info("runtime catalog refreshed", "runtimes", len(rts))
		return rts, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Runtime), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached returns the current snapshot without fetching.
func (c *Catalog) Cached() []Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.runtimes)
}

// Resolve maps a language identifier onto a provider runtime.
func (c *Catalog) Resolve(ctx context.Context, languageID string) (Runtime, error) {
	rts, err := c.Runtimes(ctx)
	if err != nil {
		c.logger.Warn("runtime catalog fetch failed", "error", err)
		return Runtime{}, backend.NewError(backend.ErrRemoteUnavailable, backend.PhaseCatalog,
			fmt.Sprintf("Remote execution provider unavailable: %v", err), err)
	}

	rt, ok := match(rts, Candidates(languageID))
	if !ok {
		return Runtime{}, backend.NewError(backend.ErrUnsupportedRemoteLanguage, backend.PhaseResolve,
			fmt.Sprintf("Language %q is not supported by the remote provider", languageID), nil)
	}
	return rt, nil
}

func (c *Catalog) fresh() ([]Runtime, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.runtimes) == 0 || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.runtimes, true
}
