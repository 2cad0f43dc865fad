// Package refdata caches backend reference data (course labels and visit
// type labels) for the lifetime of the process. The cache is an explicit
// object handed to the components that need it, not a package-level
// singleton; there is no TTL, only Invalidate.
package refdata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

// Labels is the reference data the portal renders pickers and tables from.
type Labels struct {
	// Courses are the service package labels, in backend order.
	Courses []string
	// VisitTypes maps the visit type key to its display label.
	VisitTypes map[string]string
}

// Cache lazily fetches Labels on first use and serves the same copy
// afterwards.
type Cache struct {
	gw *gateway.Client

	mu     sync.Mutex
	loaded bool
	labels Labels
}

// NewCache creates an empty cache backed by the gateway.
func NewCache(gw *gateway.Client) *Cache {
	return &Cache{gw: gw}
}

// Labels returns the cached reference data, fetching it on first call. Both
// lists are fetched concurrently; a failure of either leaves the cache
// unpopulated so the next call retries.
func (c *Cache) Labels(ctx context.Context) (Labels, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.labels, nil
	}

	var (
		courses    []string
		visitTypes map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = c.fetchCourses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		visitTypes, err = c.fetchVisitTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Labels{}, err
	}

	c.labels = Labels{Courses: courses, VisitTypes: visitTypes}
	c.loaded = true
	return c.labels, nil
}

// Invalidate drops the cached data so the next Labels call refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.labels = Labels{}
}

func (c *Cache) fetchCourses(ctx context.Context) ([]string, error) {
	env, err := c.gw.Call(ctx, "listCourses", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Courses []string `json:"courses"`
	}
	if err := gateway.DecodeData(env, &payload); err != nil {
		return nil, err
	}
	return payload.Courses, nil
}

func (c *Cache) fetchVisitTypes(ctx context.Context) (map[string]string, error) {
	env, err := c.gw.Call(ctx, "listVisitTypes", nil)
	if err != nil {
		return nil, err
	}
	type row struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
	rows, err := gateway.DecodeRows[row](env)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.Key] = r.Label
	}
	return m, nil
}
