package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jask/ledgerrecon/internal/database/repository"
	"github.com/jask/ledgerrecon/internal/recon"
)

// ViewKey identifies one materialized view. Filter must already be normalized
// so that equivalent spellings share an entry.
type ViewKey struct {
	Country        string
	IncludeDeleted bool
	Filter         string
}

// String renders the key with the country first, which is what makes prefix
// invalidation per country possible.
func (k ViewKey) String() string {
	return fmt.Sprintf("%s|%t|%s", k.Country, k.IncludeDeleted, k.Filter)
}

// ViewCache retains one row slice per key and coalesces concurrent builds of
// the same key into a single computation. It is an instance, not package
// state; the service owns exactly one.
type ViewCache struct {
	mu      sync.RWMutex
	entries map[ViewKey][]recon.ViewRow
	flight  singleflight.Group
}

func NewViewCache() *ViewCache {
	return &ViewCache{entries: make(map[ViewKey][]recon.ViewRow)}
}

// Get returns the cached rows, building them at most once per key however
// many callers arrive together. A cancelled caller stops waiting; the
// in-flight build keeps running for everyone else. Callers must treat the
// returned slice as read-only.
func (c *ViewCache) Get(ctx context.Context, key ViewKey, build func() ([]recon.ViewRow, error)) ([]recon.ViewRow, error) {
	c.mu.RLock()
	rows, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return rows, nil
	}

	ch := c.flight.DoChan(key.String(), func() (any, error) {
		// Re-check under the flight: a patch or a prior build may have
		// populated the entry while this caller queued.
		c.mu.RLock()
		cached, hit := c.entries[key]
		c.mu.RUnlock()
		if hit {
			return cached, nil
		}
		built, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = built
		c.mu.Unlock()
		return built, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]recon.ViewRow), nil
	}
}

// Patch overwrites the reconciliation-derived fields of matching rows in
// every cached entry, by ID. Copy-on-write: each touched entry is replaced by
// a fresh slice, so a reader holding an already-returned slice sees either
// the pre-patch or post-patch rows, never a torn one. Grouping-derived flags
// are deliberately not recomputed here; linkage-changing saves take the
// invalidation path instead.
func (c *ViewCache) Patch(records []repository.ReconRecord) {
	if len(records) == 0 {
		return
	}
	byID := make(map[string]repository.ReconRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, rows := range c.entries {
		touched := false
		for i := range rows {
			if _, ok := byID[rows[i].ID()]; ok {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		next := make([]recon.ViewRow, len(rows))
		copy(next, rows)
		for i := range next {
			if rec, ok := byID[next[i].ID()]; ok {
				next[i].Record = rec
			}
		}
		c.entries[key] = next
	}
}

// Invalidate drops every entry whose key starts with the country prefix; an
// empty country drops everything.
func (c *ViewCache) Invalidate(country string) {
	prefix := strings.ToUpper(strings.TrimSpace(country))
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix == "" {
		c.entries = make(map[ViewKey][]recon.ViewRow)
		return
	}
	for key := range c.entries {
		if strings.HasPrefix(key.String(), prefix+"|") {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of cached entries.
func (c *ViewCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
