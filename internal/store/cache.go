// internal/store/cache.go
//
// Read-through cache in front of a FormStore.  Form definitions change
// rarely but are read on every render, validate, and submit; a small TTL'd
// LRU keeps the hot ones out of MySQL.  Writes through this decorator
// invalidate the affected entry, so a stale definition lives at most one
// TTL on other processes.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/yanizio/formplant/internal/cache"
	"github.com/yanizio/formplant/internal/form"
)

// CachedForms decorates a FormStore with an LRU of *form.Form by ID.
type CachedForms struct {
	inner FormStore

	mu  sync.Mutex
	lru *cache.LRU
}

// NewCachedForms wraps inner.  capacity bounds the number of cached
// definitions; ttl bounds staleness across processes.
func NewCachedForms(inner FormStore, capacity int, ttl time.Duration) *CachedForms {
	return &CachedForms{inner: inner, lru: cache.New(capacity, ttl)}
}

func (c *CachedForms) GetForm(ctx context.Context, id int64) (*form.Form, error) {
	c.mu.Lock()
	if v, ok := c.lru.Get(id); ok {
		c.mu.Unlock()
		return v.(*form.Form), nil
	}
	c.mu.Unlock()

	fm, err := c.inner.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lru.Add(id, fm)
	c.mu.Unlock()
	return fm, nil
}

// ListForms always reads through; listings are admin traffic.
func (c *CachedForms) ListForms(ctx context.Context, filter FormFilter) ([]form.Form, error) {
	return c.inner.ListForms(ctx, filter)
}

func (c *CachedForms) UpsertForm(ctx context.Context, fm *form.Form) error {
	if err := c.inner.UpsertForm(ctx, fm); err != nil {
		return err
	}
	c.invalidate(fm.ID)
	return nil
}

func (c *CachedForms) SaveFormMeta(ctx context.Context, formID int64, section string, value any) error {
	if err := c.inner.SaveFormMeta(ctx, formID, section, value); err != nil {
		return err
	}
	c.invalidate(formID)
	return nil
}

func (c *CachedForms) invalidate(id int64) {
	c.mu.Lock()
	c.lru.Remove(id)
	c.mu.Unlock()
}
