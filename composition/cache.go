package composition

import (
	"log/slog"

	"github.com/c360studio/semagg/entity"
)

// Cache prefers entries of the live model child and falls back to the caches
// child, which holds materialized snapshots of vocabularies not composed live.
// Entities are resolved over the combined table so profiling into a cached
// vocabulary still resolves.
type Cache struct {
	core

	model  Node
	caches Node

	unsubModel  Unsubscribe
	unsubCaches Unsubscribe
}

// NewCache creates a cache node.
func NewCache(logger *slog.Logger, model, caches Node) *Cache {
	c := &Cache{
		core:   newCore("cache", logger),
		model:  model,
		caches: caches,
	}
	c.combine = c.contribution
	c.unsubModel = model.Subscribe(c.onChildChange)
	c.unsubCaches = caches.Subscribe(c.onChildChange)

	ids := entityIDs(model.Entities())
	ids = append(ids, entityIDs(caches.Entities())...)
	c.recompute(ids)
	return c
}

// Model returns the live child.
func (c *Cache) Model() Node { return c.model }

// Caches returns the snapshot child.
func (c *Cache) Caches() Node { return c.caches }

// ExecOperation forwards op to the live model. Snapshots are never written.
func (c *Cache) ExecOperation(op entity.Operation) entity.Result {
	return c.model.ExecOperation(op)
}

// Close detaches from and closes both children.
func (c *Cache) Close() {
	if c.unsubModel != nil {
		c.unsubModel()
		c.unsubCaches()
		c.unsubModel, c.unsubCaches = nil, nil
		c.model.Close()
		c.caches.Close()
	}
}

func (c *Cache) contribution(id string) (contribution, bool) {
	if w, ok := c.model.LocalEntity(id); ok && w.Raw != nil {
		return contribution{raw: w.Raw, sources: w.Sources, readOnly: w.ReadOnly}, true
	}
	if w, ok := c.caches.LocalEntity(id); ok && w.Raw != nil {
		return contribution{raw: w.Raw, sources: w.Sources, readOnly: true}, true
	}
	if w, ok := c.model.LocalEntity(id); ok {
		return placeholder(w)
	}
	if w, ok := c.caches.LocalEntity(id); ok {
		return placeholder(w)
	}
	return contribution{}, false
}
