package composition

import (
	"log/slog"

	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/resolver"
)

// contribution is what a node derives for one id from its children: the raw
// entity to resolve and the provenance to publish with it.
type contribution struct {
	raw entity.Raw
	// unresolved stands in for raw when a child published an id it could
	// not read.
	unresolved *entity.Unresolved
	sources  []Descriptor
	readOnly bool
}

// core holds the state every composition node shares: the combined raw
// table, the published wrappers and the listener set. combine decides, per
// id, what the children contribute.
type core struct {
	name    string
	logger  *slog.Logger
	combine func(id string) (contribution, bool)

	raws     resolver.Table
	meta     map[string]contribution
	entities map[string]*Wrapper

	subs  Subscribers
	guard Guard

	// passes counts recompute passes, for tests and diagnostics.
	passes int
}

func newCore(name string, logger *slog.Logger) core {
	if logger == nil {
		logger = slog.Default()
	}
	return core{
		name:     name,
		logger:   logger,
		raws:     make(resolver.Table),
		meta:     make(map[string]contribution),
		entities: make(map[string]*Wrapper),
	}
}

// Entities returns the published wrappers.
func (c *core) Entities() map[string]*Wrapper {
	return copyEntities(c.entities)
}

// LocalEntity returns the wrapper published under id.
func (c *core) LocalEntity(id string) (*Wrapper, bool) {
	w, ok := c.entities[id]
	return w, ok
}

// Subscribe registers l for later change batches.
func (c *core) Subscribe(l Listener) Unsubscribe {
	return c.subs.Add(l)
}

// Passes returns the number of recompute passes run so far.
func (c *core) Passes() int { return c.passes }

// recompute schedules ids. Requests arriving during a pass are folded into
// one follow-up pass.
func (c *core) recompute(ids []string) {
	if len(ids) == 0 {
		return
	}
	c.guard.Run(ids, c.pass)
}

func (c *core) onChildChange(updated map[string]*Wrapper, removed []string) {
	ids := make([]string, 0, len(updated)+len(removed))
	for id := range updated {
		ids = append(ids, id)
	}
	ids = append(ids, removed...)
	c.recompute(ids)
}

func (c *core) pass(ids []string) {
	c.passes++
	for _, id := range ids {
		contrib, ok := c.combine(id)
		if !ok || (contrib.raw == nil && contrib.unresolved == nil) {
			delete(c.raws, id)
			delete(c.meta, id)
			continue
		}
		if contrib.raw != nil {
			c.raws[id] = contrib.raw
		} else {
			delete(c.raws, id)
		}
		c.meta[id] = contrib
	}

	affected := resolver.Dependents(ids, c.raws)
	next := make(map[string]*Wrapper, len(affected))
	for _, id := range affected {
		contrib, ok := c.meta[id]
		if !ok {
			continue
		}
		var agg entity.Aggregated = contrib.unresolved
		if contrib.raw != nil {
			agg = Resolve(id, c.raws, c.logger)
		}
		next[id] = &Wrapper{
			Entity:   agg,
			Raw:      contrib.raw,
			Sources:  contrib.sources,
			ReadOnly: contrib.readOnly,
		}
	}

	updated, removed := Diff(c.entities, next, affected)
	c.logger.Debug("Composition recomputed",
		"node", c.name,
		"affected", len(affected),
		"updated", len(updated),
		"removed", len(removed))
	c.subs.Notify(updated, removed)
}

// placeholder is the contribution of a wrapper published without a raw
// entity.
func placeholder(w *Wrapper) (contribution, bool) {
	u, ok := w.Entity.(*entity.Unresolved)
	if !ok || u == nil {
		return contribution{}, false
	}
	return contribution{unresolved: u, sources: w.Sources, readOnly: true}, true
}

func entityIDs(m map[string]*Wrapper) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}
