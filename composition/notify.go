package composition

import (
	"fmt"
	"log/slog"

	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/resolver"
)

type subscriber struct {
	id int
	fn Listener
}

// Subscribers is an ordered listener set. The zero value is ready to use.
type Subscribers struct {
	nextID  int
	entries []subscriber
}

// Add registers l and returns its Unsubscribe.
func (s *Subscribers) Add(l Listener) Unsubscribe {
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, subscriber{id: id, fn: l})
	return func() {
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered listeners.
func (s *Subscribers) Len() int { return len(s.entries) }

// Notify calls every listener once, in registration order. Empty batches are
// not delivered. Listeners added during delivery see only later batches.
func (s *Subscribers) Notify(updated map[string]*Wrapper, removed []string) {
	if len(updated) == 0 && len(removed) == 0 {
		return
	}
	for _, e := range append([]subscriber(nil), s.entries...) {
		e.fn(updated, removed)
	}
}

// Guard serializes recomputation of one node. A request that arrives while a
// pass is running (a listener mutating a model, for example) is queued, and
// exactly one more pass covers everything queued in the meantime.
type Guard struct {
	running bool
	pending map[string]struct{}
	order   []string
}

// Run schedules ids and, unless a pass is already running, runs pass until
// nothing is pending. It returns the number of passes run by this call.
func (g *Guard) Run(ids []string, pass func(ids []string)) int {
	if g.pending == nil {
		g.pending = make(map[string]struct{})
	}
	for _, id := range ids {
		if _, ok := g.pending[id]; !ok {
			g.pending[id] = struct{}{}
			g.order = append(g.order, id)
		}
	}
	if g.running {
		return 0
	}

	g.running = true
	defer func() { g.running = false }()

	passes := 0
	for len(g.order) > 0 {
		batch := g.order
		g.order = nil
		g.pending = make(map[string]struct{})
		pass(batch)
		passes++
	}
	return passes
}

// Running reports whether a pass is in progress.
func (g *Guard) Running() bool { return g.running }

// Resolve runs resolver.ResolveEntity and degrades any failure, panics
// included, to an entity.Unresolved placeholder.
func Resolve(id string, table resolver.Table, logger *slog.Logger) (agg entity.Aggregated) {
	defer func() {
		if r := recover(); r != nil {
			agg = unresolved(id, table, fmt.Sprintf("panic: %v", r))
			logger.Warn("Entity resolution panicked", "id", id, "panic", r)
		}
	}()

	agg, err := resolver.ResolveEntity(id, table)
	if err != nil {
		logger.Warn("Entity left unresolved", "id", id, "error", err)
		return unresolved(id, table, err.Error())
	}
	return agg
}

func unresolved(id string, table resolver.Table, reason string) *entity.Unresolved {
	u := &entity.Unresolved{Header: entity.Header{ID: id}, Reason: reason}
	if raw := table[id]; raw != nil {
		u.Kind = raw.Kind()
	}
	return u
}
