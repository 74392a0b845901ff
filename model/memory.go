package model

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/c360studio/semagg/entity"
)

// Memory is an in-memory entity model. Every Execute, Apply or Replace call
// produces at most one change notification. Not safe for concurrent use.
type Memory struct {
	id       string
	alias    string
	baseIRI  string
	readOnly bool

	entities map[string]entity.Raw
	subs     []memorySubscriber
	nextSub  int
}

type memorySubscriber struct {
	id int
	fn entity.ChangeFunc
}

// MemoryOption configures a Memory model.
type MemoryOption func(*Memory)

// WithAlias sets the display alias.
func WithAlias(alias string) MemoryOption {
	return func(m *Memory) { m.alias = alias }
}

// WithBaseIRI sets the base IRI relative entity IRIs resolve against.
func WithBaseIRI(base string) MemoryOption {
	return func(m *Memory) { m.baseIRI = base }
}

// ReadOnly makes Execute and Apply reject every operation.
func ReadOnly() MemoryOption {
	return func(m *Memory) { m.readOnly = true }
}

// WithEntities seeds the model. No notification is sent.
func WithEntities(entities ...entity.Raw) MemoryOption {
	return func(m *Memory) {
		for _, e := range entities {
			m.entities[e.EntityID()] = entity.CloneRaw(e)
		}
	}
}

// NewMemory creates an empty in-memory model.
func NewMemory(id string, opts ...MemoryOption) *Memory {
	m := &Memory{
		id:       id,
		entities: make(map[string]entity.Raw),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) ID() string       { return m.id }
func (m *Memory) Alias() string    { return m.alias }
func (m *Memory) BaseIRI() string  { return m.baseIRI }
func (m *Memory) IsReadOnly() bool { return m.readOnly }

// Entities returns deep copies of the stored entities.
func (m *Memory) Entities() map[string]entity.Raw {
	out := make(map[string]entity.Raw, len(m.entities))
	for id, e := range m.entities {
		out[id] = entity.CloneRaw(e)
	}
	return out
}

// Subscribe registers fn for later change batches.
func (m *Memory) Subscribe(fn entity.ChangeFunc) func() {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, memorySubscriber{id: id, fn: fn})
	return func() {
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Execute applies a single operation.
func (m *Memory) Execute(op entity.Operation) entity.Result {
	results := m.Apply(op)
	return results[0]
}

// Apply applies ops in order and notifies subscribers once with the combined
// effect. Rejected operations do not stop later ones.
func (m *Memory) Apply(ops ...entity.Operation) []entity.Result {
	results := make([]entity.Result, len(ops))
	if m.readOnly {
		for i := range ops {
			results[i] = entity.Rejected(entity.ReasonNotWritable)
		}
		return results
	}

	tx := newChangeSet()
	for i, op := range ops {
		results[i] = m.apply(op, tx)
	}
	m.notify(tx)
	return results
}

func (m *Memory) apply(op entity.Operation, tx *changeSet) entity.Result {
	switch o := op.(type) {
	case entity.CreateEntity:
		if o.Entity == nil {
			return entity.Rejected(entity.ReasonInvalidOperation)
		}
		e := entity.CloneRaw(o.Entity)
		if e.EntityID() == "" {
			setID(e, uuid.New().String())
		}
		if _, exists := m.entities[e.EntityID()]; exists {
			return entity.Rejected(entity.ReasonDuplicateEntity)
		}
		m.entities[e.EntityID()] = e
		tx.update(e)
		return entity.Result{Success: true, Created: e.EntityID()}

	case entity.ModifyEntity:
		if o.Entity == nil || o.Entity.EntityID() == "" {
			return entity.Rejected(entity.ReasonInvalidOperation)
		}
		if _, exists := m.entities[o.Entity.EntityID()]; !exists {
			return entity.Rejected(entity.ReasonUnknownEntity)
		}
		e := entity.CloneRaw(o.Entity)
		m.entities[e.EntityID()] = e
		tx.update(e)
		return entity.Result{Success: true}

	case entity.DeleteEntity:
		if _, exists := m.entities[o.ID]; !exists {
			return entity.Rejected(entity.ReasonUnknownEntity)
		}
		delete(m.entities, o.ID)
		tx.remove(o.ID)
		return entity.Result{Success: true}
	}
	return entity.Rejected(entity.ReasonInvalidOperation)
}

// Replace swaps the whole content for entities, as a file reload does, and
// notifies once with the difference. It ignores the read-only flag: a
// read-only model can still be refreshed from its backing store.
func (m *Memory) Replace(entities map[string]entity.Raw) {
	tx := newChangeSet()
	for id := range m.entities {
		if _, ok := entities[id]; !ok {
			delete(m.entities, id)
			tx.remove(id)
		}
	}
	for id, e := range entities {
		if prev, ok := m.entities[id]; ok && reflect.DeepEqual(prev, e) {
			continue
		}
		c := entity.CloneRaw(e)
		m.entities[id] = c
		tx.update(c)
	}
	m.notify(tx)
}

func (m *Memory) notify(tx *changeSet) {
	if tx.empty() {
		return
	}
	updated, removed := tx.result()
	for _, s := range append([]memorySubscriber(nil), m.subs...) {
		s.fn(cloneTable(updated), append([]string(nil), removed...))
	}
}

func cloneTable(in map[string]entity.Raw) map[string]entity.Raw {
	out := make(map[string]entity.Raw, len(in))
	for id, e := range in {
		out[id] = entity.CloneRaw(e)
	}
	return out
}

// changeSet folds several operations into one batch.
type changeSet struct {
	updated map[string]entity.Raw
	removed map[string]struct{}
	order   []string
}

func newChangeSet() *changeSet {
	return &changeSet{
		updated: make(map[string]entity.Raw),
		removed: make(map[string]struct{}),
	}
}

func (c *changeSet) update(e entity.Raw) {
	id := e.EntityID()
	delete(c.removed, id)
	c.updated[id] = e
}

func (c *changeSet) remove(id string) {
	delete(c.updated, id)
	if _, ok := c.removed[id]; !ok {
		c.removed[id] = struct{}{}
		c.order = append(c.order, id)
	}
}

func (c *changeSet) empty() bool {
	return len(c.updated) == 0 && len(c.removed) == 0
}

func (c *changeSet) result() (map[string]entity.Raw, []string) {
	removed := make([]string, 0, len(c.removed))
	for _, id := range c.order {
		if _, ok := c.removed[id]; ok {
			removed = append(removed, id)
		}
	}
	return c.updated, removed
}

func setID(e entity.Raw, id string) {
	switch v := e.(type) {
	case *entity.Class:
		v.ID = id
	case *entity.ClassProfile:
		v.ID = id
	case *entity.Relationship:
		v.ID = id
	case *entity.RelationshipProfile:
		v.ID = id
	case *entity.Generalization:
		v.ID = id
	}
}
