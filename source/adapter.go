// Package source wraps a single raw entity model as a searchable, subscribable
// vocabulary: the leaf of every composition tree.
package source

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/resolver"
)

// Adapter mirrors one entity.Model. It absolutizes entity IRIs against the
// model's base IRI, tags every entity with the model's descriptor and emits
// only real changes to its own listeners.
type Adapter struct {
	model      entity.Model
	descriptor composition.Descriptor
	logger     *slog.Logger

	raws     resolver.Table
	entities map[string]*composition.Wrapper
	// malformed holds the reason for every id whose raw entity could not be
	// read. Those ids are published as entity.Unresolved.
	malformed map[string]string

	subs  composition.Subscribers
	guard composition.Guard

	// Changes received while a pass is running, applied by the next pass.
	pendingUpdated map[string]entity.Raw
	pendingRemoved map[string]struct{}

	unsubscribe func()
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDisplayName overrides the display name taken from the model alias.
func WithDisplayName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.descriptor.DisplayName = name
		}
	}
}

// NewAdapter wraps model and subscribes to its changes.
func NewAdapter(model entity.Model, opts ...Option) *Adapter {
	name := model.Alias()
	if name == "" {
		name = model.ID()
	}
	a := &Adapter{
		model: model,
		descriptor: composition.Descriptor{
			ModelID:     model.ID(),
			DisplayName: name,
			Color:       ColorForModelID(model.ID()),
		},
		logger:         slog.Default(),
		raws:           make(resolver.Table),
		entities:       make(map[string]*composition.Wrapper),
		malformed:      make(map[string]string),
		pendingUpdated: make(map[string]entity.Raw),
		pendingRemoved: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.onModelChange(model.Entities(), nil)
	a.unsubscribe = model.Subscribe(a.onModelChange)
	return a
}

// Model returns the wrapped model.
func (a *Adapter) Model() entity.Model { return a.model }

// Descriptor returns the provenance descriptor of the wrapped model.
func (a *Adapter) Descriptor() composition.Descriptor { return a.descriptor }

// Entities returns all local wrappers.
func (a *Adapter) Entities() map[string]*composition.Wrapper {
	out := make(map[string]*composition.Wrapper, len(a.entities))
	for k, v := range a.entities {
		out[k] = v
	}
	return out
}

// LocalEntity returns the wrapper stored under id.
func (a *Adapter) LocalEntity(id string) (*composition.Wrapper, bool) {
	w, ok := a.entities[id]
	return w, ok
}

// Subscribe registers l for change batches of this adapter.
func (a *Adapter) Subscribe(l composition.Listener) composition.Unsubscribe {
	return a.subs.Add(l)
}

// Close detaches the adapter from its model.
func (a *Adapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// ExecOperation forwards op to the model when it is writable.
func (a *Adapter) ExecOperation(op entity.Operation) entity.Result {
	wm, ok := a.model.(entity.WritableModel)
	if !ok {
		return entity.Rejected(entity.ReasonNotWritable)
	}
	return wm.Execute(op)
}

func (a *Adapter) onModelChange(updated map[string]entity.Raw, removed []string) {
	ids := make([]string, 0, len(updated)+len(removed))
	for id, raw := range updated {
		a.pendingUpdated[id] = raw
		delete(a.pendingRemoved, id)
		ids = append(ids, id)
	}
	for _, id := range removed {
		a.pendingRemoved[id] = struct{}{}
		delete(a.pendingUpdated, id)
		ids = append(ids, id)
	}
	a.guard.Run(ids, a.pass)
}

func (a *Adapter) pass(ids []string) {
	base := a.model.BaseIRI()
	for _, id := range ids {
		if raw, ok := a.pendingUpdated[id]; ok {
			delete(a.pendingUpdated, id)
			abs, err := absolutize(raw, base)
			if err != nil {
				delete(a.raws, id)
				a.malformed[id] = err.Error()
				a.logger.Warn("Malformed entity left unresolved",
					"model", a.descriptor.ModelID, "id", id, "error", err)
				continue
			}
			delete(a.malformed, id)
			a.raws[id] = abs
			continue
		}
		if _, ok := a.pendingRemoved[id]; ok {
			delete(a.raws, id)
			delete(a.malformed, id)
			delete(a.pendingRemoved, id)
		}
	}

	affected := resolver.Dependents(ids, a.raws)
	next := make(map[string]*composition.Wrapper, len(affected))
	for _, id := range affected {
		if reason, ok := a.malformed[id]; ok {
			next[id] = &composition.Wrapper{
				Entity:   &entity.Unresolved{Header: entity.Header{ID: id}, Reason: reason},
				Sources:  []composition.Descriptor{a.descriptor},
				ReadOnly: true,
			}
			continue
		}
		raw, ok := a.raws[id]
		if !ok {
			continue
		}
		next[id] = &composition.Wrapper{
			Entity:   composition.Resolve(id, a.raws, a.logger),
			Raw:      raw,
			Sources:  []composition.Descriptor{a.descriptor},
			ReadOnly: true,
		}
	}

	updated, removed := composition.Diff(a.entities, next, affected)
	a.logger.Debug("Vocabulary recomputed",
		"model", a.descriptor.ModelID,
		"affected", len(affected),
		"updated", len(updated),
		"removed", len(removed))
	a.subs.Notify(updated, removed)
}

var errNilEntity = errors.New("nil entity")

// absolutize is Absolutize for entities handed out by a model the adapter
// does not control.
func absolutize(raw entity.Raw, base string) (out entity.Raw, err error) {
	if entity.IsNil(raw) {
		return nil, errNilEntity
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("malformed entity: %v", r)
		}
	}()
	return Absolutize(raw, base), nil
}
