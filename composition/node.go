// Package composition combines entity views into one: Merge unions sibling
// views, ApplicationProfile overlays profiles on a base vocabulary, and Cache
// falls back to materialized snapshots. Every node satisfies Node, so trees of
// arbitrary depth compose uniformly.
//
// Nodes are synchronous and not safe for concurrent use. A change in a child is
// recomputed inline and forwarded to the node's listeners before the mutating
// call returns.
package composition

import (
	"reflect"

	"github.com/c360studio/semagg/entity"
)

// Descriptor names one model in a provenance chain.
type Descriptor struct {
	ModelID     string `json:"modelId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// Wrapper is the unit every node publishes. Published wrappers are never
// mutated; a change produces a new wrapper.
type Wrapper struct {
	Entity entity.Aggregated `json:"aggregatedEntity"`
	// Raw is the absolutized raw entity Entity was derived from.
	Raw      entity.Raw   `json:"-"`
	Sources  []Descriptor `json:"sources"`
	ReadOnly bool         `json:"isReadOnly"`
}

// Clone returns a deep copy of w.
func (w *Wrapper) Clone() *Wrapper {
	if w == nil {
		return nil
	}
	return &Wrapper{
		Entity:   entity.CloneAggregated(w.Entity),
		Raw:      entity.CloneRaw(w.Raw),
		Sources:  append([]Descriptor(nil), w.Sources...),
		ReadOnly: w.ReadOnly,
	}
}

// Listener receives one change batch: wrappers added or changed, ids removed.
type Listener func(updated map[string]*Wrapper, removed []string)

// Unsubscribe detaches a listener. Calling it twice is harmless.
type Unsubscribe func()

// Node is the read and subscribe contract shared by source adapters and
// composition nodes.
type Node interface {
	// Entities returns the current wrappers keyed by id. The map is a copy;
	// the wrappers are shared and must not be modified.
	Entities() map[string]*Wrapper
	// LocalEntity returns the wrapper published under id.
	LocalEntity(id string) (*Wrapper, bool)
	// Subscribe registers l for later change batches.
	Subscribe(l Listener) Unsubscribe
	// ExecOperation forwards a mutating operation to the writable model
	// behind the node, or rejects it.
	ExecOperation(op entity.Operation) entity.Result
	// Close releases the node's subscriptions to its children.
	Close()
}

// sameWrapper reports whether publishing b in place of a would be a no-op.
func sameWrapper(a, b *Wrapper) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ReadOnly == b.ReadOnly &&
		reflect.DeepEqual(a.Sources, b.Sources) &&
		reflect.DeepEqual(a.Entity, b.Entity) &&
		reflect.DeepEqual(a.Raw, b.Raw)
}

// Diff applies next to current for the given ids and returns the batch to
// publish. Ids with a nil entry in next are removed. current is updated in
// place.
func Diff(current map[string]*Wrapper, next map[string]*Wrapper, ids []string) (map[string]*Wrapper, []string) {
	updated := make(map[string]*Wrapper)
	var removed []string
	for _, id := range ids {
		w := next[id]
		prev, existed := current[id]
		switch {
		case w == nil && existed:
			delete(current, id)
			removed = append(removed, id)
		case w == nil:
		case !existed || !sameWrapper(prev, w):
			current[id] = w
			updated[id] = w
		}
	}
	return updated, removed
}

func copyEntities(m map[string]*Wrapper) map[string]*Wrapper {
	out := make(map[string]*Wrapper, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
