// Package aggregator exposes a composition tree to consumers as a View: a
// snapshot of aggregated entities plus a change feed delivering one batch per
// observable mutation. Builder assembles views from declarative
// configurations.
package aggregator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/source"
)

var (
	// ErrNotMergeRoot is returned by AddModel and RemoveModel when the root
	// node is not a merge.
	ErrNotMergeRoot = errors.New("root node is not a merge")
	// ErrDuplicateModel is returned when AddModel is given a model id that
	// was already added.
	ErrDuplicateModel = errors.New("model already added")
)

// View is the consumer facade over a composition tree. Like the tree, it is
// not safe for concurrent use.
type View struct {
	root    composition.Node
	merge   *composition.Merge
	logger  *slog.Logger
	metrics *Metrics

	snapshot map[string]*composition.Wrapper
	subs     composition.Subscribers
	added    map[string]*source.Adapter

	delivering     bool
	pendingUpdated map[string]*composition.Wrapper
	pendingRemoved map[string]struct{}
	pendingOrder   []string

	unsubscribe composition.Unsubscribe
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithLogger sets the view logger.
func WithLogger(logger *slog.Logger) ViewOption {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMetrics records view activity into m.
func WithMetrics(m *Metrics) ViewOption {
	return func(v *View) { v.metrics = m }
}

// NewView wraps root. The view takes ownership of root and closes it on
// Close.
func NewView(root composition.Node, opts ...ViewOption) *View {
	v := &View{
		root:           root,
		logger:         slog.Default(),
		snapshot:       root.Entities(),
		added:          make(map[string]*source.Adapter),
		pendingUpdated: make(map[string]*composition.Wrapper),
		pendingRemoved: make(map[string]struct{}),
	}
	if m, ok := root.(*composition.Merge); ok {
		v.merge = m
	}
	for _, opt := range opts {
		opt(v)
	}
	v.unsubscribe = root.Subscribe(v.onRootChange)
	v.metrics.setEntities(len(v.snapshot))
	return v
}

// Root returns the composition tree behind the view.
func (v *View) Root() composition.Node { return v.root }

// Entities returns a copy of the snapshot. The wrappers are copies too, so
// callers may modify them freely.
func (v *View) Entities() map[string]*composition.Wrapper {
	out := make(map[string]*composition.Wrapper, len(v.snapshot))
	for id, w := range v.snapshot {
		out[id] = w.Clone()
	}
	return out
}

// Entity returns a copy of the wrapper stored under id.
func (v *View) Entity(id string) (*composition.Wrapper, bool) {
	w, ok := v.snapshot[id]
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// Len returns the number of entities in the snapshot.
func (v *View) Len() int { return len(v.snapshot) }

// Subscribe registers l. Each externally observable mutation reaches l as
// exactly one batch. Batches share wrappers with other listeners and must
// not be modified.
func (v *View) Subscribe(l composition.Listener) composition.Unsubscribe {
	return v.subs.Add(l)
}

// AddModel composes m into the root merge.
func (v *View) AddModel(m entity.Model) error {
	if v.merge == nil {
		return ErrNotMergeRoot
	}
	if _, ok := v.added[m.ID()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateModel, m.ID())
	}

	adapter := source.NewAdapter(m, source.WithLogger(v.logger))
	v.added[m.ID()] = adapter
	v.merge.AddChild(adapter)
	v.metrics.recordModelChange("add")
	v.logger.Debug("Model added to view", "model", m.ID())
	return nil
}

// RemoveModel removes a model previously added with AddModel. Removing a
// model that was never added is a no-op.
func (v *View) RemoveModel(m entity.Model) error {
	if v.merge == nil {
		return ErrNotMergeRoot
	}
	adapter, ok := v.added[m.ID()]
	if !ok {
		return nil
	}

	delete(v.added, m.ID())
	v.merge.RemoveChild(adapter)
	adapter.Close()
	v.metrics.recordModelChange("remove")
	v.logger.Debug("Model removed from view", "model", m.ID())
	return nil
}

// ExecOperation forwards op to the root node.
func (v *View) ExecOperation(op entity.Operation) entity.Result {
	return v.root.ExecOperation(op)
}

// SearchResult is one ranked match over the aggregated snapshot.
type SearchResult struct {
	Wrapper *composition.Wrapper
	// Relevance is the match score; lower is better.
	Relevance int
}

// Search ranks the classes and class profiles of the snapshot whose resolved
// name matches query, best match first.
func (v *View) Search(query string) []SearchResult {
	var results []SearchResult
	for _, w := range v.snapshot {
		head := w.Entity.Head()
		if head.Kind != entity.KindClass && head.Kind != entity.KindClassProfile {
			continue
		}
		score, ok := source.Relevance(query, head.Name)
		if !ok {
			continue
		}
		results = append(results, SearchResult{Wrapper: w.Clone(), Relevance: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance < results[j].Relevance
		}
		return results[i].Wrapper.Entity.Head().ID < results[j].Wrapper.Entity.Head().ID
	})
	return results
}

// Close detaches the view and closes the composition tree.
func (v *View) Close() {
	if v.unsubscribe == nil {
		return
	}
	v.unsubscribe()
	v.unsubscribe = nil
	v.root.Close()
	for id, adapter := range v.added {
		adapter.Close()
		delete(v.added, id)
	}
}

func (v *View) onRootChange(updated map[string]*composition.Wrapper, removed []string) {
	for id, w := range updated {
		v.pendingUpdated[id] = w
		delete(v.pendingRemoved, id)
	}
	for _, id := range removed {
		delete(v.pendingUpdated, id)
		if _, ok := v.pendingRemoved[id]; !ok {
			v.pendingRemoved[id] = struct{}{}
			v.pendingOrder = append(v.pendingOrder, id)
		}
	}
	if v.delivering {
		return
	}

	v.delivering = true
	defer func() { v.delivering = false }()

	for len(v.pendingUpdated) > 0 || len(v.pendingRemoved) > 0 {
		start := time.Now()
		batchUpdated, batchRemoved := v.takePending()
		for id, w := range batchUpdated {
			v.snapshot[id] = w
		}
		for _, id := range batchRemoved {
			delete(v.snapshot, id)
		}
		v.subs.Notify(batchUpdated, batchRemoved)
		v.metrics.recordBatch(len(batchUpdated), len(batchRemoved), len(v.snapshot), time.Since(start))
	}
}

func (v *View) takePending() (map[string]*composition.Wrapper, []string) {
	updated := v.pendingUpdated
	removed := make([]string, 0, len(v.pendingRemoved))
	for _, id := range v.pendingOrder {
		if _, ok := v.pendingRemoved[id]; ok {
			removed = append(removed, id)
		}
	}
	v.pendingUpdated = make(map[string]*composition.Wrapper)
	v.pendingRemoved = make(map[string]struct{})
	v.pendingOrder = nil
	return updated, removed
}
