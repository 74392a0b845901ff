package composition

import (
	"log/slog"

	"github.com/c360studio/semagg/entity"
)

// Merge unions the entities of its children by id. For an id defined by
// several children the first child's raw entity is presented, completed with
// attribute pointers and profiling declared by later children, and resolved
// over the union of all children. Sources are concatenated in child order.
type Merge struct {
	core

	children []Node
	unsubs   []Unsubscribe
}

// NewMerge creates a merge over children.
func NewMerge(logger *slog.Logger, children ...Node) *Merge {
	m := &Merge{core: newCore("merge", logger)}
	m.combine = m.contribution
	for _, child := range children {
		m.attach(child)
	}
	var ids []string
	for _, child := range children {
		ids = append(ids, entityIDs(child.Entities())...)
	}
	m.recompute(ids)
	return m
}

// Children returns the current children in order.
func (m *Merge) Children() []Node {
	return append([]Node(nil), m.children...)
}

// AddChild appends child and publishes its entities in one batch.
func (m *Merge) AddChild(child Node) {
	m.attach(child)
	m.recompute(entityIDs(child.Entities()))
}

// RemoveChild detaches child and republishes the ids it contributed. Removing
// a child that was never added is a no-op. The child is not closed.
func (m *Merge) RemoveChild(child Node) {
	idx := -1
	for i, c := range m.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	m.unsubs[idx]()
	m.children = append(m.children[:idx:idx], m.children[idx+1:]...)
	m.unsubs = append(m.unsubs[:idx:idx], m.unsubs[idx+1:]...)
	m.recompute(entityIDs(child.Entities()))
}

func (m *Merge) attach(child Node) {
	m.children = append(m.children, child)
	m.unsubs = append(m.unsubs, child.Subscribe(m.onChildChange))
}

// ExecOperation forwards op to the first child that accepts writes. Modify
// and delete operations only go to children that hold the entity.
func (m *Merge) ExecOperation(op entity.Operation) entity.Result {
	target := targetID(op)
	for _, child := range m.children {
		if target != "" {
			if _, ok := child.LocalEntity(target); !ok {
				continue
			}
		}
		res := child.ExecOperation(op)
		if !res.Success && res.Reason == entity.ReasonNotWritable {
			continue
		}
		return res
	}
	if target != "" && !m.hasEntity(target) {
		return entity.Rejected(entity.ReasonUnknownEntity)
	}
	return entity.Rejected(entity.ReasonNotWritable)
}

func (m *Merge) hasEntity(id string) bool {
	_, ok := m.entities[id]
	return ok
}

// Close detaches from and closes every child.
func (m *Merge) Close() {
	for i, child := range m.children {
		m.unsubs[i]()
		child.Close()
	}
	m.children = nil
	m.unsubs = nil
}

func (m *Merge) contribution(id string) (contribution, bool) {
	var (
		raws     []entity.Raw
		sources  []Descriptor
		readOnly = true
		fallback *Wrapper
	)
	for _, child := range m.children {
		w, ok := child.LocalEntity(id)
		if !ok {
			continue
		}
		if w.Raw == nil {
			if fallback == nil {
				fallback = w
			}
			continue
		}
		raws = append(raws, w.Raw)
		sources = append(sources, w.Sources...)
		readOnly = readOnly && w.ReadOnly
	}
	if len(raws) == 0 {
		if fallback == nil {
			return contribution{}, false
		}
		return placeholder(fallback)
	}
	return contribution{raw: MergeRaws(raws), sources: sources, readOnly: readOnly}, true
}

// MergeRaws combines several models' raw entities sharing one id. The first
// entity wins; a later entity of the same kind contributes only attribute
// pointers the winner leaves empty and additional profiled ids.
func MergeRaws(raws []entity.Raw) entity.Raw {
	if len(raws) == 0 {
		return nil
	}
	out := entity.CloneRaw(raws[0])
	for _, r := range raws[1:] {
		switch dst := out.(type) {
		case *entity.ClassProfile:
			src, ok := r.(*entity.ClassProfile)
			if !ok {
				continue
			}
			fillPointer(&dst.NameFromProfiled, src.NameFromProfiled)
			fillPointer(&dst.DescriptionFromProfiled, src.DescriptionFromProfiled)
			fillPointer(&dst.UsageNoteFromProfiled, src.UsageNoteFromProfiled)
			dst.Profiling = union(dst.Profiling, src.Profiling)
		case *entity.RelationshipProfile:
			src, ok := r.(*entity.RelationshipProfile)
			if !ok {
				continue
			}
			for i := range dst.Ends {
				fillPointer(&dst.Ends[i].NameFromProfiled, src.Ends[i].NameFromProfiled)
				fillPointer(&dst.Ends[i].DescriptionFromProfiled, src.Ends[i].DescriptionFromProfiled)
				fillPointer(&dst.Ends[i].UsageNoteFromProfiled, src.Ends[i].UsageNoteFromProfiled)
				dst.Ends[i].Profiling = union(dst.Ends[i].Profiling, src.Ends[i].Profiling)
			}
		case *entity.Class, *entity.Relationship, *entity.Generalization:
		}
	}
	return out
}

func fillPointer(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			a = append(a, id)
		}
	}
	return a
}

// targetID is the entity a modify or delete operation addresses.
func targetID(op entity.Operation) string {
	switch o := op.(type) {
	case entity.ModifyEntity:
		if o.Entity != nil {
			return o.Entity.EntityID()
		}
	case entity.DeleteEntity:
		return o.ID
	case entity.CreateEntity:
	}
	return ""
}
