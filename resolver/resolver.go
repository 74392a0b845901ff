// Package resolver computes aggregated entities from a table of raw entities by
// following profiling and attribute-source pointers.
//
// Every walk is iterative and keeps a visited set, so a walk touches each id at
// most once. Self references, mutual references and dangling pointers are
// ordinary input: resolution always terminates and returns the best value found.
package resolver

import (
	"github.com/c360studio/semagg/entity"
)

// Table is an id-keyed arena of raw entities. Resolution never mutates it.
type Table map[string]entity.Raw

// Attribute selects one of the inheritable attributes.
type Attribute int

// Inheritable attributes.
const (
	Name Attribute = iota
	Description
	UsageNote
)

// String returns the attribute name used in logs.
func (a Attribute) String() string {
	switch a {
	case Name:
		return "name"
	case Description:
		return "description"
	case UsageNote:
		return "usageNote"
	}
	return "unknown"
}

// ResolveAttribute returns the value of attr for targetID, following the
// attribute's *FromProfiled pointers until the chain ends, dangles, or revisits
// an id. A missing target yields nil.
func ResolveAttribute(targetID string, attr Attribute, table Table) entity.LangString {
	v, _ := walkAttribute(targetID, attr, table)
	return v
}

// walkAttribute is ResolveAttribute that also reports how many ids it visited.
func walkAttribute(targetID string, attr Attribute, table Table) (entity.LangString, int) {
	target, ok := table[targetID]
	if !ok {
		return nil, 0
	}

	result := ownValue(target, attr)
	visited := make(map[string]struct{})
	current := targetID

	for {
		if _, seen := visited[current]; seen {
			return result, len(visited)
		}
		visited[current] = struct{}{}

		e, ok := table[current]
		if !ok {
			return result, len(visited)
		}
		next := fromProfiled(e, attr)
		if next == "" {
			return result, len(visited)
		}
		if pointed, ok := table[next]; ok {
			result = ownValue(pointed, attr)
		}
		current = next
	}
}

// ResolveParents returns every id reachable from targetID over profiling
// edges, in breadth-first order, deduplicated and without targetID itself.
func ResolveParents(targetID string, table Table) []string {
	parents, _ := walkParents(targetID, table)
	return parents
}

func walkParents(targetID string, table Table) ([]string, int) {
	target, ok := table[targetID]
	if !ok {
		return nil, 0
	}

	visited := map[string]struct{}{targetID: {}}
	queue := append([]string(nil), profiling(target)...)
	var parents []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		parents = append(parents, id)

		if e, ok := table[id]; ok {
			queue = append(queue, profiling(e)...)
		}
	}
	return parents, len(visited)
}

// Dependents returns the changed ids plus every id in table whose profiling or
// attribute pointers lead, directly or transitively, to one of them. The
// result is what a node has to recompute after a change batch.
func Dependents(changed []string, table Table) []string {
	reverse := make(map[string][]string)
	for id, e := range table {
		for _, target := range pointers(e) {
			if target != id {
				reverse[target] = append(reverse[target], id)
			}
		}
	}

	visited := make(map[string]struct{}, len(changed))
	out := make([]string, 0, len(changed))
	queue := append([]string(nil), changed...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		out = append(out, id)
		queue = append(queue, reverse[id]...)
	}
	return out
}

// pointers lists every id e refers to through profiling or *FromProfiled.
func pointers(e entity.Raw) []string {
	out := append([]string(nil), profiling(e)...)
	for _, attr := range []Attribute{Name, Description, UsageNote} {
		if p := fromProfiled(e, attr); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ownValue is the value e declares itself. Relationships answer with their
// range end.
func ownValue(e entity.Raw, attr Attribute) entity.LangString {
	switch v := e.(type) {
	case *entity.Class:
		switch attr {
		case Name:
			return v.Name
		case Description:
			return v.Description
		}
	case *entity.ClassProfile:
		switch attr {
		case Name:
			return v.Name
		case Description:
			return v.Description
		case UsageNote:
			return v.UsageNote
		}
	case *entity.Relationship:
		switch attr {
		case Name:
			return v.Ends[1].Name
		case Description:
			return v.Ends[1].Description
		}
	case *entity.RelationshipProfile:
		return endOwnValue(v.Ends[1], attr)
	case *entity.Generalization:
	}
	return nil
}

func endOwnValue(end entity.RelationshipEndProfile, attr Attribute) entity.LangString {
	switch attr {
	case Name:
		return end.Name
	case Description:
		return end.Description
	case UsageNote:
		return end.UsageNote
	}
	return nil
}

// fromProfiled is the attribute-source pointer of e, empty when e declares the
// attribute itself or cannot profile.
func fromProfiled(e entity.Raw, attr Attribute) string {
	switch v := e.(type) {
	case *entity.ClassProfile:
		switch attr {
		case Name:
			return v.NameFromProfiled
		case Description:
			return v.DescriptionFromProfiled
		case UsageNote:
			return v.UsageNoteFromProfiled
		}
	case *entity.RelationshipProfile:
		return endFromProfiled(v.Ends[1], attr)
	case *entity.Class, *entity.Relationship, *entity.Generalization:
	}
	return ""
}

func endFromProfiled(end entity.RelationshipEndProfile, attr Attribute) string {
	switch attr {
	case Name:
		return end.NameFromProfiled
	case Description:
		return end.DescriptionFromProfiled
	case UsageNote:
		return end.UsageNoteFromProfiled
	}
	return ""
}

// profiling lists the ids e profiles. Relationship profiles contribute the
// profiling of both ends, range end first.
func profiling(e entity.Raw) []string {
	switch v := e.(type) {
	case *entity.ClassProfile:
		return v.Profiling
	case *entity.RelationshipProfile:
		if len(v.Ends[0].Profiling) == 0 {
			return v.Ends[1].Profiling
		}
		return append(append([]string(nil), v.Ends[1].Profiling...), v.Ends[0].Profiling...)
	case *entity.Class, *entity.Relationship, *entity.Generalization:
	}
	return nil
}
