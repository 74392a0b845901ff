package source

import (
	"sort"
	"strings"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
)

// SearchResult is one ranked match.
type SearchResult struct {
	Wrapper *composition.Wrapper
	// Relevance is the match score; lower is better.
	Relevance        int
	VocabularyChain  []composition.Descriptor
	OriginatingModel []*Adapter
}

// Relevance scores name against query with a case-insensitive substring
// match. The score is the match position plus the number of unmatched
// characters, taken over the best language. ok is false when no language
// matches. A blank query matches nothing.
func Relevance(query string, name entity.LangString) (score int, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0, false
	}
	best := -1
	for _, text := range name {
		t := strings.ToLower(text)
		idx := strings.Index(t, q)
		if idx < 0 {
			continue
		}
		s := idx + (len(t) - len(q))
		if best < 0 || s < best {
			best = s
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// Search ranks the local classes and class profiles whose name matches query.
func (a *Adapter) Search(query string) []SearchResult {
	var results []SearchResult
	for _, w := range a.entities {
		switch w.Entity.Head().Kind {
		case entity.KindClass, entity.KindClassProfile:
		default:
			continue
		}
		score, ok := Relevance(query, w.Entity.Head().Name)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Wrapper:          w,
			Relevance:        score,
			VocabularyChain:  []composition.Descriptor{a.descriptor},
			OriginatingModel: []*Adapter{a},
		})
	}
	SortResults(results)
	return results
}

// SortResults orders by ascending relevance, then by id.
func SortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance < results[j].Relevance
		}
		return results[i].Wrapper.Entity.Head().ID < results[j].Wrapper.Entity.Head().ID
	})
}

// Surroundings returns every local entity. A flat vocabulary has no
// neighbourhood structure: everything is reachable from everything.
func (a *Adapter) Surroundings(id string) map[string]*composition.Wrapper {
	return a.Entities()
}

// Hierarchy returns every local entity when id exists locally, and nothing
// otherwise. No external lookups are made.
func (a *Adapter) Hierarchy(id string) (map[string]*composition.Wrapper, bool) {
	if _, ok := a.entities[id]; !ok {
		return nil, false
	}
	return a.Entities(), true
}

// HierarchyForLookup returns every local entity.
func (a *Adapter) HierarchyForLookup(id string) map[string]*composition.Wrapper {
	return a.Entities()
}

// ExternalEntityToLocalForSearch maps an entity found by search to the local
// one. A plain vocabulary cannot synthesize entities, so this is an identity
// lookup.
func (a *Adapter) ExternalEntityToLocalForSearch(id string) (*composition.Wrapper, bool) {
	return a.LocalEntity(id)
}

// ExternalEntityToLocalForHierarchyExtension is an identity lookup.
func (a *Adapter) ExternalEntityToLocalForHierarchyExtension(id string) (*composition.Wrapper, bool) {
	return a.LocalEntity(id)
}

// ExternalEntityToLocalForSurroundings is an identity lookup.
func (a *Adapter) ExternalEntityToLocalForSurroundings(id string) (*composition.Wrapper, bool) {
	return a.LocalEntity(id)
}
