package resolver

import (
	"errors"
	"fmt"

	"github.com/c360studio/semagg/entity"
)

// ErrMalformed is returned for raw entities that cannot be projected at all.
var ErrMalformed = errors.New("malformed raw entity")

// ResolveEntity builds the aggregated snapshot of targetID from table. The
// result shares no memory with table.
func ResolveEntity(targetID string, table Table) (entity.Aggregated, error) {
	raw, ok := table[targetID]
	if !ok {
		return nil, fmt.Errorf("resolve %q: not in table", targetID)
	}
	if raw == nil {
		return nil, fmt.Errorf("resolve %q: %w: nil entity", targetID, ErrMalformed)
	}
	if raw.EntityID() != targetID {
		return nil, fmt.Errorf("resolve %q: %w: stored under a different id %q", targetID, ErrMalformed, raw.EntityID())
	}

	switch e := raw.(type) {
	case *entity.Class:
		return &entity.AggregatedClass{
			Header: entity.Header{
				ID:          e.ID,
				Kind:        entity.KindClass,
				IRI:         e.IRI,
				Name:        e.Name.Clone(),
				Description: e.Description.Clone(),
			},
			ExternalDocumentationURL: e.ExternalDocumentationURL,
		}, nil

	case *entity.ClassProfile:
		return &entity.AggregatedClassProfile{
			Header:    resolvedHeader(e.ID, entity.KindClassProfile, e.IRI, table),
			Profiling: append([]string(nil), e.Profiling...),
			Tags:      append([]string(nil), e.Tags...),
		}, nil

	case *entity.Relationship:
		out := &entity.AggregatedRelationship{
			Header: entity.Header{
				ID:          e.ID,
				Kind:        entity.KindRelationship,
				IRI:         e.Ends[1].IRI,
				Name:        e.Ends[1].Name.Clone(),
				Description: e.Ends[1].Description.Clone(),
			},
		}
		for i, end := range e.Ends {
			out.Ends[i] = entity.AggregatedEnd{
				Concept:     end.Concept,
				IRI:         end.IRI,
				Name:        end.Name.Clone(),
				Description: end.Description.Clone(),
				Cardinality: cloneCardinality(end.Cardinality),
			}
		}
		return out, nil

	case *entity.RelationshipProfile:
		header := resolvedHeader(e.ID, entity.KindRelationshipProfile, e.Ends[1].IRI, table)
		out := &entity.AggregatedRelationshipProfile{Header: header}
		domain := e.Ends[0]
		out.Ends[0] = entity.AggregatedEnd{
			Concept:     domain.Concept,
			IRI:         domain.IRI,
			Name:        domain.Name.Clone(),
			Description: domain.Description.Clone(),
			UsageNote:   domain.UsageNote.Clone(),
			Profiling:   append([]string(nil), domain.Profiling...),
			Cardinality: cloneCardinality(domain.Cardinality),
		}
		rng := e.Ends[1]
		out.Ends[1] = entity.AggregatedEnd{
			Concept:     rng.Concept,
			IRI:         rng.IRI,
			Name:        header.Name.Clone(),
			Description: header.Description.Clone(),
			UsageNote:   header.UsageNote.Clone(),
			Profiling:   append([]string(nil), rng.Profiling...),
			Cardinality: cloneCardinality(rng.Cardinality),
		}
		return out, nil

	case *entity.Generalization:
		if e.Parent == "" || e.Child == "" {
			return nil, fmt.Errorf("resolve %q: %w: generalization without parent or child", targetID, ErrMalformed)
		}
		return &entity.AggregatedGeneralization{
			Header: entity.Header{
				ID:   e.ID,
				Kind: entity.KindGeneralization,
				IRI:  e.IRI,
			},
			Parent: e.Parent,
			Child:  e.Child,
		}, nil
	}

	return nil, fmt.Errorf("resolve %q: %w: unsupported variant %T", targetID, ErrMalformed, raw)
}

func resolvedHeader(id string, kind entity.Kind, iri string, table Table) entity.Header {
	return entity.Header{
		ID:          id,
		Kind:        kind,
		IRI:         iri,
		Name:        ResolveAttribute(id, Name, table).Clone(),
		Description: ResolveAttribute(id, Description, table).Clone(),
		UsageNote:   ResolveAttribute(id, UsageNote, table).Clone(),
		Parents:     ResolveParents(id, table),
	}
}

func cloneCardinality(c *entity.Cardinality) *entity.Cardinality {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
