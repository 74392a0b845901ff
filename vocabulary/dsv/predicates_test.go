package dsv

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"

	"github.com/c360studio/semagg/entity"
)

func TestPredicatesRegistered(t *testing.T) {
	predicates := []string{
		EntityKind,
		EntityIRI,
		EntityID,
		LabelName,
		LabelDescription,
		LabelUsageNote,
		ProfileOf,
		ProfileParent,
		ProfileTag,
		RelationshipDomain,
		RelationshipRange,
		RelationshipCardinality,
		GeneralizationParent,
		GeneralizationChild,
		ProvenanceSource,
		ClassDocumentation,
		StatusUnresolved,
	}

	for _, pred := range predicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta == nil || meta.Description == "" {
				t.Fatalf("predicate %s not registered or missing description", pred)
			}
			if meta.StandardIRI == "" {
				t.Errorf("predicate %s has no IRI", pred)
			}
			if meta.Domain != "dsv" {
				t.Errorf("predicate %s domain = %q, want dsv", pred, meta.Domain)
			}
		})
	}
}

func TestIRI(t *testing.T) {
	if got := IRI(LabelName); got != vocabulary.SkosPrefLabel {
		t.Errorf("IRI(LabelName) = %q, want %q", got, vocabulary.SkosPrefLabel)
	}
	if got := IRI("dsv.unknown.predicate"); got != "" {
		t.Errorf("IRI(unknown) = %q, want empty", got)
	}
}

func TestTypeIRI(t *testing.T) {
	kinds := []entity.Kind{
		entity.KindClass,
		entity.KindClassProfile,
		entity.KindRelationship,
		entity.KindRelationshipProfile,
		entity.KindGeneralization,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		iri := TypeIRI(k)
		if iri == "" {
			t.Errorf("TypeIRI(%s) is empty", k)
		}
		if seen[iri] {
			t.Errorf("TypeIRI(%s) = %s is not unique", k, iri)
		}
		seen[iri] = true
	}
	if TypeIRI("widget") != "" {
		t.Error("unknown kind must have no type IRI")
	}
}
