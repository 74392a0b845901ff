package source

import (
	"net/url"

	"github.com/c360studio/semagg/entity"
)

// Absolutize returns a copy of raw whose relative IRIs are resolved against
// base. Absolute IRIs, empty IRIs and an empty base leave the value unchanged.
func Absolutize(raw entity.Raw, base string) entity.Raw {
	out := entity.CloneRaw(raw)
	if base == "" {
		return out
	}

	switch e := out.(type) {
	case *entity.Class:
		e.IRI = absoluteIRI(e.IRI, base)
	case *entity.ClassProfile:
		e.IRI = absoluteIRI(e.IRI, base)
	case *entity.Relationship:
		for i := range e.Ends {
			e.Ends[i].IRI = absoluteIRI(e.Ends[i].IRI, base)
		}
	case *entity.RelationshipProfile:
		for i := range e.Ends {
			e.Ends[i].IRI = absoluteIRI(e.Ends[i].IRI, base)
		}
	case *entity.Generalization:
		e.IRI = absoluteIRI(e.IRI, base)
	}
	return out
}

func absoluteIRI(iri, base string) string {
	if iri == "" || isAbsolute(iri) {
		return iri
	}
	return base + iri
}

func isAbsolute(iri string) bool {
	u, err := url.Parse(iri)
	return err == nil && u.IsAbs()
}
