package dsv

import "github.com/c360studio/semagg/entity"

// Namespace is the base IRI prefix for Data Specification Vocabulary terms.
const Namespace = "https://w3id.org/dsv#"

// EntityNamespace is the base IRI for entities that carry no IRI of their own.
const EntityNamespace = "https://semagg.dev/entity/"

// Standard ontology IRI constants for mappings.
const (
	RdfType           = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RdfsDomain        = "http://www.w3.org/2000/01/rdf-schema#domain"
	RdfsRange         = "http://www.w3.org/2000/01/rdf-schema#range"
	RdfsSubClassOf    = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	RdfsSeeAlso       = "http://www.w3.org/2000/01/rdf-schema#seeAlso"
	OwlClass          = "http://www.w3.org/2002/07/owl#Class"
	OwlObjectProperty = "http://www.w3.org/2002/07/owl#ObjectProperty"
	SkosScopeNote     = "http://www.w3.org/2004/02/skos/core#scopeNote"
	DcDescription     = "http://purl.org/dc/terms/description"
)

// Class IRIs for entity kinds without a standard equivalent.
const (
	// ClassClassProfile represents a profile of one or more classes.
	ClassClassProfile = Namespace + "ClassProfile"

	// ClassPropertyProfile represents a profile of a relationship.
	ClassPropertyProfile = Namespace + "ObjectPropertyProfile"

	// ClassGeneralization represents a parent/child specialization link.
	ClassGeneralization = Namespace + "Generalization"
)

// Property IRIs.
const (
	// PropProfileOf links a profile to the entity it profiles.
	PropProfileOf = Namespace + "profileOf"

	// PropReusesPropertyValue links a profile to the entity it takes an
	// attribute value from.
	PropReusesPropertyValue = Namespace + "reusesPropertyValue"

	// PropCardinality is the "min..max" cardinality of a relationship range.
	PropCardinality = Namespace + "cardinality"

	// PropTag is a free-form classification tag.
	PropTag = Namespace + "tag"

	// PropParent is the parent of a generalization.
	PropParent = Namespace + "parent"

	// PropChild is the child of a generalization.
	PropChild = Namespace + "child"

	// PropUnresolved carries the reason an entity could not be resolved.
	PropUnresolved = Namespace + "unresolvedReason"
)

// TypeIRI returns the rdf:type IRI of an entity kind.
func TypeIRI(kind entity.Kind) string {
	switch kind {
	case entity.KindClass:
		return OwlClass
	case entity.KindClassProfile:
		return ClassClassProfile
	case entity.KindRelationship:
		return OwlObjectProperty
	case entity.KindRelationshipProfile:
		return ClassPropertyProfile
	case entity.KindGeneralization:
		return ClassGeneralization
	}
	return ""
}
