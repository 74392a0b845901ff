package dsv

import "github.com/c360studio/semstreams/vocabulary"

// Entity identity predicates.
const (
	// EntityKind is the entity kind.
	// Values: "class", "class-profile", "relationship", "relationship-profile", "generalization"
	EntityKind = "dsv.entity.kind"

	// EntityIRI is the absolute IRI of the entity.
	EntityIRI = "dsv.entity.iri"

	// EntityID is the id the entity has within its models.
	EntityID = "dsv.entity.id"
)

// Label predicates carry resolved, language-tagged text.
const (
	// LabelName is the resolved name.
	LabelName = "dsv.label.name"

	// LabelDescription is the resolved description.
	LabelDescription = "dsv.label.description"

	// LabelUsageNote is the resolved usage note of a profile.
	LabelUsageNote = "dsv.label.usage_note"
)

// Profile predicates.
const (
	// ProfileOf links a profile to each entity it directly profiles.
	// Domain: profile entity, Range: profiled entity
	ProfileOf = "dsv.profile.of"

	// ProfileParent links a profile to every entity it transitively profiles.
	// Domain: profile entity, Range: ancestor entity
	ProfileParent = "dsv.profile.parent"

	// ProfileTag is a classification tag of a class profile.
	ProfileTag = "dsv.profile.tag"
)

// Relationship predicates.
const (
	// RelationshipDomain links a relationship to its domain class.
	RelationshipDomain = "dsv.relationship.domain"

	// RelationshipRange links a relationship to its range class.
	RelationshipRange = "dsv.relationship.range"

	// RelationshipCardinality is the range cardinality, formatted "min..max"
	// with "*" for unbounded.
	RelationshipCardinality = "dsv.relationship.cardinality"
)

// Generalization predicates.
const (
	// GeneralizationParent is the more general entity.
	GeneralizationParent = "dsv.generalization.parent"

	// GeneralizationChild is the specialized entity.
	GeneralizationChild = "dsv.generalization.child"
)

// Provenance and status predicates.
const (
	// ProvenanceSource links an entity to each model that contributed it.
	ProvenanceSource = "dsv.provenance.source"

	// ClassDocumentation is the external documentation URL of a class.
	ClassDocumentation = "dsv.class.documentation"

	// StatusUnresolved carries the reason an entity was left unresolved.
	StatusUnresolved = "dsv.status.unresolved"
)

func init() {
	vocabulary.Register(EntityKind,
		vocabulary.WithDescription("Entity kind: class, class-profile, relationship, relationship-profile, generalization"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(RdfType))

	vocabulary.Register(EntityIRI,
		vocabulary.WithDescription("Absolute IRI of the entity"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.DcIdentifier))

	vocabulary.Register(EntityID,
		vocabulary.WithDescription("Entity identifier within its source models"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"entityId"))

	vocabulary.Register(LabelName,
		vocabulary.WithDescription("Resolved entity name (language tagged)"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.SkosPrefLabel))

	vocabulary.Register(LabelDescription,
		vocabulary.WithDescription("Resolved entity description (language tagged)"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(DcDescription))

	vocabulary.Register(LabelUsageNote,
		vocabulary.WithDescription("Resolved usage note of a profile (language tagged)"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(SkosScopeNote))

	vocabulary.Register(ProfileOf,
		vocabulary.WithDescription("Links a profile to an entity it directly profiles"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropProfileOf))

	vocabulary.Register(ProfileParent,
		vocabulary.WithDescription("Links a profile to an entity it transitively profiles"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(vocabulary.ProvWasDerivedFrom))

	vocabulary.Register(ProfileTag,
		vocabulary.WithDescription("Classification tag of a class profile"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTag))

	vocabulary.Register(RelationshipDomain,
		vocabulary.WithDescription("Domain class of a relationship"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(RdfsDomain))

	vocabulary.Register(RelationshipRange,
		vocabulary.WithDescription("Range class of a relationship"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(RdfsRange))

	vocabulary.Register(RelationshipCardinality,
		vocabulary.WithDescription("Range cardinality as min..max, * for unbounded"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropCardinality))

	vocabulary.Register(GeneralizationParent,
		vocabulary.WithDescription("More general entity of a generalization"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropParent))

	vocabulary.Register(GeneralizationChild,
		vocabulary.WithDescription("Specialized entity of a generalization"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropChild))

	vocabulary.Register(ProvenanceSource,
		vocabulary.WithDescription("Model that contributed the entity"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.ProvHadPrimarySource))

	vocabulary.Register(ClassDocumentation,
		vocabulary.WithDescription("External documentation URL of a class"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(RdfsSeeAlso))

	vocabulary.Register(StatusUnresolved,
		vocabulary.WithDescription("Reason the entity could not be resolved"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropUnresolved))
}

// IRI returns the standard IRI registered for predicate, or "" when none is.
func IRI(predicate string) string {
	meta := vocabulary.GetPredicateMetadata(predicate)
	if meta == nil {
		return ""
	}
	return meta.StandardIRI
}
