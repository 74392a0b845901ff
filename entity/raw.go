package entity

// Kind identifies the variant of a raw or aggregated entity.
type Kind string

// Entity kinds.
const (
	KindClass               Kind = "class"
	KindClassProfile        Kind = "class-profile"
	KindRelationship        Kind = "relationship"
	KindRelationshipProfile Kind = "relationship-profile"
	KindGeneralization      Kind = "generalization"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindClass, KindClassProfile, KindRelationship, KindRelationshipProfile, KindGeneralization:
		return true
	}
	return false
}

// LangString maps a language tag to text, e.g. {"en": "Person", "cs": "Osoba"}.
type LangString map[string]string

// Clone returns an independent copy. A nil receiver stays nil.
func (l LangString) Clone() LangString {
	if l == nil {
		return nil
	}
	out := make(LangString, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Unbounded is the Max value of an open cardinality ("*").
const Unbounded = -1

// Cardinality is the [Min, Max] multiplicity of a relationship end.
type Cardinality struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Raw is one model's view of an entity.
// Implemented by *Class, *ClassProfile, *Relationship, *RelationshipProfile
// and *Generalization only.
type Raw interface {
	EntityID() string
	Kind() Kind
	isRaw()
}

// Class is a plain vocabulary class.
type Class struct {
	ID                       string     `json:"id"`
	IRI                      string     `json:"iri,omitempty"`
	Name                     LangString `json:"name,omitempty"`
	Description              LangString `json:"description,omitempty"`
	ExternalDocumentationURL string     `json:"externalDocumentationUrl,omitempty"`
}

// ClassProfile customizes one or more profiled entities.
// An empty *FromProfiled pointer means the attribute is declared locally.
type ClassProfile struct {
	ID                      string     `json:"id"`
	IRI                     string     `json:"iri,omitempty"`
	Profiling               []string   `json:"profiling,omitempty"`
	Name                    LangString `json:"name,omitempty"`
	NameFromProfiled        string     `json:"nameFromProfiled,omitempty"`
	Description             LangString `json:"description,omitempty"`
	DescriptionFromProfiled string     `json:"descriptionFromProfiled,omitempty"`
	UsageNote               LangString `json:"usageNote,omitempty"`
	UsageNoteFromProfiled   string     `json:"usageNoteFromProfiled,omitempty"`
	Tags                    []string   `json:"tags,omitempty"`
}

// RelationshipEnd is one end of a relationship. Concept is a class id or empty.
type RelationshipEnd struct {
	Concept     string       `json:"concept,omitempty"`
	IRI         string       `json:"iri,omitempty"`
	Name        LangString   `json:"name,omitempty"`
	Description LangString   `json:"description,omitempty"`
	Cardinality *Cardinality `json:"cardinality,omitempty"`
}

// Relationship connects a domain end (Ends[0]) with a range end (Ends[1]).
type Relationship struct {
	ID   string             `json:"id"`
	Ends [2]RelationshipEnd `json:"ends"`
}

// RelationshipEndProfile is a profiled relationship end.
type RelationshipEndProfile struct {
	Concept                 string       `json:"concept,omitempty"`
	IRI                     string       `json:"iri,omitempty"`
	Profiling               []string     `json:"profiling,omitempty"`
	Name                    LangString   `json:"name,omitempty"`
	NameFromProfiled        string       `json:"nameFromProfiled,omitempty"`
	Description             LangString   `json:"description,omitempty"`
	DescriptionFromProfiled string       `json:"descriptionFromProfiled,omitempty"`
	UsageNote               LangString   `json:"usageNote,omitempty"`
	UsageNoteFromProfiled   string       `json:"usageNoteFromProfiled,omitempty"`
	Cardinality             *Cardinality `json:"cardinality,omitempty"`
}

// RelationshipProfile profiles a relationship. Profiling lives on the range end
// (Ends[1]); the domain end normally carries none.
type RelationshipProfile struct {
	ID   string                    `json:"id"`
	Ends [2]RelationshipEndProfile `json:"ends"`
}

// Generalization states that Child specializes Parent.
type Generalization struct {
	ID     string `json:"id"`
	IRI    string `json:"iri,omitempty"`
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

func (c *Class) EntityID() string               { return c.ID }
func (c *ClassProfile) EntityID() string        { return c.ID }
func (r *Relationship) EntityID() string        { return r.ID }
func (r *RelationshipProfile) EntityID() string { return r.ID }
func (g *Generalization) EntityID() string      { return g.ID }

func (*Class) Kind() Kind               { return KindClass }
func (*ClassProfile) Kind() Kind        { return KindClassProfile }
func (*Relationship) Kind() Kind        { return KindRelationship }
func (*RelationshipProfile) Kind() Kind { return KindRelationshipProfile }
func (*Generalization) Kind() Kind      { return KindGeneralization }

func (*Class) isRaw()               {}
func (*ClassProfile) isRaw()        {}
func (*Relationship) isRaw()        {}
func (*RelationshipProfile) isRaw() {}
func (*Generalization) isRaw()      {}

// IsNil reports whether r is nil or a nil pointer of one of the raw types.
func IsNil(r Raw) bool {
	switch e := r.(type) {
	case *Class:
		return e == nil
	case *ClassProfile:
		return e == nil
	case *Relationship:
		return e == nil
	case *RelationshipProfile:
		return e == nil
	case *Generalization:
		return e == nil
	}
	return true
}

// CloneRaw returns a deep copy of r. A nil input returns nil.
func CloneRaw(r Raw) Raw {
	switch e := r.(type) {
	case *Class:
		c := *e
		c.Name = e.Name.Clone()
		c.Description = e.Description.Clone()
		return &c
	case *ClassProfile:
		c := *e
		c.Profiling = cloneStrings(e.Profiling)
		c.Name = e.Name.Clone()
		c.Description = e.Description.Clone()
		c.UsageNote = e.UsageNote.Clone()
		c.Tags = cloneStrings(e.Tags)
		return &c
	case *Relationship:
		c := *e
		for i := range c.Ends {
			c.Ends[i] = cloneEnd(e.Ends[i])
		}
		return &c
	case *RelationshipProfile:
		c := *e
		for i := range c.Ends {
			c.Ends[i] = cloneEndProfile(e.Ends[i])
		}
		return &c
	case *Generalization:
		c := *e
		return &c
	}
	return nil
}

func cloneEnd(e RelationshipEnd) RelationshipEnd {
	e.Name = e.Name.Clone()
	e.Description = e.Description.Clone()
	e.Cardinality = cloneCardinality(e.Cardinality)
	return e
}

func cloneEndProfile(e RelationshipEndProfile) RelationshipEndProfile {
	e.Profiling = cloneStrings(e.Profiling)
	e.Name = e.Name.Clone()
	e.Description = e.Description.Clone()
	e.UsageNote = e.UsageNote.Clone()
	e.Cardinality = cloneCardinality(e.Cardinality)
	return e
}

func cloneCardinality(c *Cardinality) *Cardinality {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
