package entity

// Header holds the attributes every aggregated entity carries.
type Header struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	IRI         string     `json:"iri,omitempty"`
	Name        LangString `json:"name,omitempty"`
	Description LangString `json:"description,omitempty"`
	// UsageNote is nil for kinds that cannot carry one.
	UsageNote LangString `json:"usageNote,omitempty"`
	// Parents are the transitively profiled ids, deduplicated, without the
	// entity itself.
	Parents []string `json:"parents,omitempty"`
}

// Head returns the common attributes.
func (h Header) Head() Header { return h }

// Aggregated is the resolved projection of an entity.
// Implemented by *AggregatedClass, *AggregatedClassProfile,
// *AggregatedRelationship, *AggregatedRelationshipProfile,
// *AggregatedGeneralization and *Unresolved only.
type Aggregated interface {
	Head() Header
	isAggregated()
}

// AggregatedClass is a resolved Class.
type AggregatedClass struct {
	Header
	ExternalDocumentationURL string `json:"externalDocumentationUrl,omitempty"`
}

// AggregatedClassProfile is a resolved ClassProfile.
type AggregatedClassProfile struct {
	Header
	Profiling []string `json:"profiling,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// AggregatedEnd is a resolved relationship end.
type AggregatedEnd struct {
	Concept     string       `json:"concept,omitempty"`
	IRI         string       `json:"iri,omitempty"`
	Name        LangString   `json:"name,omitempty"`
	Description LangString   `json:"description,omitempty"`
	UsageNote   LangString   `json:"usageNote,omitempty"`
	Profiling   []string     `json:"profiling,omitempty"`
	Cardinality *Cardinality `json:"cardinality,omitempty"`
}

// AggregatedRelationship is a resolved Relationship. The header mirrors the
// range end.
type AggregatedRelationship struct {
	Header
	Ends [2]AggregatedEnd `json:"ends"`
}

// AggregatedRelationshipProfile is a resolved RelationshipProfile. The header
// mirrors the resolved range end.
type AggregatedRelationshipProfile struct {
	Header
	Ends [2]AggregatedEnd `json:"ends"`
}

// AggregatedGeneralization is a resolved Generalization.
type AggregatedGeneralization struct {
	Header
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Unresolved replaces an entity whose resolution failed. The rest of the view
// is unaffected.
type Unresolved struct {
	Header
	Reason string `json:"reason"`
}

func (*AggregatedClass) isAggregated()               {}
func (*AggregatedClassProfile) isAggregated()        {}
func (*AggregatedRelationship) isAggregated()        {}
func (*AggregatedRelationshipProfile) isAggregated() {}
func (*AggregatedGeneralization) isAggregated()      {}
func (*Unresolved) isAggregated()                    {}

// CloneAggregated returns a deep copy of a.
func CloneAggregated(a Aggregated) Aggregated {
	switch e := a.(type) {
	case *AggregatedClass:
		c := *e
		c.Header = cloneHeader(e.Header)
		return &c
	case *AggregatedClassProfile:
		c := *e
		c.Header = cloneHeader(e.Header)
		c.Profiling = cloneStrings(e.Profiling)
		c.Tags = cloneStrings(e.Tags)
		return &c
	case *AggregatedRelationship:
		c := *e
		c.Header = cloneHeader(e.Header)
		for i := range c.Ends {
			c.Ends[i] = cloneAggregatedEnd(e.Ends[i])
		}
		return &c
	case *AggregatedRelationshipProfile:
		c := *e
		c.Header = cloneHeader(e.Header)
		for i := range c.Ends {
			c.Ends[i] = cloneAggregatedEnd(e.Ends[i])
		}
		return &c
	case *AggregatedGeneralization:
		c := *e
		c.Header = cloneHeader(e.Header)
		return &c
	case *Unresolved:
		c := *e
		c.Header = cloneHeader(e.Header)
		return &c
	}
	return nil
}

func cloneHeader(h Header) Header {
	h.Name = h.Name.Clone()
	h.Description = h.Description.Clone()
	h.UsageNote = h.UsageNote.Clone()
	h.Parents = cloneStrings(h.Parents)
	return h
}

func cloneAggregatedEnd(e AggregatedEnd) AggregatedEnd {
	e.Name = e.Name.Clone()
	e.Description = e.Description.Clone()
	e.UsageNote = e.UsageNote.Clone()
	e.Profiling = cloneStrings(e.Profiling)
	e.Cardinality = cloneCardinality(e.Cardinality)
	return e
}
