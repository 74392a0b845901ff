package graph

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/vocabulary/dsv"
)

// TripleSource is the provenance recorded on every triple the aggregator emits.
const TripleSource = "semagg.view"

// Literal is a language-tagged string value. Lang is empty for plain strings.
type Literal struct {
	Value string `json:"value"`
	Lang  string `json:"lang,omitempty"`
}

// RefFunc maps an entity id to the identifier used for it in triples.
type RefFunc func(id string) string

// EntityID returns the graph entity id for an aggregated entity id.
// Format: semagg.local.vocabulary.dsv.entity.<id>
func EntityID(id string) string {
	return fmt.Sprintf("semagg.local.vocabulary.dsv.entity.%s", id)
}

// Triples converts w into triples. Subjects and entity references are mapped
// through ref; a nil ref leaves ids untouched.
func Triples(w *composition.Wrapper, ref RefFunc, now time.Time) []message.Triple {
	if w == nil || w.Entity == nil {
		return nil
	}
	if ref == nil {
		ref = func(id string) string { return id }
	}

	head := w.Entity.Head()
	b := tripleBuilder{subject: ref(head.ID), mapID: ref, now: now}

	b.add(dsv.EntityKind, string(head.Kind))
	b.add(dsv.EntityID, head.ID)
	if head.IRI != "" {
		b.add(dsv.EntityIRI, head.IRI)
	}
	b.lang(dsv.LabelName, head.Name)
	b.lang(dsv.LabelDescription, head.Description)
	b.lang(dsv.LabelUsageNote, head.UsageNote)
	b.refs(dsv.ProfileParent, head.Parents)
	for _, src := range w.Sources {
		b.add(dsv.ProvenanceSource, src.ModelID)
	}

	switch e := w.Entity.(type) {
	case *entity.AggregatedClass:
		if e.ExternalDocumentationURL != "" {
			b.add(dsv.ClassDocumentation, e.ExternalDocumentationURL)
		}
	case *entity.AggregatedClassProfile:
		b.refs(dsv.ProfileOf, e.Profiling)
		for _, tag := range e.Tags {
			b.add(dsv.ProfileTag, tag)
		}
	case *entity.AggregatedRelationship:
		b.ends(e.Ends)
	case *entity.AggregatedRelationshipProfile:
		b.ends(e.Ends)
		b.refs(dsv.ProfileOf, e.Ends[1].Profiling)
	case *entity.AggregatedGeneralization:
		b.ref(dsv.GeneralizationParent, e.Parent)
		b.ref(dsv.GeneralizationChild, e.Child)
	case *entity.Unresolved:
		b.add(dsv.StatusUnresolved, e.Reason)
	}
	return b.triples
}

// FormatCardinality renders c as "min..max" with "*" for an unbounded max.
func FormatCardinality(c *entity.Cardinality) string {
	if c == nil {
		return ""
	}
	hi := "*"
	if c.Max != entity.Unbounded {
		hi = strconv.Itoa(c.Max)
	}
	return strconv.Itoa(c.Min) + ".." + hi
}

type tripleBuilder struct {
	subject string
	mapID   RefFunc
	now     time.Time
	triples []message.Triple
}

func (b *tripleBuilder) add(predicate string, object any) {
	b.triples = append(b.triples, message.Triple{
		Subject:    b.subject,
		Predicate:  predicate,
		Object:     object,
		Source:     TripleSource,
		Timestamp:  b.now,
		Confidence: 1.0,
	})
}

func (b *tripleBuilder) ref(predicate, id string) {
	if id != "" {
		b.add(predicate, b.mapID(id))
	}
}

func (b *tripleBuilder) refs(predicate string, ids []string) {
	for _, id := range ids {
		b.ref(predicate, id)
	}
}

// lang emits one triple per language, sorted by tag for stable output.
func (b *tripleBuilder) lang(predicate string, value entity.LangString) {
	tags := make([]string, 0, len(value))
	for tag := range value {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		b.add(predicate, Literal{Value: value[tag], Lang: tag})
	}
}

func (b *tripleBuilder) ends(ends [2]entity.AggregatedEnd) {
	b.ref(dsv.RelationshipDomain, ends[0].Concept)
	b.ref(dsv.RelationshipRange, ends[1].Concept)
	if card := FormatCardinality(ends[1].Cardinality); card != "" {
		b.add(dsv.RelationshipCardinality, card)
	}
}
