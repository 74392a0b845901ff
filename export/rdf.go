// Package export serializes an aggregated view to RDF.
package export

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/vocabulary"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/graph"
	"github.com/c360studio/semagg/vocabulary/dsv"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// EntitySource provides the wrappers to export. Views and composition nodes
// both satisfy it.
type EntitySource interface {
	Entities() map[string]*composition.Wrapper
}

// Exporter exports aggregated entities to RDF.
type Exporter struct {
	prefixes map[string]string
	entities []*composition.Wrapper
	iris     map[string]string
	now      time.Time
}

// NewExporter creates an exporter with the default prefixes.
func NewExporter() *Exporter {
	return &Exporter{
		prefixes: defaultPrefixes(),
		iris:     make(map[string]string),
		now:      time.Now(),
	}
}

// defaultPrefixes returns the standard namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
		"owl":    "http://www.w3.org/2002/07/owl#",
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"dct":    "http://purl.org/dc/terms/",
		"skos":   "http://www.w3.org/2004/02/skos/core#",
		"prov":   "http://www.w3.org/ns/prov#",
		"dsv":    dsv.Namespace,
		"entity": dsv.EntityNamespace,
	}
}

// Add adds one wrapper to the export.
func (e *Exporter) Add(w *composition.Wrapper) {
	if w == nil || w.Entity == nil {
		return
	}
	head := w.Entity.Head()
	e.entities = append(e.entities, w)
	e.iris[head.ID] = subjectIRI(head.ID, head.IRI)
}

// AddAll adds every wrapper of src.
func (e *Exporter) AddAll(src EntitySource) {
	for _, w := range src.Entities() {
		e.Add(w)
	}
}

// IRI returns the IRI used for the entity id. Ids outside the export map
// into the entity namespace.
func (e *Exporter) IRI(id string) string {
	if iri, ok := e.iris[id]; ok {
		return iri
	}
	return subjectIRI(id, "")
}

// Export serializes all entities to the specified format. Entities are
// written in id order.
func (e *Exporter) Export(format Format) (string, error) {
	sort.Slice(e.entities, func(i, j int) bool {
		return e.entities[i].Entity.Head().ID < e.entities[j].Entity.Head().ID
	})

	enc, err := newEncoder(format, e.prefixes)
	if err != nil {
		return "", err
	}
	for _, w := range e.entities {
		subject, typeIRI, triples := e.statements(w)
		enc.subject(subject, typeIRI, triples)
	}
	return enc.finish()
}

// statements returns the subject IRI, type IRI and exportable triples of w.
func (e *Exporter) statements(w *composition.Wrapper) (string, string, []message.Triple) {
	head := w.Entity.Head()
	var out []message.Triple
	for _, tr := range graph.Triples(w, e.IRI, e.now) {
		if tr.Predicate == dsv.EntityKind {
			continue
		}
		out = append(out, tr)
	}
	return e.IRI(head.ID), dsv.TypeIRI(head.Kind), out
}

// predicateIRI maps a dotted predicate to its registered IRI.
func predicateIRI(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil && meta.StandardIRI != "" {
		return meta.StandardIRI
	}
	return dsv.Namespace + strings.ReplaceAll(predicate, ".", "/")
}

// subjectIRI prefers the entity's own absolute IRI.
func subjectIRI(id, iri string) string {
	if isIRI(iri) {
		return iri
	}
	return dsv.EntityNamespace + url.PathEscape(id)
}

func isIRI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && !strings.ContainsAny(s, " \"<>")
}

// formatObject formats an object value for Turtle and N-Triples output.
func formatObject(obj any) string {
	switch v := obj.(type) {
	case graph.Literal:
		if v.Lang != "" {
			return fmt.Sprintf("\"%s\"@%s", escapeString(v.Value), v.Lang)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v.Value))
	case string:
		if isIRI(v) {
			return fmt.Sprintf("<%s>", v)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^<http://www.w3.org/2001/XMLSchema#boolean>", v)
	default:
		return fmt.Sprintf("\"%s\"", escapeString(fmt.Sprint(v)))
	}
}

// formatObjectJSONLD formats an object value for JSON-LD output.
func formatObjectJSONLD(obj any) any {
	switch v := obj.(type) {
	case graph.Literal:
		if v.Lang != "" {
			return map[string]string{"@value": v.Value, "@language": v.Lang}
		}
		return v.Value
	case string:
		if isIRI(v) {
			return map[string]string{"@id": v}
		}
		return v
	default:
		return v
	}
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
