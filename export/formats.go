package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semagg/vocabulary/dsv"
)

// FormatInfo describes an export format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string // with the leading dot
	Description string
}

// FormatRegistry lists the supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples, one statement per line",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD graph document",
	},
}

// GetFormatInfo looks up format in FormatRegistry.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for name, info := range FormatRegistry {
		if s == string(name) || s == info.Extension || "."+s == info.Extension {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// encoder serializes exported entities one subject at a time.
type encoder interface {
	subject(iri, typeIRI string, triples []message.Triple)
	finish() (string, error)
}

func newEncoder(format Format, prefixes map[string]string) (encoder, error) {
	switch format {
	case FormatTurtle:
		return newTurtleEncoder(prefixes), nil
	case FormatNTriples:
		return &ntriplesEncoder{}, nil
	case FormatJSONLD:
		return newJSONLDEncoder(prefixes), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// turtleEncoder writes one predicate list per subject, prefixes first.
type turtleEncoder struct {
	sb strings.Builder
}

func newTurtleEncoder(prefixes map[string]string) *turtleEncoder {
	enc := &turtleEncoder{}
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&enc.sb, "@prefix %s: <%s> .\n", name, prefixes[name])
	}
	enc.sb.WriteString("\n")
	return enc
}

func (enc *turtleEncoder) subject(iri, typeIRI string, triples []message.Triple) {
	fmt.Fprintf(&enc.sb, "<%s>\n    a <%s>", iri, typeIRI)
	for _, tr := range triples {
		fmt.Fprintf(&enc.sb, " ;\n    <%s> %s", predicateIRI(tr.Predicate), formatObject(tr.Object))
	}
	enc.sb.WriteString(" .\n\n")
}

func (enc *turtleEncoder) finish() (string, error) {
	return enc.sb.String(), nil
}

type ntriplesEncoder struct {
	sb strings.Builder
}

func (enc *ntriplesEncoder) subject(iri, typeIRI string, triples []message.Triple) {
	fmt.Fprintf(&enc.sb, "<%s> <%s> <%s> .\n", iri, dsv.RdfType, typeIRI)
	for _, tr := range triples {
		fmt.Fprintf(&enc.sb, "<%s> <%s> %s .\n", iri, predicateIRI(tr.Predicate), formatObject(tr.Object))
	}
}

func (enc *ntriplesEncoder) finish() (string, error) {
	return enc.sb.String(), nil
}

// jsonldEncoder collects one node per subject under @graph. A predicate seen
// more than once on a subject becomes an array.
type jsonldEncoder struct {
	context map[string]string
	nodes   []map[string]any
}

func newJSONLDEncoder(prefixes map[string]string) *jsonldEncoder {
	ctx := make(map[string]string, len(prefixes))
	for name, iri := range prefixes {
		ctx[name] = iri
	}
	return &jsonldEncoder{context: ctx}
}

func (enc *jsonldEncoder) subject(iri, typeIRI string, triples []message.Triple) {
	node := map[string]any{"@id": iri, "@type": []string{typeIRI}}
	for _, tr := range triples {
		key := predicateIRI(tr.Predicate)
		value := formatObjectJSONLD(tr.Object)
		switch prev := node[key].(type) {
		case nil:
			node[key] = value
		case []any:
			node[key] = append(prev, value)
		default:
			node[key] = []any{prev, value}
		}
	}
	enc.nodes = append(enc.nodes, node)
}

func (enc *jsonldEncoder) finish() (string, error) {
	nodes := enc.nodes
	if nodes == nil {
		nodes = []map[string]any{}
	}
	data, err := json.MarshalIndent(map[string]any{
		"@context": enc.context,
		"@graph":   nodes,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json-ld: %w", err)
	}
	return string(data), nil
}
