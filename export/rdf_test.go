package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/aggregator"
	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/export"
	"github.com/c360studio/semagg/model"
	"github.com/c360studio/semagg/source"
	"github.com/c360studio/semagg/vocabulary/dsv"
)

func testView(t *testing.T) *aggregator.View {
	t.Helper()
	core := model.NewMemory("core", model.ReadOnly(), model.WithBaseIRI("https://example.com/vocab#"), model.WithEntities(
		&entity.Class{ID: "person", IRI: "Person", Name: entity.LangString{"en": "Person", "cs": "Osoba"}},
		&entity.Class{ID: "org", Name: entity.LangString{"en": "Organization \"Org\""}},
	))
	profiles := model.NewMemory("profiles", model.WithEntities(
		&entity.ClassProfile{ID: "employee", IRI: "https://example.com/ap#Employee", Profiling: []string{"person"}, NameFromProfiled: "person"},
	))
	root := composition.NewMerge(nil, source.NewAdapter(core), source.NewAdapter(profiles))
	v := aggregator.NewView(root)
	t.Cleanup(v.Close)
	return v
}

func exportView(t *testing.T, format export.Format) string {
	t.Helper()
	exporter := export.NewExporter()
	exporter.AddAll(testView(t))
	out, err := exporter.Export(format)
	require.NoError(t, err)
	return out
}

func TestExportContainsIRIsAndNames(t *testing.T) {
	for _, format := range []export.Format{export.FormatTurtle, export.FormatNTriples, export.FormatJSONLD} {
		t.Run(string(format), func(t *testing.T) {
			out := exportView(t, format)
			assert.Contains(t, out, "https://example.com/vocab#Person")
			assert.Contains(t, out, "https://example.com/ap#Employee")
			assert.Contains(t, out, dsv.EntityNamespace+"org", "entities without an IRI use the entity namespace")
			assert.Contains(t, out, "Person")
			assert.Contains(t, out, "Osoba")
		})
	}
}

func TestExportTurtle(t *testing.T) {
	out := exportView(t, export.FormatTurtle)

	assert.True(t, strings.HasPrefix(out, "@prefix dct: "), "prefixes are sorted")
	assert.Contains(t, out, "@prefix dsv: <"+dsv.Namespace+"> .")
	assert.Contains(t, out, "\"Osoba\"@cs")
	assert.Contains(t, out, `"Organization \"Org\""@en`)
	assert.Contains(t, out, "a <"+dsv.OwlClass+">")
	assert.Contains(t, out, "a <"+dsv.ClassClassProfile+">")
	// profiling reference resolves to the profiled class's IRI
	assert.Contains(t, out, "<"+dsv.PropProfileOf+"> <https://example.com/vocab#Person>")
	assert.NotContains(t, out, "\"class\"", "kind is a type assertion, not a literal")
}

func TestExportNTriples(t *testing.T) {
	out := exportView(t, export.FormatNTriples)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, " ."), "N-Triple line should end with ' .': %s", line)
		assert.True(t, strings.HasPrefix(line, "<"), "N-Triple line should start with a subject IRI: %s", line)
	}
	assert.Contains(t, out, "<https://example.com/vocab#Person> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <"+dsv.OwlClass+"> .")
}

func TestExportJSONLD(t *testing.T) {
	out := exportView(t, export.FormatJSONLD)

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []map[string]any  `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, dsv.Namespace, doc.Context["dsv"])
	require.Len(t, doc.Graph, 3)

	// nodes are in id order: employee, org, person
	assert.Equal(t, "https://example.com/ap#Employee", doc.Graph[0]["@id"])
	person := doc.Graph[2]
	assert.Equal(t, "https://example.com/vocab#Person", person["@id"])
	names, ok := person[dsv.IRI(dsv.LabelName)].([]any)
	require.True(t, ok, "two languages yield a list")
	assert.Len(t, names, 2)
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := export.NewExporter().Export("rdfxml")
	assert.Error(t, err)
}

func TestExporterIRI(t *testing.T) {
	e := export.NewExporter()
	e.Add(&composition.Wrapper{Entity: &entity.AggregatedClass{Header: entity.Header{ID: "a b", Kind: entity.KindClass, IRI: "relative"}}})
	e.Add(nil)

	assert.Equal(t, dsv.EntityNamespace+"a%20b", e.IRI("a b"))
	assert.Equal(t, dsv.EntityNamespace+"missing", e.IRI("missing"))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Format
		wantErr bool
	}{
		{"turtle", export.FormatTurtle, false},
		{".ttl", export.FormatTurtle, false},
		{"nt", export.FormatNTriples, false},
		{"JSONLD", export.FormatJSONLD, false},
		{"rdfxml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFormatInfo(t *testing.T) {
	info, ok := export.GetFormatInfo(export.FormatTurtle)
	require.True(t, ok)
	assert.Equal(t, "text/turtle", info.MIMEType)

	_, ok = export.GetFormatInfo("unknown")
	assert.False(t, ok)
}

func TestExportEmpty(t *testing.T) {
	out, err := export.NewExporter().Export(export.FormatJSONLD)
	require.NoError(t, err)
	assert.Contains(t, out, `"@graph": []`)

	out, err = export.NewExporter().Export(export.FormatNTriples)
	require.NoError(t, err)
	assert.Empty(t, out)
}
