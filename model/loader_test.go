package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/entity"
)

const coreYAML = `id: core
alias: Core vocabulary
baseIri: https://example.org/core#
readOnly: true
entities:
  - type: class
    id: person
    iri: Person
    name: { en: Person, cs: Osoba }
  - type: relationship
    id: knows
    ends:
      - concept: person
      - concept: person
        iri: knows
        name: { en: knows }
        cardinality: { min: 0, max: -1 }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "core.yaml", coreYAML)

	m, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "core", m.ID())
	assert.Equal(t, "Core vocabulary", m.Alias())
	assert.Equal(t, "https://example.org/core#", m.BaseIRI())
	assert.True(t, m.IsReadOnly())

	entities := m.Entities()
	require.Len(t, entities, 2)

	person, ok := entities["person"].(*entity.Class)
	require.True(t, ok)
	assert.Equal(t, "Person", person.IRI)
	assert.Equal(t, "Osoba", person.Name["cs"])

	knows, ok := entities["knows"].(*entity.Relationship)
	require.True(t, ok)
	require.NotNil(t, knows.Ends[1].Cardinality)
	assert.Equal(t, entity.Unbounded, knows.Ends[1].Cardinality.Max)
}

func TestLoadFromBytesJSON(t *testing.T) {
	data := []byte(`{"id":"p","entities":[{"type":"class-profile","id":"pp","profiling":["person"]}]}`)

	m, err := LoadFromBytes(data)
	require.NoError(t, err)

	cp, ok := m.Entities()["pp"].(*entity.ClassProfile)
	require.True(t, ok)
	assert.Equal(t, []string{"person"}, cp.Profiling)
	assert.False(t, m.IsReadOnly())
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "entities: []"},
		{"unknown type", "id: m\nentities:\n  - type: widget\n    id: w"},
		{"missing type", "id: m\nentities:\n  - id: w"},
		{"duplicate id", "id: m\nentities:\n  - {type: class, id: a}\n  - {type: class, id: a}"},
		{"not yaml", "id: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFile([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestEncodeFileRoundTripsThroughLoader(t *testing.T) {
	src, err := LoadFromBytes([]byte(coreYAML))
	require.NoError(t, err)

	data, err := EncodeFile(src, true)
	require.NoError(t, err)

	again, err := LoadFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, src.Entities(), again.Entities())
	assert.True(t, again.IsReadOnly())
}

func TestResolveModelFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "id: a")
	b := writeFile(t, dir, "nested/deep/b.json", `{"id":"b"}`)
	writeFile(t, dir, "nested/readme.md", "# not a model")

	files, err := ResolveModelFiles([]string{filepath.Join(dir, "**", "*"), a})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	_, err = ResolveModelFiles([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "core.yaml", coreYAML)
	writeFile(t, dir, "extra.yaml", "id: extra\nentities:\n  - {type: class, id: x}")

	r := NewRegistry()
	loaded, err := LoadFiles(r, []string{filepath.Join(dir, "*.yaml")})
	require.NoError(t, err)

	assert.Len(t, loaded, 2)
	assert.Equal(t, []string{"core", "extra"}, r.ListModels())
	_, err = r.Lookup("extra")
	assert.NoError(t, err)
}

func TestLoadFilesDuplicateModelID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.yaml", "id: same")
	writeFile(t, dir, "two.yaml", "id: same")

	_, err := LoadFiles(NewRegistry(), []string{filepath.Join(dir, "*.yaml")})
	assert.Error(t, err)
}
