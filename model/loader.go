package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semagg/entity"
)

// File is the on-disk form of an entity model. YAML and JSON are both
// accepted; JSON is read through the YAML decoder.
type File struct {
	ID       string           `yaml:"id" json:"id"`
	Alias    string           `yaml:"alias,omitempty" json:"alias,omitempty"`
	BaseIRI  string           `yaml:"baseIri,omitempty" json:"baseIri,omitempty"`
	ReadOnly bool             `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Entities []map[string]any `yaml:"entities" json:"entities"`
}

// LoadFile reads a model file and builds an in-memory model from it.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	m, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// LoadFromBytes parses model file content.
func LoadFromBytes(data []byte) (*Memory, error) {
	f, entities, err := ParseFile(data)
	if err != nil {
		return nil, err
	}

	opts := []MemoryOption{WithAlias(f.Alias), WithBaseIRI(f.BaseIRI), WithEntities(entities...)}
	if f.ReadOnly {
		opts = append(opts, ReadOnly())
	}
	return NewMemory(f.ID, opts...), nil
}

// ParseFile decodes model file content into its header and raw entities.
func ParseFile(data []byte) (*File, []entity.Raw, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse model file: %w", err)
	}
	if f.ID == "" {
		return nil, nil, fmt.Errorf("parse model file: missing id")
	}

	seen := make(map[string]bool, len(f.Entities))
	entities := make([]entity.Raw, 0, len(f.Entities))
	for i, fields := range f.Entities {
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %d: %w", i, err)
		}
		raw, err := entity.UnmarshalRaw(body)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %d: %w", i, err)
		}
		if seen[raw.EntityID()] {
			return nil, nil, fmt.Errorf("entity %d: duplicate id %q", i, raw.EntityID())
		}
		seen[raw.EntityID()] = true
		entities = append(entities, raw)
	}
	return &f, entities, nil
}

// EncodeFile renders a model as YAML in the model file format.
func EncodeFile(m entity.Model, readOnly bool) ([]byte, error) {
	raws := m.Entities()
	ids := make([]string, 0, len(raws))
	for id := range raws {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	f := File{ID: m.ID(), Alias: m.Alias(), BaseIRI: m.BaseIRI(), ReadOnly: readOnly}
	for _, id := range ids {
		body, err := entity.MarshalRaw(raws[id])
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("encode %q: %w", id, err)
		}
		f.Entities = append(f.Entities, fields)
	}
	return yaml.Marshal(&f)
}

// ResolveModelFiles expands glob patterns to model files.
// Supports both single-level wildcards (*) and recursive wildcards (**).
// Patterns without glob characters must name an existing file.
func ResolveModelFiles(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := resolvePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}

		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	return resolved, nil
}

func resolvePattern(pattern string) ([]string, error) {
	absPattern, err := filepath.Abs(pattern)
	if err != nil {
		return nil, err
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		info, err := os.Stat(absPattern)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory: %s", absPattern)
		}
		return []string{absPattern}, nil
	}

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if isModelFile(match) {
			files = append(files, match)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isModelFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFiles loads every file matched by patterns into r. It returns the
// loaded models keyed by file path.
func LoadFiles(r *Registry, patterns []string) (map[string]*Memory, error) {
	paths, err := ResolveModelFiles(patterns)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]*Memory, len(paths))
	for _, path := range paths {
		m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := r.FileFor(m.ID()); ok && prev != path {
			return nil, fmt.Errorf("model %q defined in both %s and %s", m.ID(), prev, path)
		}
		r.RegisterFile(m, path)
		loaded[path] = m
	}
	return loaded, nil
}
