package aggregator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for malformed composition configurations.
var ErrInvalidConfig = errors.New("invalid composition configuration")

// Model types of composition configuration nodes.
const (
	TypeMerge              = "merge"
	TypeApplicationProfile = "application-profile"
	TypeCache              = "cache"
)

// Configuration is one node of a composition tree.
// Implemented by ModelRef, *MergeConfig, *ApplicationProfileConfig and
// *CacheConfig only.
type Configuration interface {
	isConfiguration()
}

// ModelRef names a model by id. It is written as a plain string.
type ModelRef string

// MergeConfig unions its models. Nil Models is an empty merge that models
// are added to later.
type MergeConfig struct {
	Models []Configuration
}

// ApplicationProfileConfig overlays Profiles on Model.
type ApplicationProfileConfig struct {
	Model          Configuration
	Profiles       Configuration
	CanAddEntities bool
	CanModify      bool
}

// CacheConfig falls back from Model to the snapshots in Caches.
type CacheConfig struct {
	Model  Configuration
	Caches Configuration
}

func (ModelRef) isConfiguration()                  {}
func (*MergeConfig) isConfiguration()              {}
func (*ApplicationProfileConfig) isConfiguration() {}
func (*CacheConfig) isConfiguration()              {}

// LoadConfiguration reads a composition file (YAML or JSON).
func LoadConfiguration(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read composition file: %w", err)
	}
	cfg, err := ParseConfiguration(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfiguration decodes composition file content.
func ParseConfiguration(data []byte) (Configuration, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return DecodeConfiguration(tree)
}

// DecodeConfiguration converts a generic tree, as produced by a YAML or JSON
// decoder, into a Configuration. Every node is checked; the first problem is
// reported with the path of the offending node.
func DecodeConfiguration(tree any) (Configuration, error) {
	return decodeNode(tree, "root")
}

func decodeNode(v any, path string) (Configuration, error) {
	switch node := v.(type) {
	case nil:
		return nil, invalid(path, "missing node")
	case string:
		if node == "" {
			return nil, invalid(path, "empty model reference")
		}
		return ModelRef(node), nil
	case map[string]any:
		return decodeObject(node, path)
	}
	return nil, invalid(path, "expected a model reference or an object, got %T", v)
}

func decodeObject(obj map[string]any, path string) (Configuration, error) {
	raw, ok := obj["modelType"]
	if !ok {
		return nil, invalid(path, "missing modelType")
	}
	modelType, ok := raw.(string)
	if !ok {
		return nil, invalid(path, "modelType must be a string")
	}

	switch modelType {
	case TypeMerge:
		return decodeMerge(obj, path)

	case TypeApplicationProfile:
		model, err := requiredChild(obj, "model", path)
		if err != nil {
			return nil, err
		}
		profiles, err := requiredChild(obj, "profiles", path)
		if err != nil {
			return nil, err
		}
		canAdd, err := optionalBool(obj, "canAddEntities", path)
		if err != nil {
			return nil, err
		}
		canModify, err := optionalBool(obj, "canModify", path)
		if err != nil {
			return nil, err
		}
		return &ApplicationProfileConfig{
			Model:          model,
			Profiles:       profiles,
			CanAddEntities: canAdd,
			CanModify:      canModify,
		}, nil

	case TypeCache:
		model, err := requiredChild(obj, "model", path)
		if err != nil {
			return nil, err
		}
		caches, err := requiredChild(obj, "caches", path)
		if err != nil {
			return nil, err
		}
		return &CacheConfig{Model: model, Caches: caches}, nil
	}

	return nil, invalid(path, "unknown modelType %q", modelType)
}

func decodeMerge(obj map[string]any, path string) (Configuration, error) {
	raw, ok := obj["models"]
	if !ok || raw == nil {
		return &MergeConfig{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid(path+".models", "expected a list, got %T", raw)
	}

	cfg := &MergeConfig{Models: make([]Configuration, 0, len(list))}
	for i, item := range list {
		child, err := decodeNode(item, fmt.Sprintf("%s.models[%d]", path, i))
		if err != nil {
			return nil, err
		}
		cfg.Models = append(cfg.Models, child)
	}
	return cfg, nil
}

func requiredChild(obj map[string]any, key, path string) (Configuration, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, invalid(path, "missing %s", key)
	}
	return decodeNode(raw, path+"."+key)
}

func optionalBool(obj map[string]any, key, path string) (bool, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, invalid(path+"."+key, "expected a boolean, got %T", raw)
	}
	return b, nil
}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, fmt.Sprintf(format, args...))
}

// EncodeConfiguration converts cfg back into the generic tree form, ready for
// YAML or JSON encoding.
func EncodeConfiguration(cfg Configuration) any {
	switch c := cfg.(type) {
	case ModelRef:
		return string(c)
	case *MergeConfig:
		out := map[string]any{"modelType": TypeMerge}
		if c.Models != nil {
			models := make([]any, 0, len(c.Models))
			for _, m := range c.Models {
				models = append(models, EncodeConfiguration(m))
			}
			out["models"] = models
		} else {
			out["models"] = nil
		}
		return out
	case *ApplicationProfileConfig:
		return map[string]any{
			"modelType":      TypeApplicationProfile,
			"model":          EncodeConfiguration(c.Model),
			"profiles":       EncodeConfiguration(c.Profiles),
			"canAddEntities": c.CanAddEntities,
			"canModify":      c.CanModify,
		}
	case *CacheConfig:
		return map[string]any{
			"modelType": TypeCache,
			"model":     EncodeConfiguration(c.Model),
			"caches":    EncodeConfiguration(c.Caches),
		}
	}
	return nil
}

// ModelIDs lists every model referenced by cfg, depth first, with duplicates.
func ModelIDs(cfg Configuration) []string {
	var ids []string
	var walk func(Configuration)
	walk = func(c Configuration) {
		switch n := c.(type) {
		case ModelRef:
			ids = append(ids, string(n))
		case *MergeConfig:
			for _, m := range n.Models {
				walk(m)
			}
		case *ApplicationProfileConfig:
			walk(n.Model)
			walk(n.Profiles)
		case *CacheConfig:
			walk(n.Model)
			walk(n.Caches)
		}
	}
	walk(cfg)
	return ids
}
