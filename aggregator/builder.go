package aggregator

import (
	"fmt"
	"log/slog"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/source"
)

// ModelLookup resolves model references. *model.Registry satisfies it.
type ModelLookup interface {
	Lookup(id string) (entity.Model, error)
}

// Builder turns a Configuration into a composition tree over source adapters.
type Builder struct {
	models ModelLookup
	logger *slog.Logger
}

// NewBuilder creates a builder resolving model references through models.
func NewBuilder(models ModelLookup, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{models: models, logger: logger}
}

// Build validates cfg completely, resolving every model reference, before any
// node is created. A nil configuration is an empty merge.
func (b *Builder) Build(cfg Configuration) (composition.Node, error) {
	if cfg == nil {
		cfg = &MergeConfig{}
	}
	resolved := make(map[string]entity.Model)
	if err := b.validate(cfg, "root", resolved); err != nil {
		return nil, err
	}
	return b.build(cfg, resolved), nil
}

// BuildView builds cfg and wraps the tree in a View.
func (b *Builder) BuildView(cfg Configuration, opts ...ViewOption) (*View, error) {
	root, err := b.Build(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]ViewOption{WithLogger(b.logger)}, opts...)
	return NewView(root, opts...), nil
}

func (b *Builder) validate(cfg Configuration, path string, resolved map[string]entity.Model) error {
	switch c := cfg.(type) {
	case ModelRef:
		if c == "" {
			return invalid(path, "empty model reference")
		}
		if _, ok := resolved[string(c)]; ok {
			return nil
		}
		if b.models == nil {
			return invalid(path, "no model registry to resolve %q", string(c))
		}
		m, err := b.models.Lookup(string(c))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
		resolved[string(c)] = m
		return nil

	case *MergeConfig:
		if c == nil {
			return invalid(path, "missing node")
		}
		for i, child := range c.Models {
			if err := b.validate(child, fmt.Sprintf("%s.models[%d]", path, i), resolved); err != nil {
				return err
			}
		}
		return nil

	case *ApplicationProfileConfig:
		if c == nil {
			return invalid(path, "missing node")
		}
		if err := b.validateChild(c.Model, path+".model", resolved); err != nil {
			return err
		}
		return b.validateChild(c.Profiles, path+".profiles", resolved)

	case *CacheConfig:
		if c == nil {
			return invalid(path, "missing node")
		}
		if err := b.validateChild(c.Model, path+".model", resolved); err != nil {
			return err
		}
		return b.validateChild(c.Caches, path+".caches", resolved)

	case nil:
		return invalid(path, "missing node")
	}
	return invalid(path, "unsupported configuration %T", cfg)
}

func (b *Builder) validateChild(cfg Configuration, path string, resolved map[string]entity.Model) error {
	if cfg == nil {
		return invalid(path, "missing node")
	}
	return b.validate(cfg, path, resolved)
}

func (b *Builder) build(cfg Configuration, resolved map[string]entity.Model) composition.Node {
	switch c := cfg.(type) {
	case ModelRef:
		return source.NewAdapter(resolved[string(c)], source.WithLogger(b.logger))

	case *MergeConfig:
		children := make([]composition.Node, 0, len(c.Models))
		for _, child := range c.Models {
			children = append(children, b.build(child, resolved))
		}
		return composition.NewMerge(b.logger, children...)

	case *ApplicationProfileConfig:
		return composition.NewApplicationProfile(b.logger,
			b.build(c.Model, resolved),
			b.build(c.Profiles, resolved),
			composition.CanAddEntities(c.CanAddEntities),
			composition.CanModify(c.CanModify))

	case *CacheConfig:
		return composition.NewCache(b.logger,
			b.build(c.Model, resolved),
			b.build(c.Caches, resolved))
	}
	// validate rejects everything else
	panic(fmt.Sprintf("aggregator: unvalidated configuration %T", cfg))
}
