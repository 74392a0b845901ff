package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/semagg/entity"
)

// ErrUnknownModel is returned when a model id is not registered.
var ErrUnknownModel = errors.New("unknown model")

// Registry maps model ids to entity models. Composition configurations refer
// to models by id; the registry resolves those references.
type Registry struct {
	mu     sync.RWMutex
	models map[string]entity.Model
	// files records the file each model was loaded from, if any.
	files map[string]string
}

// NewRegistry creates a registry holding models.
func NewRegistry(models ...entity.Model) *Registry {
	r := &Registry{
		models: make(map[string]entity.Model, len(models)),
		files:  make(map[string]string),
	}
	for _, m := range models {
		r.models[m.ID()] = m
	}
	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(m entity.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.models == nil {
		r.models = make(map[string]entity.Model)
	}
	r.models[m.ID()] = m
}

// RegisterFile adds a model and remembers the file it came from.
func (r *Registry) RegisterFile(m entity.Model, path string) {
	r.Register(m)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files == nil {
		r.files = make(map[string]string)
	}
	r.files[m.ID()] = path
}

// Unregister removes a model. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.models, id)
	delete(r.files, id)
}

// Lookup returns the model registered under id.
func (r *Registry) Lookup(id string) (entity.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// FileFor returns the file a model was loaded from.
func (r *Registry) FileFor(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.files[id]
	return path, ok
}

// ListModels returns the registered model ids, sorted.
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
