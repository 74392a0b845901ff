// Package storage persists materialized vocabulary snapshots in NATS KV so
// they can back Cache nodes when the live model is unavailable.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/model"
)

// BucketSnapshots is the KV bucket holding snapshots keyed by name.
const BucketSnapshots = "SEMAGG_SNAPSHOTS"

var validName = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// Snapshot is a frozen copy of one model.
type Snapshot struct {
	Name      string            `json:"name"`
	Revision  string            `json:"revision"`
	ModelID   string            `json:"model_id"`
	Alias     string            `json:"alias,omitempty"`
	BaseIRI   string            `json:"base_iri,omitempty"`
	Entities  []json.RawMessage `json:"entities"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewSnapshot captures the current entities of m under name. Entities are
// stored in id order.
func NewSnapshot(name string, m entity.Model) (*Snapshot, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	entities := m.Entities()
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := &Snapshot{
		Name:      name,
		Revision:  uuid.New().String(),
		ModelID:   m.ID(),
		Alias:     m.Alias(),
		BaseIRI:   m.BaseIRI(),
		Entities:  make([]json.RawMessage, 0, len(ids)),
		CreatedAt: time.Now(),
	}
	for _, id := range ids {
		data, err := entity.MarshalRaw(entities[id])
		if err != nil {
			return nil, fmt.Errorf("marshal entity %s: %w", id, err)
		}
		s.Entities = append(s.Entities, data)
	}
	return s, nil
}

// Model materializes the snapshot as a read-only model whose id is the
// snapshot name, ready to serve as a Cache node's caches child.
func (s *Snapshot) Model() (*model.Memory, error) {
	raws := make([]entity.Raw, 0, len(s.Entities))
	for i, data := range s.Entities {
		raw, err := entity.UnmarshalRaw(data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s entity %d: %w", s.Name, i, err)
		}
		raws = append(raws, raw)
	}
	alias := s.Alias
	if alias == "" {
		alias = s.ModelID
	}
	return model.NewMemory(s.Name,
		model.ReadOnly(),
		model.WithAlias(alias+" (snapshot)"),
		model.WithBaseIRI(s.BaseIRI),
		model.WithEntities(raws...),
	), nil
}

// SnapshotStore stores snapshots in a JetStream KV bucket.
type SnapshotStore struct {
	kv jetstream.KeyValue
}

// NewSnapshotStore opens the snapshot bucket, creating it if needed. An empty
// bucket name selects BucketSnapshots.
func NewSnapshotStore(ctx context.Context, js jetstream.JetStream, bucket string) (*SnapshotStore, error) {
	if bucket == "" {
		bucket = BucketSnapshots
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create snapshots bucket: %w", err)
	}
	return NewSnapshotStoreFromKV(kv), nil
}

// NewSnapshotStoreFromKV wraps an already opened bucket.
func NewSnapshotStoreFromKV(kv jetstream.KeyValue) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Semagg vocabulary snapshots",
		History:     5, // Keep last 5 revisions
	})
}

// Save snapshots m under name, replacing any previous snapshot of that name.
func (s *SnapshotStore) Save(ctx context.Context, name string, m entity.Model) (*Snapshot, error) {
	snap, err := NewSnapshot(name, m)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.kv.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return snap, nil
}

// Load retrieves a snapshot by name.
func (s *SnapshotStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	entry, err := s.kv.Get(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LoadModel loads a snapshot and materializes it as a read-only model.
func (s *SnapshotStore) LoadModel(ctx context.Context, name string) (*model.Memory, error) {
	snap, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return snap.Model()
}

// List returns all snapshots sorted by name. Entries that fail to load are
// skipped.
func (s *SnapshotStore) List(ctx context.Context) ([]*Snapshot, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}
	sort.Strings(keys)

	snaps := make([]*Snapshot, 0, len(keys))
	for _, key := range keys {
		snap, err := s.Load(ctx, key)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Delete removes a snapshot. Deleting a missing snapshot is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, name string) error {
	if err := s.kv.Delete(ctx, name); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}
