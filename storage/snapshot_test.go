package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/model"
)

// fakeKV implements the subset of jetstream.KeyValue the store uses.
type fakeKV struct {
	jetstream.KeyValue
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Keys(_ context.Context, _ ...jetstream.WatchOpt) ([]string, error) {
	if len(f.data) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	if _, ok := f.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func coreModel() *model.Memory {
	return model.NewMemory("core",
		model.WithAlias("Core"),
		model.WithBaseIRI("https://example.com/core#"),
		model.WithEntities(
			&entity.Class{ID: "person", Name: entity.LangString{"en": "Person"}},
			&entity.ClassProfile{ID: "employee", Profiling: []string{"person"}, NameFromProfiled: "person"},
		),
	)
}

func TestNewSnapshot(t *testing.T) {
	snap, err := NewSnapshot("core-snapshot", coreModel())
	require.NoError(t, err)

	assert.Equal(t, "core-snapshot", snap.Name)
	assert.Equal(t, "core", snap.ModelID)
	assert.NotEmpty(t, snap.Revision)
	assert.False(t, snap.CreatedAt.IsZero())
	require.Len(t, snap.Entities, 2)
	assert.Contains(t, string(snap.Entities[0]), `"employee"`, "entities are in id order")

	other, err := NewSnapshot("core-snapshot", coreModel())
	require.NoError(t, err)
	assert.NotEqual(t, snap.Revision, other.Revision)

	_, err = NewSnapshot("bad name", coreModel())
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSnapshotModel(t *testing.T) {
	snap, err := NewSnapshot("core-snapshot", coreModel())
	require.NoError(t, err)

	m, err := snap.Model()
	require.NoError(t, err)
	assert.Equal(t, "core-snapshot", m.ID())
	assert.Equal(t, "Core (snapshot)", m.Alias())
	assert.Equal(t, "https://example.com/core#", m.BaseIRI())
	assert.True(t, m.IsReadOnly())
	assert.Equal(t, coreModel().Entities(), m.Entities())

	snap.Entities = append(snap.Entities, []byte(`{"type":"widget","id":"x"}`))
	_, err = snap.Model()
	assert.Error(t, err)
}

func TestSnapshotStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStoreFromKV(newFakeKV())

	saved, err := store.Save(ctx, "core-snapshot", coreModel())
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "core-snapshot")
	require.NoError(t, err)
	assert.Equal(t, saved.Revision, loaded.Revision)
	assert.Equal(t, saved.ModelID, loaded.ModelID)
	assert.Len(t, loaded.Entities, 2)

	m, err := store.LoadModel(ctx, "core-snapshot")
	require.NoError(t, err)
	assert.Len(t, m.Entities(), 2)
}

func TestSnapshotStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStoreFromKV(newFakeKV())

	_, err := store.Load(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.LoadModel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "no spaces allowed")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestSnapshotStoreList(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewSnapshotStoreFromKV(kv)

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	_, err = store.Save(ctx, "b", coreModel())
	require.NoError(t, err)
	_, err = store.Save(ctx, "a", coreModel())
	require.NoError(t, err)
	kv.data["corrupt"] = []byte("{not json")

	snaps, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2, "corrupt entries are skipped")
	assert.Equal(t, "a", snaps[0].Name)
	assert.Equal(t, "b", snaps[1].Name)

	require.NoError(t, store.Delete(ctx, "a"))
	snaps, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}
