package aggregator

import (
	"errors"
	"sort"
	"testing"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/model"
	"github.com/c360studio/semagg/source"
)

func en(s string) entity.LangString { return entity.LangString{"en": s} }

func class(id, name string) *entity.Class {
	return &entity.Class{ID: id, Name: en(name)}
}

type recorded struct {
	updated []string
	removed []string
}

type recorder struct {
	batches []recorded
}

func (r *recorder) listen(updated map[string]*composition.Wrapper, removed []string) {
	ids := make([]string, 0, len(updated))
	for id := range updated {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rm := append([]string(nil), removed...)
	sort.Strings(rm)
	r.batches = append(r.batches, recorded{updated: ids, removed: rm})
}

// staticModel is a read-only entity.Model whose table may hold entries a
// well-behaved model would never hand out.
type staticModel struct {
	id       string
	entities map[string]entity.Raw
}

func (m *staticModel) ID() string                         { return m.id }
func (m *staticModel) Alias() string                      { return "" }
func (m *staticModel) BaseIRI() string                    { return "https://example.org/" }
func (m *staticModel) Entities() map[string]entity.Raw    { return m.entities }
func (m *staticModel) Subscribe(entity.ChangeFunc) func() { return func() {} }

func emptyView(t *testing.T, opts ...ViewOption) *View {
	t.Helper()
	v := NewView(composition.NewMerge(nil), opts...)
	t.Cleanup(v.Close)
	return v
}

func TestViewAddRemoveModelSingleBatch(t *testing.T) {
	v := emptyView(t)
	shared := model.NewMemory("shared", model.WithEntities(class("common", "Common")))
	require.NoError(t, v.AddModel(shared))

	first, second := &recorder{}, &recorder{}
	v.Subscribe(first.listen)
	v.Subscribe(second.listen)

	m := model.NewMemory("m", model.WithEntities(
		class("a", "A"), class("b", "B"), class("c", "C"), class("common", "Common"),
	))
	require.NoError(t, v.AddModel(m))

	for _, r := range []*recorder{first, second} {
		require.Len(t, r.batches, 1)
		assert.Equal(t, []string{"a", "b", "c", "common"}, r.batches[0].updated)
	}

	require.NoError(t, v.RemoveModel(m))

	for _, r := range []*recorder{first, second} {
		require.Len(t, r.batches, 2)
		assert.Equal(t, []string{"a", "b", "c"}, r.batches[1].removed)
	}
	assert.Equal(t, 1, v.Len())

	common, ok := v.Entity("common")
	require.True(t, ok)
	assert.Len(t, common.Sources, 1)
}

func TestViewMergeProvenance(t *testing.T) {
	v := emptyView(t)
	m1 := model.NewMemory("m1", model.WithEntities(class("X", "Foo")))
	m2 := model.NewMemory("m2", model.WithEntities(class("X", "Bar")))
	require.NoError(t, v.AddModel(m1))
	require.NoError(t, v.AddModel(m2))

	x, ok := v.Entity("X")
	require.True(t, ok)
	assert.Len(t, x.Sources, 2)

	require.NoError(t, v.RemoveModel(m2))

	x, ok = v.Entity("X")
	require.True(t, ok)
	require.Len(t, x.Sources, 1)
	assert.Equal(t, "m1", x.Sources[0].ModelID)
}

func TestViewRemoveUnknownModelIsNoop(t *testing.T) {
	v := emptyView(t)
	rec := &recorder{}
	v.Subscribe(rec.listen)

	assert.NoError(t, v.RemoveModel(model.NewMemory("never-added")))
	assert.Empty(t, rec.batches)
}

func TestViewAddModelTwice(t *testing.T) {
	v := emptyView(t)
	m := model.NewMemory("m")

	require.NoError(t, v.AddModel(m))
	assert.True(t, errors.Is(v.AddModel(m), ErrDuplicateModel))
}

func TestViewRequiresMergeRoot(t *testing.T) {
	root := source.NewAdapter(model.NewMemory("only"))
	v := NewView(root)
	defer v.Close()

	assert.ErrorIs(t, v.AddModel(model.NewMemory("m")), ErrNotMergeRoot)
	assert.ErrorIs(t, v.RemoveModel(model.NewMemory("m")), ErrNotMergeRoot)
}

func TestViewEntitiesAreSnapshots(t *testing.T) {
	v := emptyView(t)
	require.NoError(t, v.AddModel(model.NewMemory("m", model.WithEntities(class("a", "A")))))

	got := v.Entities()
	got["a"].Entity.(*entity.AggregatedClass).Name["en"] = "mutated"
	delete(got, "a")

	a, ok := v.Entity("a")
	require.True(t, ok)
	assert.Equal(t, "A", a.Entity.Head().Name["en"])
}

func TestViewMutationThroughModel(t *testing.T) {
	v := emptyView(t)
	m := model.NewMemory("m")
	require.NoError(t, v.AddModel(m))
	rec := &recorder{}
	v.Subscribe(rec.listen)

	m.Apply(
		entity.CreateEntity{Entity: class("a", "A")},
		entity.CreateEntity{Entity: &entity.ClassProfile{ID: "p", Profiling: []string{"a"}, NameFromProfiled: "a"}},
	)

	require.Len(t, rec.batches, 1, "one batch per logical mutation")
	assert.Equal(t, []string{"a", "p"}, rec.batches[0].updated)

	p, _ := v.Entity("p")
	assert.Equal(t, "A", p.Entity.Head().Name["en"])
}

func TestViewReentrantListener(t *testing.T) {
	v := emptyView(t)
	m := model.NewMemory("m")
	require.NoError(t, v.AddModel(m))

	rec := &recorder{}
	v.Subscribe(func(updated map[string]*composition.Wrapper, removed []string) {
		rec.listen(updated, removed)
		if _, ok := updated["a"]; ok {
			v.ExecOperation(entity.CreateEntity{Entity: class("b", "B")})
		}
	})
	late := &recorder{}
	v.Subscribe(late.listen)

	res := v.ExecOperation(entity.CreateEntity{Entity: class("a", "A")})
	require.True(t, res.Success)

	require.Len(t, rec.batches, 2)
	assert.Equal(t, []string{"a"}, rec.batches[0].updated)
	assert.Equal(t, []string{"b"}, rec.batches[1].updated)
	assert.Equal(t, rec.batches, late.batches, "every listener sees the same batches in order")
	assert.Equal(t, 2, v.Len())
}

func TestViewSearch(t *testing.T) {
	v := emptyView(t)
	require.NoError(t, v.AddModel(model.NewMemory("m", model.WithEntities(
		class("person", "Person"),
		class("personnel", "Personnel"),
		class("car", "Car"),
		&entity.ClassProfile{ID: "worker", Profiling: []string{"personnel"}, NameFromProfiled: "personnel"},
	))))

	results := v.Search("PERSON")

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Wrapper.Entity.Head().ID)
	}
	assert.Equal(t, []string{"person", "personnel", "worker"}, ids)
	assert.Empty(t, v.Search("  "))
}

func TestViewMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	v := emptyView(t, WithMetrics(metrics))
	m := model.NewMemory("m", model.WithEntities(class("a", "A"), class("b", "B")))
	require.NoError(t, v.AddModel(m))
	require.NoError(t, v.RemoveModel(m))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.batches))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.updated))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.removed))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.entities))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.modelChanges.WithLabelValues("add")))

	disabled, err := NewMetrics(nil)
	assert.NoError(t, err)
	assert.Nil(t, disabled)
}

func TestViewMalformedEntityStaysLocal(t *testing.T) {
	v := emptyView(t)
	rec := &recorder{}
	v.Subscribe(rec.listen)

	require.NoError(t, v.AddModel(&staticModel{id: "ext", entities: map[string]entity.Raw{
		"ok":  class("ok", "Fine"),
		"bad": (*entity.ClassProfile)(nil),
	}}))

	require.Len(t, rec.batches, 1)
	assert.Equal(t, []string{"bad", "ok"}, rec.batches[0].updated)

	ok, found := v.Entity("ok")
	require.True(t, found)
	assert.IsType(t, &entity.AggregatedClass{}, ok.Entity)

	bad, found := v.Entity("bad")
	require.True(t, found)
	assert.IsType(t, &entity.Unresolved{}, bad.Entity)
	assert.Equal(t, "ext", bad.Sources[0].ModelID)

	// A well-formed definition in a later model takes over the id.
	require.NoError(t, v.AddModel(model.NewMemory("core", model.WithEntities(class("bad", "Repaired")))))
	repaired, _ := v.Entity("bad")
	assert.IsType(t, &entity.AggregatedClass{}, repaired.Entity)
	assert.Equal(t, "Repaired", repaired.Entity.Head().Name["en"])
}
