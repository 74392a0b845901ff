package composition

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/resolver"
)

func wrapper(id, name string) *Wrapper {
	return &Wrapper{
		Entity:   &entity.AggregatedClass{Header: entity.Header{ID: id, Kind: entity.KindClass, Name: entity.LangString{"en": name}}},
		Raw:      &entity.Class{ID: id, Name: entity.LangString{"en": name}},
		ReadOnly: true,
	}
}

func TestSubscribersOrderAndUnsubscribe(t *testing.T) {
	var s Subscribers
	var calls []string

	s.Add(func(map[string]*Wrapper, []string) { calls = append(calls, "first") })
	unsub := s.Add(func(map[string]*Wrapper, []string) { calls = append(calls, "second") })
	s.Add(func(map[string]*Wrapper, []string) { calls = append(calls, "third") })

	s.Notify(map[string]*Wrapper{"a": wrapper("a", "A")}, nil)
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	unsub()
	unsub()
	calls = nil
	s.Notify(nil, []string{"a"})
	assert.Equal(t, []string{"first", "third"}, calls)
	assert.Equal(t, 2, s.Len())

	calls = nil
	s.Notify(nil, nil)
	assert.Empty(t, calls, "empty batches are not delivered")
}

func TestGuardDefersNestedRuns(t *testing.T) {
	var g Guard
	var batches [][]string

	var pass func(ids []string)
	pass = func(ids []string) {
		batches = append(batches, ids)
		if len(batches) == 1 {
			assert.True(t, g.Running())
			assert.Equal(t, 0, g.Run([]string{"x", "y"}, pass))
			assert.Equal(t, 0, g.Run([]string{"x"}, pass))
		}
	}

	passes := g.Run([]string{"a", "b", "a"}, pass)

	assert.Equal(t, 2, passes)
	assert.Equal(t, [][]string{{"a", "b"}, {"x", "y"}}, batches)
	assert.False(t, g.Running())
}

func TestDiff(t *testing.T) {
	current := map[string]*Wrapper{
		"same":    wrapper("same", "S"),
		"changed": wrapper("changed", "old"),
		"gone":    wrapper("gone", "G"),
	}
	next := map[string]*Wrapper{
		"same":    wrapper("same", "S"),
		"changed": wrapper("changed", "new"),
		"added":   wrapper("added", "A"),
	}

	updated, removed := Diff(current, next, []string{"same", "changed", "gone", "added", "never"})

	assert.Len(t, updated, 2)
	assert.Contains(t, updated, "changed")
	assert.Contains(t, updated, "added")
	assert.Equal(t, []string{"gone"}, removed)
	assert.Len(t, current, 3)
	assert.NotContains(t, current, "gone")
}

func TestResolveDegradesToUnresolved(t *testing.T) {
	table := resolver.Table{
		"g":     &entity.Generalization{ID: "g"},
		"wrong": &entity.Class{ID: "other"},
	}

	for _, id := range []string{"g", "wrong", "missing"} {
		t.Run(id, func(t *testing.T) {
			agg := Resolve(id, table, slog.Default())
			u, ok := agg.(*entity.Unresolved)
			require.True(t, ok)
			assert.Equal(t, id, u.ID)
			assert.NotEmpty(t, u.Reason)
		})
	}

	u := Resolve("g", table, slog.Default()).(*entity.Unresolved)
	assert.Equal(t, entity.KindGeneralization, u.Kind)
}

func TestWrapperClone(t *testing.T) {
	w := wrapper("a", "A")
	w.Sources = []Descriptor{{ModelID: "m"}}

	c := w.Clone()
	c.Sources[0].ModelID = "changed"
	c.Entity.(*entity.AggregatedClass).Name["en"] = "changed"

	assert.Equal(t, "m", w.Sources[0].ModelID)
	assert.Equal(t, "A", w.Entity.Head().Name["en"])
	assert.Nil(t, (*Wrapper)(nil).Clone())
}
