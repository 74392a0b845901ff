package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/entity"
)

type recorder struct {
	batches []batch
}

type batch struct {
	updated map[string]entity.Raw
	removed []string
}

func (r *recorder) fn(updated map[string]entity.Raw, removed []string) {
	r.batches = append(r.batches, batch{updated: updated, removed: removed})
}

func class(id, name string) *entity.Class {
	return &entity.Class{ID: id, IRI: id, Name: entity.LangString{"en": name}}
}

func TestMemoryApplyNotifiesOnce(t *testing.T) {
	m := NewMemory("core", WithEntities(class("old", "Old")))
	rec := &recorder{}
	m.Subscribe(rec.fn)

	results := m.Apply(
		entity.CreateEntity{Entity: class("a", "A")},
		entity.CreateEntity{Entity: class("b", "B")},
		entity.ModifyEntity{Entity: class("a", "A2")},
		entity.DeleteEntity{ID: "old"},
		entity.DeleteEntity{ID: "missing"},
	)

	require.Len(t, results, 5)
	assert.True(t, results[0].Success)
	assert.Equal(t, "a", results[0].Created)
	assert.True(t, results[2].Success)
	assert.False(t, results[4].Success)
	assert.Equal(t, entity.ReasonUnknownEntity, results[4].Reason)

	require.Len(t, rec.batches, 1)
	got := rec.batches[0]
	assert.Len(t, got.updated, 2)
	assert.Equal(t, entity.LangString{"en": "A2"}, got.updated["a"].(*entity.Class).Name)
	assert.Equal(t, []string{"old"}, got.removed)
}

func TestMemoryCreateThenDeleteInOneBatch(t *testing.T) {
	m := NewMemory("core")
	rec := &recorder{}
	m.Subscribe(rec.fn)

	m.Apply(entity.CreateEntity{Entity: class("a", "A")}, entity.DeleteEntity{ID: "a"})

	require.Len(t, rec.batches, 1)
	assert.Empty(t, rec.batches[0].updated)
	assert.Equal(t, []string{"a"}, rec.batches[0].removed)
}

func TestMemoryRejections(t *testing.T) {
	m := NewMemory("core", WithEntities(class("a", "A")))

	tests := []struct {
		name   string
		op     entity.Operation
		reason entity.RejectReason
	}{
		{"duplicate create", entity.CreateEntity{Entity: class("a", "A")}, entity.ReasonDuplicateEntity},
		{"nil create", entity.CreateEntity{}, entity.ReasonInvalidOperation},
		{"modify unknown", entity.ModifyEntity{Entity: class("x", "X")}, entity.ReasonUnknownEntity},
		{"modify without id", entity.ModifyEntity{Entity: class("", "X")}, entity.ReasonInvalidOperation},
		{"delete unknown", entity.DeleteEntity{ID: "x"}, entity.ReasonUnknownEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Execute(tt.op)
			assert.False(t, res.Success)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestMemoryGeneratesID(t *testing.T) {
	m := NewMemory("core")

	res := m.Execute(entity.CreateEntity{Entity: &entity.Class{Name: entity.LangString{"en": "Anon"}}})

	require.True(t, res.Success)
	assert.Len(t, res.Created, 36)
	assert.Contains(t, m.Entities(), res.Created)
}

func TestMemoryReadOnly(t *testing.T) {
	m := NewMemory("core", ReadOnly())
	rec := &recorder{}
	m.Subscribe(rec.fn)

	res := m.Execute(entity.CreateEntity{Entity: class("a", "A")})

	assert.False(t, res.Success)
	assert.Equal(t, entity.ReasonNotWritable, res.Reason)
	assert.Empty(t, rec.batches)
	assert.True(t, m.IsReadOnly())
}

func TestMemoryReplace(t *testing.T) {
	m := NewMemory("core", ReadOnly(), WithEntities(class("a", "A"), class("b", "B")))
	rec := &recorder{}
	m.Subscribe(rec.fn)

	m.Replace(map[string]entity.Raw{
		"a": class("a", "A"),
		"c": class("c", "C"),
	})

	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0].updated, 1)
	assert.Contains(t, rec.batches[0].updated, "c")
	assert.Equal(t, []string{"b"}, rec.batches[0].removed)

	m.Replace(map[string]entity.Raw{"a": class("a", "A"), "c": class("c", "C")})
	assert.Len(t, rec.batches, 1, "identical content must not notify")
}

func TestMemoryEntitiesAreCopies(t *testing.T) {
	m := NewMemory("core", WithEntities(class("a", "A")))

	got := m.Entities()
	got["a"].(*entity.Class).Name["en"] = "changed"

	assert.Equal(t, "A", m.Entities()["a"].(*entity.Class).Name["en"])
}

func TestMemoryUnsubscribe(t *testing.T) {
	m := NewMemory("core")
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.fn)
	unsubscribe()
	unsubscribe()

	m.Execute(entity.CreateEntity{Entity: class("a", "A")})

	assert.Empty(t, rec.batches)
}
