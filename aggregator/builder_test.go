package aggregator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/model"
)

func testRegistry() *model.Registry {
	return model.NewRegistry(
		model.NewMemory("core", model.ReadOnly(), model.WithEntities(
			class("person", "Person"),
			class("org", "Organization"),
		)),
		model.NewMemory("extra", model.ReadOnly(), model.WithEntities(class("place", "Place"))),
		model.NewMemory("core-snapshot", model.ReadOnly(), model.WithEntities(
			class("person", "Person (cached)"),
			class("legacy", "Legacy"),
		)),
		model.NewMemory("my-profile", model.WithEntities(
			&entity.ClassProfile{ID: "employee", Profiling: []string{"person"}, NameFromProfiled: "person"},
		)),
	)
}

func TestBuilderNestedTree(t *testing.T) {
	cfg, err := ParseConfiguration([]byte(nestedYAML))
	require.NoError(t, err)

	v, err := NewBuilder(testRegistry(), nil).BuildView(cfg)
	require.NoError(t, err)
	defer v.Close()

	ap, ok := v.Root().(*composition.ApplicationProfile)
	require.True(t, ok)
	assert.IsType(t, &composition.Cache{}, ap.Model())

	assert.Equal(t, 5, v.Len())
	person, _ := v.Entity("person")
	assert.Equal(t, "Person", person.Entity.Head().Name["en"], "live model preferred over cache")
	legacy, _ := v.Entity("legacy")
	assert.Equal(t, "Legacy", legacy.Entity.Head().Name["en"])
	employee, _ := v.Entity("employee")
	assert.Equal(t, "Person", employee.Entity.Head().Name["en"])

	res := v.ExecOperation(entity.CreateEntity{Entity: &entity.ClassProfile{ID: "contractor", Profiling: []string{"org"}}})
	assert.True(t, res.Success)
	_, ok = v.Entity("contractor")
	assert.True(t, ok)
}

func TestBuilderEmptyMerge(t *testing.T) {
	cfg, err := ParseConfiguration([]byte("modelType: merge\nmodels: null"))
	require.NoError(t, err)

	v, err := NewBuilder(testRegistry(), nil).BuildView(cfg)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, 0, v.Len())
	require.NoError(t, v.AddModel(model.NewMemory("late", model.WithEntities(class("x", "X")))))
	assert.Equal(t, 1, v.Len())

	nilView, err := NewBuilder(nil, nil).BuildView(nil)
	require.NoError(t, err)
	defer nilView.Close()
	assert.IsType(t, &composition.Merge{}, nilView.Root())
}

func TestBuilderFailsFast(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
		path string
	}{
		{"unknown model", ModelRef("missing"), "root"},
		{"unknown nested model", &MergeConfig{Models: []Configuration{ModelRef("core"), ModelRef("nope")}}, "root.models[1]"},
		{"missing profiles", &ApplicationProfileConfig{Model: ModelRef("core")}, "root.profiles"},
		{"missing caches", &CacheConfig{Model: ModelRef("core")}, "root.caches"},
		{"nil merge", (*MergeConfig)(nil), "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(testRegistry(), nil).Build(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.path+":")
		})
	}

	_, err := NewBuilder(testRegistry(), nil).Build(ModelRef("missing"))
	assert.ErrorIs(t, err, model.ErrUnknownModel)
}

func TestBuilderRepeatedModelReference(t *testing.T) {
	registry := testRegistry()
	cfg := &MergeConfig{Models: []Configuration{ModelRef("my-profile"), ModelRef("my-profile")}}

	v, err := NewBuilder(registry, nil).BuildView(cfg)
	require.NoError(t, err)
	defer v.Close()

	employee, ok := v.Entity("employee")
	require.True(t, ok)
	assert.Len(t, employee.Sources, 2)

	m, err := registry.Lookup("my-profile")
	require.NoError(t, err)
	m.(*model.Memory).Execute(entity.DeleteEntity{ID: "employee"})

	_, ok = v.Entity("employee")
	assert.False(t, ok)
}
