package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryFixture(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		[]*Type{
			{Key: "tech:pottery", Name: "Pottery", Category: "era:ancient"},
			{Key: "tech:currency", Name: "Currency", Category: "era:classic"},
			{Key: "tech:banking", Name: "Banking", Category: "era:classic"},
			{Key: "era:ancient", Name: "Ancient Era"},
			{Key: "era:classic", Name: "Classic Era", RelatesTo: []string{"era:ancient"}},
			{Key: "building:granary", Name: "Granary", Category: "buildingGroup:food"},
		},
		[]*Category{
			{Key: "buildingGroup:food", Name: "Food Buildings"},
		},
	)
	require.NoError(t, err)
	return reg
}

func TestRegistryTypeLookup(t *testing.T) {
	reg := registryFixture(t)

	typ, err := reg.Type("tech:pottery")
	require.NoError(t, err)
	assert.Equal(t, "Pottery", typ.Name)
	assert.Equal(t, "tech", typ.Class, "class is derived from the key")

	_, err = reg.Type("tech:alchemy")
	assert.EqualError(t, err, `unknown type "tech:alchemy"`)
}

func TestRegistryCategoryLookup(t *testing.T) {
	reg := registryFixture(t)

	cat, err := reg.Category("buildingGroup:food")
	require.NoError(t, err)
	assert.Equal(t, "Food Buildings", cat.Name)

	_, err = reg.Category("buildingGroup:war")
	assert.Error(t, err)
}

func TestEraDoublesAsCategory(t *testing.T) {
	reg := registryFixture(t)

	// "era:classic" lives in the Type index, yet resolves as a category.
	cat, err := reg.Category("era:classic")
	require.NoError(t, err)
	assert.Equal(t, "Classic Era", cat.Name)
	assert.Equal(t, "era", cat.Class)
	assert.Equal(t, []string{"era:ancient"}, cat.RelatesTo)

	// The synthesized view is cached: both lookups return the same value.
	again, err := reg.Category("era:classic")
	require.NoError(t, err)
	assert.Same(t, cat, again)

	// The fallback applies only to era keys.
	_, err = reg.Category("tech:pottery")
	assert.Error(t, err)

	// Types grouped under an era category resolve through the type index.
	classic, err := reg.CategoryTypes("era:classic")
	require.NoError(t, err)
	assert.Len(t, classic, 2)
}

func TestClassIndexesAreSorted(t *testing.T) {
	reg := registryFixture(t)

	techs, err := reg.ClassTypes("tech")
	require.NoError(t, err)
	require.Len(t, techs, 3)
	for i := 1; i < len(techs); i++ {
		assert.Less(t, techs[i-1].Key, techs[i].Key)
	}

	_, err = reg.ClassTypes("wonder")
	assert.EqualError(t, err, `unknown type class "wonder"`)
}

func TestNewRegistryRejectsBadInput(t *testing.T) {
	_, err := NewRegistry([]*Type{
		{Key: "tech:pottery"},
		{Key: "tech:pottery"},
	}, nil)
	assert.ErrorContains(t, err, "duplicate type key")

	_, err = NewRegistry([]*Type{{Key: "pottery"}}, nil)
	assert.ErrorContains(t, err, "malformed key")

	_, err = NewRegistry(nil, []*Category{
		{Key: "group:a"}, {Key: "group:a"},
	})
	assert.ErrorContains(t, err, "duplicate category key")
}

func TestCounts(t *testing.T) {
	reg := registryFixture(t)
	assert.Equal(t, 6, reg.TypeCount())
	assert.Equal(t, 1, reg.CategoryCount())
}
