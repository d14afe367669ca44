package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequiresMandatoryAttributes(t *testing.T) {
	b := testBucket(t)
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "player:1", "name": "Alice"},
		{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:grass"},
	}))

	err := b.SetRaw([]Raw{
		{"key": "city:rome", "name": "Rome", "tile": "tile:0-0"}, // no player
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required attribute "player"`)
	assert.False(t, b.Has("city:rome"))
}

func TestPatchRepointsRelation(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "city:ostia", "name": "Ostia", "player": "player:1", "tile": "tile:1-0"},
	}))

	// Move the citizen: the old city must lose the membership, the new one
	// must gain it.
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "citizen:a", "city": "city:ostia"},
	}))

	rome, err := b.Object("city:rome")
	require.NoError(t, err)
	old, err := rome.(*City).Citizens(b)
	require.NoError(t, err)
	assert.Empty(t, old)

	ostia, err := b.Object("city:ostia")
	require.NoError(t, err)
	now, err := ostia.(*City).Citizens(b)
	require.NoError(t, err)
	assert.Len(t, now, 1)

	assert.NoError(t, b.Verify())
}

func TestPatchNullClearsOptionalField(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)

	require.NoError(t, b.SetRaw([]Raw{
		{"key": "city:rome", "storage": nil},
	}))
	obj, err := b.Object("city:rome")
	require.NoError(t, err)
	_, ok := obj.(*City).Attr("storage")
	assert.False(t, ok)
}

func TestPatchNullRejectedForRequiredField(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)

	err := b.SetRaw([]Raw{
		{"key": "citizen:a", "city": nil},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required attribute "city" set to null`)
}

func TestLinkFailsOnUnknownTarget(t *testing.T) {
	b := testBucket(t)
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:grass"},
	}))

	err := b.SetRaw([]Raw{
		{"key": "city:rome", "name": "Rome", "player": "player:404", "tile": "tile:0-0"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player:404")
}

func TestTypeRefResolvesAgainstRegistry(t *testing.T) {
	b := testBucket(t)

	err := b.SetRaw([]Raw{
		{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:lava"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terrain:lava")

	require.NoError(t, b.SetRaw([]Raw{
		{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:grass"},
	}))
	obj, err := b.Object("tile:0-0")
	require.NoError(t, err)
	assert.Equal(t, "Grassland", obj.(*Tile).TypeRef("terrain").Name)
}

func TestTypeRefListRoundTrips(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "research:1", "player": "player:1",
			"researched": []any{"tech:pottery", "tech:archery"}},
	}))

	obj, err := b.Object("research:1")
	require.NoError(t, err)
	done := obj.(*Research).TypeList("researched")
	require.Len(t, done, 2)
	assert.Equal(t, "tech:pottery", done[0].Key)

	raw := obj.(*Research).Raw()
	assert.Equal(t, []string{"tech:pottery", "tech:archery"}, raw["researched"])
}

func TestStorageFieldIngestion(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)

	obj, err := b.Object("city:rome")
	require.NoError(t, err)
	city := obj.(*City)
	assert.Equal(t, 4.0, city.Storage()["food"])

	err = b.SetRaw([]Raw{
		{"key": "city:rome", "storage": map[string]any{"food": "lots"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-number")
}

func TestManyRelationReplaceUnlinksDeparted(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "river:tiber", "name": "Tiber", "tiles": []any{"tile:0-0", "tile:1-0"}},
	}))

	// Shrink the river to one tile; the departed tile's back-pointer must go.
	require.NoError(t, b.SetRaw([]Raw{
		{"key": "river:tiber", "tiles": []any{"tile:0-0"}},
	}))

	t1, err := b.Object("tile:1-0")
	require.NoError(t, err)
	_, ok := t1.(*Tile).Ref("river")
	assert.False(t, ok)

	t0, err := b.Object("tile:0-0")
	require.NoError(t, err)
	r, ok := t0.(*Tile).Ref("river")
	require.True(t, ok)
	assert.Equal(t, Key("river:tiber"), r)

	assert.NoError(t, b.Verify())
}

func TestRawExportIsDeterministic(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)

	obj, err := b.Object("player:1")
	require.NoError(t, err)
	raw := obj.(*Player).Raw()

	assert.Equal(t, "player:1", raw["key"])
	assert.Equal(t, "Alice", raw["name"])
	assert.Equal(t, []string{"city:rome"}, raw["cities"])

	// Mutating the export must not leak back into the live object.
	raw["name"] = "Mallory"
	assert.Equal(t, "Alice", obj.(*Player).Name())
}
