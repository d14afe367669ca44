package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	b.SetWorld(WorldState{
		ID:               "match-1",
		Size:             Size{X: 2, Y: 1},
		Turn:             12,
		Year:             -3520,
		CurrentPlayerKey: "player:1",
	})
	b.SetRNG(NewRNG(42))
	b.RNG().IntN(100) // advance the stream past its seed position

	sd, err := b.SaveData("quicksave", "0.1.0")
	require.NoError(t, err)
	assert.Equal(t, "quicksave", sd.Name)
	assert.NotZero(t, sd.Time)
	assert.Len(t, sd.Objects, b.Count())

	restored := testBucket(t)
	require.NoError(t, restored.Restore(sd))

	assert.Equal(t, b.World(), restored.World())
	assert.Equal(t, b.Count(), restored.Count())
	assert.NoError(t, restored.Verify())

	obj, err := restored.Object("city:rome")
	require.NoError(t, err)
	city := obj.(*City)
	assert.Equal(t, "Rome", city.Name())
	assert.Equal(t, 4.0, city.Storage()["food"])
	owner, err := city.Player(restored)
	require.NoError(t, err)
	assert.Equal(t, Key("player:1"), owner.Key())

	// The restored RNG continues the exact stream of the saved one.
	for i := 0; i < 8; i++ {
		assert.Equal(t, b.RNG().IntN(1000), restored.RNG().IntN(1000))
	}

	sd2, err := restored.SaveData("quicksave", "0.1.0")
	require.NoError(t, err)
	sd.Time, sd2.Time = 0, 0
	sd.RNGState, sd2.RNGState = nil, nil // both advanced past the snapshot above
	assert.Equal(t, sd, sd2)
}

func TestReadsLeaveSnapshotStable(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	sd, err := b.SaveData("quicksave", "0.1.0")
	require.NoError(t, err)

	restored := testBucket(t)
	require.NoError(t, restored.Restore(sd))

	// Verify and the relation accessors walk every many-relation, including
	// ones no object holds a member for. None of that may leak into the next
	// snapshot as materialized empty lists.
	require.NoError(t, restored.Verify())
	obj, err := restored.Object("player:1")
	require.NoError(t, err)
	player := obj.(*Player)
	units, err := player.Units(restored)
	require.NoError(t, err)
	assert.Empty(t, units)
	_, hasUnits := player.Raw()["units"]
	assert.False(t, hasUnits, "an empty relation set serializes as absent")

	sd2, err := restored.SaveData("quicksave", "0.1.0")
	require.NoError(t, err)
	sd.Time, sd2.Time = 0, 0
	assert.Equal(t, sd, sd2)
}

func TestRestoreReplacesExistingGraph(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	sd, err := b.SaveData("checkpoint", "0.1.0")
	require.NoError(t, err)

	other := testBucket(t)
	require.NoError(t, other.SetRaw([]Raw{
		{"key": "player:9", "name": "Zed"},
	}))
	require.NoError(t, other.Restore(sd))

	assert.False(t, other.Has("player:9"), "pre-restore objects must be gone")
	assert.True(t, other.Has("player:1"))
}

func TestRestoreRejectedInsideTransaction(t *testing.T) {
	b := testBucket(t)
	seedGraph(t, b)
	sd, err := b.SaveData("checkpoint", "0.1.0")
	require.NoError(t, err)

	j, err := b.Begin()
	require.NoError(t, err)
	defer b.Commit(j)

	err = b.Restore(sd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction")
}

func TestRestoreSkipsLifecycleHooks(t *testing.T) {
	b := testBucket(t)
	// A hand-built snapshot whose city carries no storage map. OnCreate would
	// install one; restore must not, it replays exactly what was saved.
	sd := &SaveData{
		Name:    "handmade",
		Version: "0.1.0",
		Objects: []Raw{
			{"key": "player:1", "name": "Alice"},
			{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:grass"},
			{"key": "city:rome", "name": "Rome", "player": "player:1", "tile": "tile:0-0"},
		},
	}
	require.NoError(t, b.Restore(sd))

	obj, err := b.Object("city:rome")
	require.NoError(t, err)
	_, ok := obj.(*City).Attr("storage")
	assert.False(t, ok)
}
