package scripting

import (
	"testing"

	"github.com/poh/server/internal/data"
	"github.com/poh/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEngine(t *testing.T) (*Engine, *world.Bucket) {
	t.Helper()
	reg, err := data.NewRegistry([]*data.Type{
		{Key: "terrain:grass", Name: "Grassland"},
	}, nil)
	require.NoError(t, err)
	schemas, err := world.DefaultSchemas()
	require.NoError(t, err)
	bucket := world.NewBucket(reg, schemas)
	require.NoError(t, bucket.SetRaw([]world.Raw{
		{"key": "player:1", "name": "Alice"},
		{"key": "player:2", "name": "Bob"},
	}))

	e, err := NewEngine("", bucket, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, bucket
}

func TestRunIncidentProducesMutations(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.LoadString(`
		function plague(payload)
			local p = poh.object(payload.player)
			return {
				{ type = "update", payload = { key = p.key, name = p.name .. " the Afflicted" } },
			}
		end
	`))

	assert.True(t, e.Has("plague"))
	assert.False(t, e.Has("famine"))

	ms, err := e.RunIncident("plague", map[string]any{"player": "player:1"})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, world.MutUpdate, ms[0].Type)
	assert.Equal(t, "player:1", ms[0].Payload["key"])
	assert.Equal(t, "Alice the Afflicted", ms[0].Payload["name"])
}

func TestScriptReadsWorldState(t *testing.T) {
	e, bucket := testEngine(t)
	bucket.SetWorld(world.WorldState{Turn: 9, Year: -500})
	require.NoError(t, e.LoadString(`
		function echoTurn(payload)
			local w = poh.world()
			return {
				{ type = "update", payload = { key = "player:1", name = "turn " .. w.turn } },
			}
		end
	`))

	ms, err := e.RunIncident("echoTurn", nil)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "turn 9", ms[0].Payload["name"])
}

func TestScriptEnumeratesClass(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.LoadString(`
		function census(payload)
			return {
				{ type = "update", payload = { key = "player:1", count = #poh.classObjects("player") } },
			}
		end
	`))

	ms, err := e.RunIncident("census", nil)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 2.0, ms[0].Payload["count"])
}

func TestRunUnknownIncident(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.RunIncident("meteor", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no incident script "meteor"`)
}

func TestRunIncidentBadReturn(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.LoadString(`
		function broken(payload)
			return 42
		end
	`))
	_, err := e.RunIncident("broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutation list")
}

func TestRunIncidentNilReturn(t *testing.T) {
	e, _ := testEngine(t)
	require.NoError(t, e.LoadString(`
		function quiet(payload)
		end
	`))
	ms, err := e.RunIncident("quiet", nil)
	require.NoError(t, err)
	assert.Empty(t, ms)
}
