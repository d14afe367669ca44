package sim

import (
	"testing"

	"github.com/poh/server/internal/data"
	"github.com/poh/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	reg, err := data.NewRegistry([]*data.Type{
		{Key: "terrain:grass", Name: "Grassland"},
		{Key: "terrain:hills", Name: "Hills"},
		{Key: "tech:pottery", Name: "Pottery", Costs: map[string]float64{"science": 20}},
		{Key: "tech:archery", Name: "Archery", Costs: map[string]float64{"science": 30}},
		{Key: "governmentForm:despotism", Name: "Despotism"},
		{Key: "governmentForm:republic", Name: "Republic"},
		{Key: "policy:serfdom", Name: "Serfdom"},
		{Key: "building:granary", Name: "Granary", Costs: map[string]float64{"production": 30}},
		{Key: "unitType:settler", Name: "Settler"},
	}, nil)
	require.NoError(t, err)
	schemas, err := world.DefaultSchemas()
	require.NoError(t, err)
	bucket := world.NewBucket(reg, schemas)
	log := zap.NewNop()
	return &Deps{
		Bucket: bucket,
		Store:  world.NewStore(bucket, log),
		Log:    log,
	}
}

// seedMatch ingests a one-player match mid-game: a city with a settler unit
// nearby, research and government attached.
func seedMatch(t *testing.T, d *Deps) {
	t.Helper()
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "player:1", "name": "Alice"},
		{"key": "tile:0-0", "x": 0, "y": 0, "terrain": "terrain:grass"},
		{"key": "tile:1-0", "x": 1, "y": 0, "terrain": "terrain:hills"},
		{"key": "city:rome", "name": "Rome", "player": "player:1", "tile": "tile:0-0",
			"population": 1,
			"storage":    map[string]any{"food": 20.0},
			"yields":     map[string]any{"science": 3.0, "production": 2.0}},
		{"key": "citizen:a", "city": "city:rome"},
		{"key": "unitDesign:settler", "name": "Settler", "baseType": "unitType:settler",
			"player": "player:1"},
		{"key": "unit:1", "player": "player:1", "tile": "tile:1-0",
			"design": "unitDesign:settler", "moves": 2},
		{"key": "research:1", "player": "player:1", "current": "tech:pottery",
			"progress": 15.0},
		{"key": "government:1", "player": "player:1", "form": "governmentForm:despotism"},
	}))
}

func testSim(t *testing.T) (*Simulation, *Deps) {
	t.Helper()
	d := testDeps(t)
	seedMatch(t, d)
	reg := NewRegistry()
	RegisterAll(reg)
	return New(d, reg), d
}

func TestSubmitRejectsStaleTurn(t *testing.T) {
	s, d := testSim(t)
	before, err := d.Bucket.SaveData("state", "test")
	require.NoError(t, err)

	err = s.Submit(Action{Type: "endTurn", Turn: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTurnConflict)

	after, err := d.Bucket.SaveData("state", "test")
	require.NoError(t, err)
	before.Time, after.Time = 0, 0
	assert.Equal(t, before, after, "a rejected action must change nothing")
}

func TestSubmitUnknownActionType(t *testing.T) {
	s, _ := testSim(t)
	err := s.Submit(Action{Type: "summonDragon", Turn: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action type "summonDragon"`)
}

func TestSubmitRejectsWrongClassKeys(t *testing.T) {
	s, d := testSim(t)
	before, err := d.Bucket.SaveData("state", "test")
	require.NoError(t, err)

	cases := []struct {
		action  string
		payload map[string]any
		want    string
	}{
		{"moveUnit", map[string]any{"unit": "tile:0-0", "tile": "tile:1-0"}, "want a unit key"},
		{"moveUnit", map[string]any{"unit": "unit:1", "tile": "city:rome"}, "want a tile key"},
		{"foundCity", map[string]any{"unit": "citizen:a", "name": "Ostia"}, "want a unit key"},
		{"disbandUnit", map[string]any{"unit": "player:1"}, "want a unit key"},
		{"setResearch", map[string]any{"player": "city:rome", "tech": "tech:archery"}, "want a player key"},
		{"adoptPolicy", map[string]any{"player": "unit:1", "policy": "policy:serfdom"}, "want a player key"},
		{"spreadReligion", map[string]any{"citizen": "player:1", "religion": "player:1"}, "want a citizen key"},
	}
	for _, c := range cases {
		err := s.Submit(Action{Type: c.action, Turn: 0, Payload: c.payload})
		require.Error(t, err, c.action)
		assert.Contains(t, err.Error(), c.want, c.action)
	}

	after, err := d.Bucket.SaveData("state", "test")
	require.NoError(t, err)
	before.Time, after.Time = 0, 0
	assert.Equal(t, before, after, "rejected actions must change nothing")
}

func TestEndTurnAdvancesWorld(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "endTurn", Turn: 0}))

	w := d.Bucket.World()
	assert.Equal(t, 1, w.Turn)
	assert.Equal(t, YearForTurn(1), w.Year)

	// 20 food against a threshold of 15: the city grows.
	obj, err := d.Bucket.Object("city:rome")
	require.NoError(t, err)
	city := obj.(*world.City)
	assert.Equal(t, 2, city.Population())
	assert.Equal(t, 5.0, city.Storage()["food"])
	citizens, err := city.Citizens(d.Bucket)
	require.NoError(t, err)
	assert.Len(t, citizens, 2)

	// 15 progress + 3 science is short of pottery's 20: progress accumulates.
	res, err := d.Bucket.Object("research:1")
	require.NoError(t, err)
	assert.Equal(t, 18.0, res.(*world.Research).Progress())

	assert.NoError(t, d.Bucket.Verify())
}

func TestEndTurnCompletesResearch(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "research:1", "progress": 19.0},
	}))

	require.NoError(t, s.Submit(Action{Type: "endTurn", Turn: 0}))

	obj, err := d.Bucket.Object("research:1")
	require.NoError(t, err)
	res := obj.(*world.Research)
	require.Len(t, res.TypeList("researched"), 1)
	assert.Equal(t, "tech:pottery", res.TypeList("researched")[0].Key)
	assert.Nil(t, res.TypeRef("current"))
	assert.Zero(t, res.Progress())
}

func TestFoundCityConsumesSettler(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "foundCity", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
		"name": "  Ostia ",
	}}))

	assert.False(t, d.Bucket.Has("unit:1"))

	var ostia *world.City
	for _, o := range d.Bucket.ClassObjects("city") {
		if c := o.(*world.City); c.Name() == "Ostia" {
			ostia = c
		}
	}
	require.NotNil(t, ostia, "city name must be trimmed and normalized")
	assert.Equal(t, 1, ostia.Population())

	tileObj, err := d.Bucket.Object("tile:1-0")
	require.NoError(t, err)
	city, ok, err := tileObj.(*world.Tile).City(d.Bucket)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ostia.Key(), city.Key())

	citizens, err := ostia.Citizens(d.Bucket)
	require.NoError(t, err)
	assert.Len(t, citizens, 1)
	assert.NoError(t, d.Bucket.Verify())
}

func TestFoundCityRejectsOccupiedTile(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "unit:1", "tile": "tile:0-0"},
	}))

	err := s.Submit(Action{Type: "foundCity", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
		"name": "Ostia",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
	assert.Contains(t, err.Error(), "already holds a city")
}

func TestFoundCityRejectsBlankName(t *testing.T) {
	s, _ := testSim(t)
	err := s.Submit(Action{Type: "foundCity", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
		"name": "   ",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
}

func TestMoveUnitSpendsMovement(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "moveUnit", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
		"tile": "tile:0-0",
	}}))

	obj, err := d.Bucket.Object("unit:1")
	require.NoError(t, err)
	unit := obj.(*world.Unit)
	assert.Equal(t, 1, unit.Moves())
	tile, err := unit.Tile(d.Bucket)
	require.NoError(t, err)
	assert.Equal(t, world.Key("tile:0-0"), tile.Key())
	assert.NoError(t, d.Bucket.Verify())
}

func TestMoveUnitWithoutMovement(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "unit:1", "moves": 0},
	}))

	err := s.Submit(Action{Type: "moveUnit", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
		"tile": "tile:0-0",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
}

func TestDisbandUnit(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, s.Submit(Action{Type: "disbandUnit", Turn: 0, Payload: map[string]any{
		"unit": "unit:1",
	}}))
	assert.False(t, d.Bucket.Has("unit:1"))
	assert.NoError(t, d.Bucket.Verify())
}

func TestSetResearch(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "setResearch", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"tech":   "tech:archery",
	}}))
	obj, err := d.Bucket.Object("research:1")
	require.NoError(t, err)
	assert.Equal(t, "tech:archery", obj.(*world.Research).TypeRef("current").Key)
}

func TestSetResearchRejectsResearched(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "research:1", "researched": []any{"tech:archery"}},
	}))

	err := s.Submit(Action{Type: "setResearch", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"tech":   "tech:archery",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
	// The rejected action must not have touched "current".
	obj, err := d.Bucket.Object("research:1")
	require.NoError(t, err)
	assert.Equal(t, "tech:pottery", obj.(*world.Research).TypeRef("current").Key)
}

func TestGovernmentElectionCooldown(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "changeGovernment", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"form":   "governmentForm:republic",
	}}))

	obj, err := d.Bucket.Object("government:1")
	require.NoError(t, err)
	gov := obj.(*world.Government)
	assert.Equal(t, "governmentForm:republic", gov.TypeRef("form").Key)
	assert.Equal(t, electionCooldown, gov.ElectionsPendingUntil())

	// Elections are pending: no policy changes, no further form changes.
	err = s.Submit(Action{Type: "adoptPolicy", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"policy": "policy:serfdom",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
	assert.Contains(t, err.Error(), "elections are pending")

	err = s.Submit(Action{Type: "changeGovernment", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"form":   "governmentForm:despotism",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
}

func TestAdoptAndRevokePolicy(t *testing.T) {
	s, d := testSim(t)

	require.NoError(t, s.Submit(Action{Type: "adoptPolicy", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"policy": "policy:serfdom",
	}}))
	obj, err := d.Bucket.Object("government:1")
	require.NoError(t, err)
	gov := obj.(*world.Government)
	require.Len(t, gov.TypeList("policies"), 1)

	err = s.Submit(Action{Type: "adoptPolicy", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"policy": "policy:serfdom",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err), "double adoption is a rule violation")

	require.NoError(t, s.Submit(Action{Type: "revokePolicy", Turn: 0, Payload: map[string]any{
		"player": "player:1",
		"policy": "policy:serfdom",
	}}))
	assert.Empty(t, gov.TypeList("policies"))
}

func TestSpreadReligion(t *testing.T) {
	s, d := testSim(t)
	require.NoError(t, d.Bucket.SetRaw([]world.Raw{
		{"key": "religion:sol", "name": "Sol Invictus"},
	}))

	require.NoError(t, s.Submit(Action{Type: "spreadReligion", Turn: 0, Payload: map[string]any{
		"citizen":  "citizen:a",
		"religion": "religion:sol",
	}}))

	obj, err := d.Bucket.Object("citizen:a")
	require.NoError(t, err)
	rel, ok, err := obj.(*world.Citizen).Religion(d.Bucket)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, world.Key("religion:sol"), rel.Key())

	err = s.Submit(Action{Type: "spreadReligion", Turn: 0, Payload: map[string]any{
		"citizen":  "citizen:a",
		"religion": "religion:sol",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
}

func TestTriggerIncidentWithoutScripts(t *testing.T) {
	s, _ := testSim(t)
	err := s.Submit(Action{Type: "triggerIncident", Turn: 0, Payload: map[string]any{
		"script": "plague",
	}})
	require.Error(t, err)
	assert.True(t, IsRule(err))
}

func TestBootstrapGeneratesWorld(t *testing.T) {
	d := testDeps(t)
	d.Bucket.SetRNG(world.NewRNG(7))

	require.NoError(t, Bootstrap(d, BootstrapConfig{
		Width: 4, Height: 3,
		Players: []string{"Alice", "Botto"},
	}))

	assert.Len(t, d.Bucket.ClassObjects("tile"), 12)
	players := d.Bucket.ClassObjects("player")
	assert.Len(t, players, 2)
	assert.Len(t, d.Bucket.ClassObjects("research"), 2)
	assert.Len(t, d.Bucket.ClassObjects("government"), 2)
	assert.Len(t, d.Bucket.ClassObjects("culture"), 2)

	w := d.Bucket.World()
	assert.Zero(t, w.Turn)
	assert.Equal(t, world.Size{X: 4, Y: 3}, w.Size)
	assert.True(t, d.Bucket.Has(w.CurrentPlayerKey))

	for _, o := range players {
		p := o.(*world.Player)
		res, err := p.Research(d.Bucket)
		require.NoError(t, err)
		back, err := res.Player(d.Bucket)
		require.NoError(t, err)
		assert.Equal(t, p.Key(), back.Key())
	}
	assert.NoError(t, d.Bucket.Verify())
}

func TestBootstrapValidatesConfig(t *testing.T) {
	d := testDeps(t)
	assert.Error(t, Bootstrap(d, BootstrapConfig{Width: 0, Height: 3, Players: []string{"A"}}))
	assert.Error(t, Bootstrap(d, BootstrapConfig{Width: 3, Height: 3}))
}

func TestYearForTurn(t *testing.T) {
	cases := map[int]int{
		0:   -4000,
		1:   -3960,
		50:  -2000,
		51:  -1980,
		100: -1000,
		150: -500,
		200: -250,
		300: -50,
		310: -40,
		350: 0,
	}
	for turn, want := range cases {
		assert.Equal(t, want, YearForTurn(turn), "turn %d", turn)
	}
}
