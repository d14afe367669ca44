package sim

import (
	"strings"

	"github.com/google/uuid"
	"github.com/poh/server/internal/world"
	"golang.org/x/text/unicode/norm"
)

// FoundCityHandler turns a settler unit into a new city with one citizen.
type FoundCityHandler struct{}

func (h *FoundCityHandler) Validate(d *Deps, a Action) error {
	unit, err := payloadObject[*world.Unit](d, a, "unit", "unit")
	if err != nil {
		return err
	}
	tile, err := unit.Tile(d.Bucket)
	if err != nil {
		return err
	}
	if _, taken, err := tile.City(d.Bucket); err != nil {
		return err
	} else if taken {
		return Rule("tile %s already holds a city", tile.Key())
	}
	name, err := a.payloadString("name")
	if err != nil {
		return err
	}
	if cityName(name) == "" {
		return Rule("city name must not be empty")
	}
	return nil
}

func (h *FoundCityHandler) Handle(d *Deps, a Action) (Result, error) {
	unit, err := payloadObject[*world.Unit](d, a, "unit", "unit")
	if err != nil {
		return Result{}, err
	}
	player, err := unit.Player(d.Bucket)
	if err != nil {
		return Result{}, err
	}
	tile, err := unit.Tile(d.Bucket)
	if err != nil {
		return Result{}, err
	}
	name, err := a.payloadString("name")
	if err != nil {
		return Result{}, err
	}

	cityKey := world.MakeKey("city", uuid.NewString())
	return Result{Mutations: []world.Mutation{
		{Type: world.MutRemove, Payload: world.Raw{"key": string(unit.Key())}},
		{Type: world.MutCreate, Payload: world.Raw{
			"key":        string(cityKey),
			"name":       cityName(name),
			"player":     string(player.Key()),
			"tile":       string(tile.Key()),
			"population": 1,
			"storage":    map[string]float64{"food": 0},
		}},
		{Type: world.MutCreate, Payload: world.Raw{
			"key":  "citizen:" + uuid.NewString(),
			"city": string(cityKey),
		}},
	}}, nil
}

// cityName canonicalizes a player-supplied name: trimmed and NFC-normalized,
// so two clients typing the same name with different codepoint sequences
// produce the same stored value.
func cityName(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}
