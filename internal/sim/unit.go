package sim

import "github.com/poh/server/internal/world"

// MoveUnitHandler relocates a unit to another tile, spending one move point.
// Path legality beyond movement points is the client renderer's concern.
type MoveUnitHandler struct{}

func (h *MoveUnitHandler) Validate(d *Deps, a Action) error {
	unit, err := payloadObject[*world.Unit](d, a, "unit", "unit")
	if err != nil {
		return err
	}
	if unit.Moves() <= 0 {
		return Rule("unit %s has no movement left this turn", unit.Key())
	}
	_, err = payloadObject[*world.Tile](d, a, "tile", "tile")
	return err
}

func (h *MoveUnitHandler) Handle(d *Deps, a Action) (Result, error) {
	unit, err := payloadObject[*world.Unit](d, a, "unit", "unit")
	if err != nil {
		return Result{}, err
	}
	tile, err := payloadObject[*world.Tile](d, a, "tile", "tile")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":   string(unit.Key()),
			"tile":  string(tile.Key()),
			"moves": unit.Moves() - 1,
		}},
	}}, nil
}

// DisbandUnitHandler deletes a unit outright.
type DisbandUnitHandler struct{}

func (h *DisbandUnitHandler) Validate(d *Deps, a Action) error {
	_, err := payloadObject[*world.Unit](d, a, "unit", "unit")
	return err
}

func (h *DisbandUnitHandler) Handle(d *Deps, a Action) (Result, error) {
	unitKey, err := a.payloadKey("unit")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutRemove, Payload: world.Raw{"key": string(unitKey)}},
	}}, nil
}
