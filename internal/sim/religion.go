package sim

import "github.com/poh/server/internal/world"

// SpreadReligionHandler converts one citizen to a religion.
type SpreadReligionHandler struct{}

func (h *SpreadReligionHandler) Validate(d *Deps, a Action) error {
	citizen, err := payloadObject[*world.Citizen](d, a, "citizen", "citizen")
	if err != nil {
		return err
	}
	religion, err := payloadObject[*world.Religion](d, a, "religion", "religion")
	if err != nil {
		return err
	}
	if current, has, err := citizen.Religion(d.Bucket); err != nil {
		return err
	} else if has && current.Key() == religion.Key() {
		return Rule("citizen %s already follows %s", citizen.Key(), religion.Key())
	}
	return nil
}

func (h *SpreadReligionHandler) Handle(d *Deps, a Action) (Result, error) {
	citizenKey, err := a.payloadKey("citizen")
	if err != nil {
		return Result{}, err
	}
	religionKey, err := a.payloadKey("religion")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":      string(citizenKey),
			"religion": string(religionKey),
		}},
	}}, nil
}
