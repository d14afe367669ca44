package sim

import "github.com/poh/server/internal/world"

// SetResearchHandler points a player's research at a technology.
type SetResearchHandler struct{}

func (h *SetResearchHandler) Validate(d *Deps, a Action) error {
	res, err := playerResearch(d, a)
	if err != nil {
		return err
	}
	techKey, err := a.payloadString("tech")
	if err != nil {
		return err
	}
	tech, err := d.Bucket.Type(techKey)
	if err != nil {
		return err
	}
	for _, done := range res.TypeList("researched") {
		if done.Key == tech.Key {
			return Rule("technology %s is already researched", tech.Key)
		}
	}
	return nil
}

func (h *SetResearchHandler) Handle(d *Deps, a Action) (Result, error) {
	res, err := playerResearch(d, a)
	if err != nil {
		return Result{}, err
	}
	techKey, err := a.payloadString("tech")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":     string(res.Key()),
			"current": techKey,
		}},
	}}, nil
}

func playerResearch(d *Deps, a Action) (*world.Research, error) {
	player, err := payloadObject[*world.Player](d, a, "player", "player")
	if err != nil {
		return nil, err
	}
	return player.Research(d.Bucket)
}
