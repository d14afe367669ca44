package sim

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/poh/server/internal/world"
)

// EndTurnHandler advances the world one turn: cities grow, research and
// construction progress, and the world singleton moves to the next turn and
// year. All per-object changes travel as one mutation batch so a failure
// leaves the turn un-ended.
type EndTurnHandler struct{}

func (h *EndTurnHandler) Validate(d *Deps, a Action) error {
	w := d.Bucket.World()
	if w.CurrentPlayerKey != "" && a.Player != "" && a.Player != w.CurrentPlayerKey {
		return Rule("only the current player may end the turn")
	}
	return nil
}

func (h *EndTurnHandler) Handle(d *Deps, a Action) (Result, error) {
	var ms []world.Mutation

	for _, o := range d.Bucket.ClassObjects("city") {
		city := o.(*world.City)
		grown, err := growCity(d, city)
		if err != nil {
			return Result{}, err
		}
		ms = append(ms, grown...)
	}
	for _, o := range d.Bucket.ClassObjects("research") {
		res := o.(*world.Research)
		progressed, err := progressResearch(d, res)
		if err != nil {
			return Result{}, err
		}
		ms = append(ms, progressed...)
	}
	for _, o := range d.Bucket.ClassObjects("construction") {
		con := o.(*world.Construction)
		progressed, err := progressConstruction(d, con)
		if err != nil {
			return Result{}, err
		}
		ms = append(ms, progressed...)
	}

	w := d.Bucket.World()
	w.Turn++
	w.Year = YearForTurn(w.Turn)
	return Result{Mutations: ms, World: &w}, nil
}

// growthThreshold is the food stock a city must hold to add a citizen.
func growthThreshold(population int) float64 {
	return 10 + 5*float64(population)
}

func growCity(d *Deps, city *world.City) ([]world.Mutation, error) {
	storage := city.Storage()
	threshold := growthThreshold(city.Population())
	if storage["food"] < threshold {
		return nil, nil
	}
	citizenKey := world.MakeKey("citizen", uuid.NewString())
	return []world.Mutation{
		{Type: world.MutCreate, Payload: world.Raw{
			"key":  string(citizenKey),
			"city": string(city.Key()),
		}},
		{Type: world.MutSetKeys, Payload: world.Raw{
			"key":     string(city.Key()),
			"storage": map[string]float64{"food": storage["food"] - threshold},
		}},
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":        string(city.Key()),
			"population": city.Population() + 1,
		}},
	}, nil
}

func progressResearch(d *Deps, res *world.Research) ([]world.Mutation, error) {
	current := res.TypeRef("current")
	if current == nil {
		return nil, nil
	}
	player, err := res.Player(d.Bucket)
	if err != nil {
		return nil, fmt.Errorf("research %s: %w", res.Key(), err)
	}
	progress := res.Progress() + player.Yields(d.Bucket)["science"]
	cost := current.Costs["science"]
	if cost <= 0 || progress < cost {
		return []world.Mutation{{Type: world.MutUpdate, Payload: world.Raw{
			"key":      string(res.Key()),
			"progress": progress,
		}}}, nil
	}
	return []world.Mutation{
		{Type: world.MutAppend, Payload: world.Raw{
			"key":        string(res.Key()),
			"researched": []string{current.Key},
		}},
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":      string(res.Key()),
			"current":  nil,
			"progress": 0.0,
		}},
	}, nil
}

func progressConstruction(d *Deps, con *world.Construction) ([]world.Mutation, error) {
	target := con.TypeRef("target")
	if target == nil {
		return nil, nil
	}
	city, err := con.City(d.Bucket)
	if err != nil {
		return nil, fmt.Errorf("construction %s: %w", con.Key(), err)
	}
	progress := con.Progress() + city.StorageOf("yields")["production"]
	cost := target.Costs["production"]
	if cost <= 0 || progress < cost {
		return []world.Mutation{{Type: world.MutUpdate, Payload: world.Raw{
			"key":      string(con.Key()),
			"progress": progress,
		}}}, nil
	}
	return []world.Mutation{
		{Type: world.MutAppend, Payload: world.Raw{
			"key":       string(city.Key()),
			"buildings": []string{target.Key},
		}},
		{Type: world.MutRemove, Payload: world.Raw{
			"key": string(con.Key()),
		}},
	}, nil
}
