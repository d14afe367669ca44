package sim

import "github.com/poh/server/internal/world"

// electionCooldown is how many turns a new government locks policy changes.
const electionCooldown = 5

// ChangeGovernmentHandler switches a player's form of government, starting a
// pending-elections window during which further changes are rejected.
type ChangeGovernmentHandler struct{}

func (h *ChangeGovernmentHandler) Validate(d *Deps, a Action) error {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return err
	}
	if gov.ElectionsPendingUntil() > d.Bucket.World().Turn {
		return Rule("cannot change policy while elections are pending")
	}
	formKey, err := a.payloadString("form")
	if err != nil {
		return err
	}
	_, err = d.Bucket.Type(formKey)
	return err
}

func (h *ChangeGovernmentHandler) Handle(d *Deps, a Action) (Result, error) {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return Result{}, err
	}
	formKey, err := a.payloadString("form")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutUpdate, Payload: world.Raw{
			"key":                   string(gov.Key()),
			"form":                  formKey,
			"electionsPendingUntil": d.Bucket.World().Turn + electionCooldown,
		}},
	}}, nil
}

// AdoptPolicyHandler appends a policy to the player's adopted set.
type AdoptPolicyHandler struct{}

func (h *AdoptPolicyHandler) Validate(d *Deps, a Action) error {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return err
	}
	if gov.ElectionsPendingUntil() > d.Bucket.World().Turn {
		return Rule("cannot change policy while elections are pending")
	}
	policyKey, err := a.payloadString("policy")
	if err != nil {
		return err
	}
	if _, err := d.Bucket.Type(policyKey); err != nil {
		return err
	}
	for _, p := range gov.TypeList("policies") {
		if p.Key == policyKey {
			return Rule("policy %s is already adopted", policyKey)
		}
	}
	return nil
}

func (h *AdoptPolicyHandler) Handle(d *Deps, a Action) (Result, error) {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return Result{}, err
	}
	policyKey, err := a.payloadString("policy")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutAppend, Payload: world.Raw{
			"key":      string(gov.Key()),
			"policies": []string{policyKey},
		}},
	}}, nil
}

// RevokePolicyHandler removes a policy from the adopted set.
type RevokePolicyHandler struct{}

func (h *RevokePolicyHandler) Validate(d *Deps, a Action) error {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return err
	}
	policyKey, err := a.payloadString("policy")
	if err != nil {
		return err
	}
	for _, p := range gov.TypeList("policies") {
		if p.Key == policyKey {
			return nil
		}
	}
	return Rule("policy %s is not adopted", policyKey)
}

func (h *RevokePolicyHandler) Handle(d *Deps, a Action) (Result, error) {
	gov, err := playerGovernment(d, a)
	if err != nil {
		return Result{}, err
	}
	policyKey, err := a.payloadString("policy")
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: []world.Mutation{
		{Type: world.MutFilter, Payload: world.Raw{
			"key":      string(gov.Key()),
			"policies": []string{policyKey},
		}},
	}}, nil
}

func playerGovernment(d *Deps, a Action) (*world.Government, error) {
	player, err := payloadObject[*world.Player](d, a, "player", "player")
	if err != nil {
		return nil, err
	}
	return player.Government(d.Bucket)
}
