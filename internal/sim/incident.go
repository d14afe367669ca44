package sim

// TriggerIncidentHandler runs a Lua incident script and applies whatever
// mutations it returns. The script name travels in the payload; unknown
// scripts are rejected before anything runs.
type TriggerIncidentHandler struct{}

func (h *TriggerIncidentHandler) Validate(d *Deps, a Action) error {
	name, err := a.payloadString("script")
	if err != nil {
		return err
	}
	if d.Scripts == nil || !d.Scripts.Has(name) {
		return Rule("no incident script %q is loaded", name)
	}
	return nil
}

func (h *TriggerIncidentHandler) Handle(d *Deps, a Action) (Result, error) {
	name, err := a.payloadString("script")
	if err != nil {
		return Result{}, err
	}
	ms, err := d.Scripts.RunIncident(name, a.Payload)
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: ms}, nil
}
