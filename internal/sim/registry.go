package sim

import (
	"fmt"

	"github.com/poh/server/internal/scripting"
	"github.com/poh/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds the shared collaborators injected into every action handler.
type Deps struct {
	Bucket  *world.Bucket
	Store   *world.Store
	Scripts *scripting.Engine // may be nil when no script directory is configured
	Log     *zap.Logger
}

// Result is what a handler produces: the mutation batch for the store, plus
// an optional world-singleton update applied only after the batch commits.
type Result struct {
	Mutations []world.Mutation
	World     *world.WorldState
}

// Handler resolves one action type. Validate may reject with a RuleError
// before any mutation exists; Handle emits the mutation batch.
type Handler interface {
	Validate(d *Deps, a Action) error
	Handle(d *Deps, a Action) (Result, error)
}

// Registry maps action types to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an action type. Double registration is a
// programming error and panics at startup, not at play time.
func (r *Registry) Register(actionType string, h Handler) {
	if _, dup := r.handlers[actionType]; dup {
		panic(fmt.Sprintf("action handler %q registered twice", actionType))
	}
	r.handlers[actionType] = h
}

// Resolve returns the handler for an action type.
func (r *Registry) Resolve(actionType string) (Handler, error) {
	h, ok := r.handlers[actionType]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
	return h, nil
}

// RegisterAll binds every built-in action handler.
func RegisterAll(r *Registry) {
	r.Register("endTurn", &EndTurnHandler{})
	r.Register("foundCity", &FoundCityHandler{})
	r.Register("moveUnit", &MoveUnitHandler{})
	r.Register("disbandUnit", &DisbandUnitHandler{})
	r.Register("setResearch", &SetResearchHandler{})
	r.Register("changeGovernment", &ChangeGovernmentHandler{})
	r.Register("adoptPolicy", &AdoptPolicyHandler{})
	r.Register("revokePolicy", &RevokePolicyHandler{})
	r.Register("spreadReligion", &SpreadReligionHandler{})
	r.Register("triggerIncident", &TriggerIncidentHandler{})
}
