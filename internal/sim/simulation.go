package sim

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Simulation is the action-intake layer: it validates the optimistic lock,
// resolves the handler, and forwards the resulting mutation batch to the
// store. Submit serializes all callers; the bucket itself is single-writer.
type Simulation struct {
	mu   sync.Mutex
	deps *Deps
	reg  *Registry
}

func New(deps *Deps, reg *Registry) *Simulation {
	return &Simulation{deps: deps, reg: reg}
}

// Submit runs one action end to end. On any error the entity graph is
// unchanged from before the call.
func (s *Simulation) Submit(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.deps.Bucket.World()
	if a.Turn != w.Turn {
		return fmt.Errorf("action %s carries turn %d but world is at turn %d: %w",
			a.Type, a.Turn, w.Turn, ErrTurnConflict)
	}

	h, err := s.reg.Resolve(a.Type)
	if err != nil {
		return err
	}
	if err := h.Validate(s.deps, a); err != nil {
		return err
	}
	res, err := h.Handle(s.deps, a)
	if err != nil {
		return err
	}
	if len(res.Mutations) > 0 {
		if err := s.deps.Store.Apply(res.Mutations); err != nil {
			return err
		}
	}
	if res.World != nil {
		s.deps.Bucket.SetWorld(*res.World)
	}
	s.deps.Log.Debug("action applied",
		zap.String("type", a.Type),
		zap.Int("turn", a.Turn),
		zap.Int("mutations", len(res.Mutations)))
	return nil
}
