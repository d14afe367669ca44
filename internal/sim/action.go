package sim

import (
	"errors"
	"fmt"

	"github.com/poh/server/internal/world"
)

// Action is a player's declared intent, as received from the client. Turn is
// the world turn the client believed it was acting in; a stale turn means the
// client raced another mutation and the action is rejected outright.
type Action struct {
	Type      string         `json:"type"`
	Turn      int            `json:"turn"`
	Timestamp int64          `json:"timestamp"`
	Player    world.Key      `json:"player,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ErrTurnConflict marks an optimistic-lock rejection. There is no merge or
// replay: the client refreshes its view of the world turn and resubmits.
var ErrTurnConflict = errors.New("turn conflict")

// RuleError is a business-rule violation thrown by handlers before any
// mutation is constructed. It is expected to surface to the player as-is,
// unlike data-layer integrity errors, which are bugs.
type RuleError struct {
	Msg string
}

func (e *RuleError) Error() string { return e.Msg }

// Rule builds a RuleError.
func Rule(format string, args ...any) error {
	return &RuleError{Msg: fmt.Sprintf(format, args...)}
}

// IsRule reports whether err is a business-rule violation.
func IsRule(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

func (a Action) payloadKey(field string) (world.Key, error) {
	v, ok := a.Payload[field]
	if !ok {
		return "", fmt.Errorf("action %s: payload field %q missing", a.Type, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("action %s: payload field %q is not a key string", a.Type, field)
	}
	k := world.Key(s)
	if err := k.Check(); err != nil {
		return "", fmt.Errorf("action %s: %w", a.Type, err)
	}
	return k, nil
}

// payloadObject resolves a payload key field to a live object of the expected
// class. Keys come straight from the client, so a wrong-class key must come
// back as an error rather than be trusted into a type assertion.
func payloadObject[T world.Object](d *Deps, a Action, field, class string) (T, error) {
	var zero T
	key, err := a.payloadKey(field)
	if err != nil {
		return zero, err
	}
	if key.Class() != class {
		return zero, fmt.Errorf("action %s: payload field %q names %s, want a %s key", a.Type, field, key, class)
	}
	obj, err := d.Bucket.Object(key)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("action %s: object %s is not a %s", a.Type, key, class)
	}
	return typed, nil
}

func (a Action) payloadString(field string) (string, error) {
	v, ok := a.Payload[field]
	if !ok {
		return "", fmt.Errorf("action %s: payload field %q missing", a.Type, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("action %s: payload field %q is not a string", a.Type, field)
	}
	return s, nil
}
