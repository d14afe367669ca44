package world

import "fmt"

// NotFoundError reports a referential-integrity miss: a key that should
// resolve against the bucket but does not. It is always fatal to the current
// operation; the data layer never papers over a dangling reference.
type NotFoundError struct {
	What string // "object", "type", "category", "class", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.What, e.Key)
}

func notFound(what string, key string) error {
	return &NotFoundError{What: what, Key: key}
}
