package world

import (
	"fmt"
	"strings"
)

// Key is the globally unique identifier of a game object, of the form
// "{class}:{id}". The class is derivable from the key and never changes.
type Key string

// MakeKey builds a key from class and id.
func MakeKey(class, id string) Key {
	return Key(class + ":" + id)
}

// Class returns the class prefix of the key, or "" for a malformed key.
func (k Key) Class() string {
	i := strings.IndexByte(string(k), ':')
	if i <= 0 {
		return ""
	}
	return string(k)[:i]
}

// ID returns the id part of the key, or "" for a malformed key.
func (k Key) ID() string {
	i := strings.IndexByte(string(k), ':')
	if i < 0 || i == len(k)-1 {
		return ""
	}
	return string(k)[i+1:]
}

// Check returns an error unless the key has a non-empty class and id.
func (k Key) Check() error {
	if k.Class() == "" || k.ID() == "" {
		return fmt.Errorf("malformed object key %q, want \"class:id\"", string(k))
	}
	return nil
}

func (k Key) String() string { return string(k) }
