package world

import "sort"

// KeySet is an unordered set of object keys backing the many side of a
// relation. Iteration order is made deterministic by Keys() so snapshots
// serialize identically for identical graphs.
type KeySet struct {
	m map[Key]struct{}
}

func NewKeySet(keys ...Key) *KeySet {
	s := &KeySet{m: make(map[Key]struct{}, len(keys))}
	for _, k := range keys {
		s.m[k] = struct{}{}
	}
	return s
}

func (s *KeySet) Add(k Key) {
	if s.m == nil {
		s.m = make(map[Key]struct{}, 4)
	}
	s.m[k] = struct{}{}
}

func (s *KeySet) Remove(k Key) {
	delete(s.m, k)
}

func (s *KeySet) Has(k Key) bool {
	_, ok := s.m[k]
	return ok
}

func (s *KeySet) Len() int { return len(s.m) }

// Keys returns the members in sorted order.
func (s *KeySet) Keys() []Key {
	out := make([]Key, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the members in sorted order as plain strings, the shape
// relation sets take in raw records.
func (s *KeySet) Strings() []string {
	ks := s.Keys()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}

func (s *KeySet) Clone() *KeySet {
	c := &KeySet{m: make(map[Key]struct{}, len(s.m))}
	for k := range s.m {
		c.m[k] = struct{}{}
	}
	return c
}
