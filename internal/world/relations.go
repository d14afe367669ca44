package world

import "fmt"

// Relation accessors resolve stored foreign keys into live objects through
// the bucket, caching the resolution per attribute on the owning object. The
// cache entry is dropped whenever the underlying attribute changes.

// One resolves a mandatory one-relation. An unset foreign key is an error
// naming the relation and the owning object: a mandatory relation with no
// value is a data-model bug, not a case to default around.
func One[T Object](b *Bucket, o Object, attr string) (T, error) {
	var zero T
	base := o.base()
	if cached, ok := base.relCache[attr]; ok {
		return cached.(T), nil
	}
	k, ok := base.Ref(attr)
	if !ok || k == "" {
		return zero, fmt.Errorf("relation %s.%s has no key set", o.Key(), attr)
	}
	target, err := b.Object(k)
	if err != nil {
		return zero, fmt.Errorf("relation %s.%s: %w", o.Key(), attr, err)
	}
	typed, ok := target.(T)
	if !ok {
		return zero, fmt.Errorf("relation %s.%s resolves to %s of unexpected class", o.Key(), attr, k)
	}
	base.relCache[attr] = typed
	return typed, nil
}

// MaybeOne resolves an optional one-relation; an unset key yields ok=false
// rather than an error. A set key that no longer resolves is still an error.
func MaybeOne[T Object](b *Bucket, o Object, attr string) (T, bool, error) {
	var zero T
	base := o.base()
	if _, set := base.Ref(attr); !set {
		return zero, false, nil
	}
	v, err := One[T](b, o, attr)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Many resolves a many-relation into a keyed collection, caching the whole
// collection on first access.
func Many[T Object](b *Bucket, o Object, attr string) (map[Key]T, error) {
	base := o.base()
	if cached, ok := base.relCache[attr]; ok {
		return cached.(map[Key]T), nil
	}
	set := base.RefSet(attr)
	out := make(map[Key]T, set.Len())
	for _, k := range set.Keys() {
		target, err := b.Object(k)
		if err != nil {
			return nil, fmt.Errorf("relation %s.%s: %w", o.Key(), attr, err)
		}
		typed, ok := target.(T)
		if !ok {
			return nil, fmt.Errorf("relation %s.%s: member %s has unexpected class", o.Key(), attr, k)
		}
		out[k] = typed
	}
	base.relCache[attr] = out
	return out, nil
}
