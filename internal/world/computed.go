package world

// Computed returns a lazily evaluated, cached derived value on an object.
// The first call for a given name wires an invalidation watcher: whenever any
// attribute in watch changes through the normal update path, the cached value
// is dropped and the next read recomputes. A Player's aggregate yields, for
// example, recompute only when government, research or culture change.
func Computed[T any](o Object, name string, watch []string, fn func() T) T {
	b := o.base()
	if !b.watching[name] {
		b.watching[name] = true
		watched := make(map[string]bool, len(watch))
		for _, w := range watch {
			watched[w] = true
		}
		b.Watch(func(attr string) {
			if watched[attr] {
				delete(b.computed, name)
			}
		})
	}
	if v, ok := b.computed[name]; ok {
		return v.(T)
	}
	v := fn()
	b.computed[name] = v
	return v
}
