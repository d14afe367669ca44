package world

import (
	"github.com/poh/server/internal/data"
)

// Raw is a plain, JSON/YAML-serializable record of one object: a "key" field
// plus the class-specific attributes declared by its schema. Relation fields
// appear as key strings (one) or sorted key-string lists (many); static-type
// fields appear as type keys.
type Raw map[string]any

// Storage is a keyed numeric stockpile (food, gold, amber, ...). It is the
// value type behind FieldStorage attributes and the target of setKeys
// mutations, which shallow-merge into it.
type Storage map[string]float64

// Merge returns a copy of s with every entry of patch written over it.
func (s Storage) Merge(patch Storage) Storage {
	out := make(Storage, len(s)+len(patch))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Object is a live game entity. All concrete classes embed Base, which
// carries the schema-driven attribute storage; classes add typed accessors
// and may override the lifecycle hooks.
type Object interface {
	Key() Key
	Class() string
	Schema() *Schema

	// OnCreate and OnUpdate fire after bulk ingestion, with the names of the
	// fields that were actually part of the incoming record.
	OnCreate(fields []string)
	OnUpdate(fields []string)

	base() *Base
}

// Base is the generic attribute store every object class embeds. Concrete
// values live in kind-segregated maps so the loader and the snapshot code
// never have to guess a field's shape: the schema says it.
type Base struct {
	key    Key
	schema *Schema

	attrs     map[string]any
	refs      map[string]Key
	sets      map[string]*KeySet
	typeRefs  map[string]*data.Type
	typeLists map[string][]*data.Type

	relCache map[string]any
	computed map[string]any
	watching map[string]bool // computed-cache names already wired to watchers
	watchers []func(attr string)
}

func (b *Base) init(key Key, schema *Schema) {
	b.key = key
	b.schema = schema
	b.attrs = make(map[string]any)
	b.refs = make(map[string]Key)
	b.sets = make(map[string]*KeySet)
	b.typeRefs = make(map[string]*data.Type)
	b.typeLists = make(map[string][]*data.Type)
	b.relCache = make(map[string]any)
	b.computed = make(map[string]any)
	b.watching = make(map[string]bool)
}

func (b *Base) Key() Key { return b.key }
func (b *Base) Class() string { return b.key.Class() }
func (b *Base) Schema() *Schema { return b.schema }
func (b *Base) base() *Base { return b }

// Default lifecycle hooks; classes with behavior override them.
func (b *Base) OnCreate(fields []string) {}
func (b *Base) OnUpdate(fields []string) {}

// Watch registers a callback invoked with the attribute name on every change
// to this object. Computed caches use it for invalidation.
func (b *Base) Watch(fn func(attr string)) {
	b.watchers = append(b.watchers, fn)
}

func (b *Base) changed(attr string) {
	delete(b.relCache, attr)
	for _, fn := range b.watchers {
		fn(attr)
	}
}

// ── plain attributes ──

func (b *Base) Attr(name string) (any, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

func (b *Base) SetAttr(name string, v any) {
	b.attrs[name] = v
	b.changed(name)
}

func (b *Base) DelAttr(name string) {
	delete(b.attrs, name)
	b.changed(name)
}

// Str returns a string attribute, or "" when unset.
func (b *Base) Str(name string) string {
	if v, ok := b.attrs[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns a numeric attribute as int, tolerating the float64 shape JSON
// decoding produces. Unset yields 0.
func (b *Base) Int(name string) int {
	switch v := b.attrs[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns a numeric attribute as float64. Unset yields 0.
func (b *Base) Float(name string) float64 {
	switch v := b.attrs[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean attribute. Unset yields false.
func (b *Base) Bool(name string) bool {
	v, _ := b.attrs[name].(bool)
	return v
}

// StorageOf returns a storage attribute, never nil.
func (b *Base) StorageOf(name string) Storage {
	if s, ok := b.attrs[name].(Storage); ok {
		return s
	}
	return Storage{}
}

// ── relation attributes ──

// Ref returns the scalar foreign key stored under a one-relation attribute.
func (b *Base) Ref(name string) (Key, bool) {
	k, ok := b.refs[name]
	return k, ok
}

func (b *Base) SetRef(name string, k Key) {
	b.refs[name] = k
	b.changed(name)
}

func (b *Base) ClearRef(name string) {
	delete(b.refs, name)
	b.changed(name)
}

// RefSet returns the key set backing a many-relation attribute, allocating
// it on first use.
func (b *Base) RefSet(name string) *KeySet {
	s, ok := b.sets[name]
	if !ok {
		s = NewKeySet()
		b.sets[name] = s
	}
	return s
}

// AddRef adds a member to a many-relation attribute.
func (b *Base) AddRef(name string, k Key) {
	b.RefSet(name).Add(k)
	b.changed(name)
}

// RemoveRef removes a member from a many-relation attribute.
func (b *Base) RemoveRef(name string, k Key) {
	b.RefSet(name).Remove(k)
	b.changed(name)
}

func (b *Base) replaceRefSet(name string, s *KeySet) {
	b.sets[name] = s
	b.changed(name)
}

// ── static type attributes ──

func (b *Base) TypeRef(name string) *data.Type {
	return b.typeRefs[name]
}

func (b *Base) SetTypeRef(name string, t *data.Type) {
	if t == nil {
		delete(b.typeRefs, name)
	} else {
		b.typeRefs[name] = t
	}
	b.changed(name)
}

func (b *Base) TypeList(name string) []*data.Type {
	return b.typeLists[name]
}

func (b *Base) SetTypeList(name string, ts []*data.Type) {
	b.typeLists[name] = ts
	b.changed(name)
}

// Raw serializes the object to its plain record form, following the schema
// field by field. Unset optional fields are omitted.
func (b *Base) Raw() Raw {
	out := Raw{"key": string(b.key)}
	for i := range b.schema.Fields {
		f := &b.schema.Fields[i]
		switch f.Kind {
		case FieldPlain:
			if v, ok := b.attrs[f.Name]; ok {
				out[f.Name] = copyValue(v)
			}
		case FieldStorage:
			if s, ok := b.attrs[f.Name].(Storage); ok {
				out[f.Name] = map[string]float64(s.MergeCopy())
			}
		case FieldTypeRef:
			if t, ok := b.typeRefs[f.Name]; ok {
				out[f.Name] = t.Key
			}
		case FieldTypeRefList:
			if ts, ok := b.typeLists[f.Name]; ok {
				keys := make([]string, len(ts))
				for i, t := range ts {
					keys[i] = t.Key
				}
				out[f.Name] = keys
			}
		case FieldRelation:
			switch f.Rel {
			case RelOne:
				if k, ok := b.refs[f.Name]; ok {
					out[f.Name] = string(k)
				}
			case RelMany:
				// An empty set is indistinguishable from an absent one (see
				// attrPresent); reads may have materialized the backing set,
				// and that must not change the serialized form.
				if s, ok := b.sets[f.Name]; ok && s.Len() > 0 {
					out[f.Name] = s.Strings()
				}
			}
		}
	}
	return out
}

// MergeCopy returns a defensive copy of the storage map.
func (s Storage) MergeCopy() Storage {
	return Storage{}.Merge(s)
}

// copyValue deep-copies the JSON-shaped values plain attributes may hold.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// attrPresent reports whether the object currently holds any value for the
// named schema field.
func (b *Base) attrPresent(f *FieldSpec) bool {
	switch f.Kind {
	case FieldPlain, FieldStorage:
		_, ok := b.attrs[f.Name]
		return ok
	case FieldTypeRef:
		_, ok := b.typeRefs[f.Name]
		return ok
	case FieldTypeRefList:
		_, ok := b.typeLists[f.Name]
		return ok
	case FieldRelation:
		if f.Rel == RelOne {
			_, ok := b.refs[f.Name]
			return ok
		}
		s, ok := b.sets[f.Name]
		return ok && s.Len() > 0
	}
	return false
}

func (b *Base) String() string {
	return string(b.key)
}
