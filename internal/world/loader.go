package world

import (
	"fmt"

	"github.com/poh/server/internal/data"
)

// Loader translates plain records into live, fully cross-linked entities and
// keeps the bidirectional relation graph consistent as objects are created,
// patched or removed. It works in two passes: instantiate/patch every record
// in caller order, then write reciprocals — so a relation may reference an
// object created later in the same batch.
type Loader struct {
	bucket *Bucket
}

type touchRec struct {
	obj     Object
	created bool
	fields  []string
}

// SetFromRaw applies a batch of raw records against the bucket and returns
// which objects were created or updated, with the field names each incoming
// record actually carried.
func (l *Loader) SetFromRaw(records []Raw) ([]touchRec, error) {
	touched := make([]touchRec, 0, len(records))

	// Pass 1: instantiate new objects, patch existing ones.
	for _, rec := range records {
		key, err := recordKey(rec)
		if err != nil {
			return nil, err
		}
		schema, err := l.bucket.schemas.Get(key.Class())
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", key, err)
		}

		if existing, ok := l.bucket.objects[key]; ok {
			fields, err := l.patch(existing, rec)
			if err != nil {
				return nil, err
			}
			touched = append(touched, touchRec{obj: existing, fields: fields})
			continue
		}

		obj := schema.New(key)
		obj.base().init(key, schema)
		fields, err := l.fill(obj, rec)
		if err != nil {
			return nil, err
		}
		if err := l.bucket.SetObject(obj); err != nil {
			return nil, err
		}
		touched = append(touched, touchRec{obj: obj, created: true, fields: fields})
	}

	// Pass 2: reciprocal writes, only for relation fields that were part of
	// the incoming records (so unrelated updates never rewrite reciprocals).
	for _, t := range touched {
		if err := l.linkRelations(t.obj, t.fields); err != nil {
			return nil, err
		}
	}
	return touched, nil
}

// fill populates a freshly constructed object from its record, walking the
// schema in declaration order. A required attribute missing from the record
// is data corruption and fails hard, naming the attribute and the payload.
func (l *Loader) fill(o Object, rec Raw) ([]string, error) {
	base := o.base()
	fields := make([]string, 0, len(rec))
	for i := range base.schema.Fields {
		f := &base.schema.Fields[i]
		v, present := rec[f.Name]
		if !present || v == nil {
			if !f.Optional {
				return nil, fmt.Errorf("create %s: required attribute %q missing in record %v", o.Key(), f.Name, rec)
			}
			continue
		}
		if err := l.setField(base, f, v); err != nil {
			return nil, fmt.Errorf("create %s: %w", o.Key(), err)
		}
		fields = append(fields, f.Name)
	}
	return fields, nil
}

// patch updates an existing object in place from a partial record. A changed
// relation first unlinks the old value's reciprocal, so a citizen moved to a
// new city leaves no stale membership on the old one.
func (l *Loader) patch(o Object, rec Raw) ([]string, error) {
	base := o.base()
	l.bucket.touch(o.Key())
	fields := make([]string, 0, len(rec))
	for i := range base.schema.Fields {
		f := &base.schema.Fields[i]
		v, present := rec[f.Name]
		if !present {
			continue
		}
		fields = append(fields, f.Name)

		if f.Kind == FieldRelation {
			l.unlinkOld(base, f, v)
		}
		if v == nil {
			if !f.Optional {
				return nil, fmt.Errorf("update %s: required attribute %q set to null", o.Key(), f.Name)
			}
			l.clearField(base, f)
			continue
		}
		if err := l.setField(base, f, v); err != nil {
			return nil, fmt.Errorf("update %s: %w", o.Key(), err)
		}
	}
	return fields, nil
}

// unlinkOld strips the reciprocal links of a relation field's current value
// before a patch installs the new one. Members surviving into the new value
// are left alone.
func (l *Loader) unlinkOld(base *Base, f *FieldSpec, incoming any) {
	if f.RecipAttr == "" {
		return
	}
	switch f.Rel {
	case RelOne:
		old, ok := base.Ref(f.Name)
		if !ok {
			return
		}
		if nk, err := relKey(incoming); err == nil && nk == old {
			return
		}
		l.unlinkRecip(old, f, base.Key())
	case RelMany:
		old := base.RefSet(f.Name)
		if old.Len() == 0 {
			return
		}
		keep := NewKeySet()
		if keys, err := relKeys(incoming); err == nil {
			for _, k := range keys {
				keep.Add(k)
			}
		}
		for _, k := range old.Keys() {
			if !keep.Has(k) {
				l.unlinkRecip(k, f, base.Key())
			}
		}
	}
}

// setField stores one attribute value, branching on the schema tag.
func (l *Loader) setField(base *Base, f *FieldSpec, v any) error {
	switch f.Kind {
	case FieldPlain:
		base.SetAttr(f.Name, copyValue(v))
	case FieldStorage:
		s, err := asStorage(v)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", f.Name, err)
		}
		base.SetAttr(f.Name, s)
	case FieldTypeRef:
		key, ok := v.(string)
		if !ok {
			return fmt.Errorf("attribute %q: want type key string, got %T", f.Name, v)
		}
		t, err := l.bucket.registry.Type(key)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", f.Name, err)
		}
		base.SetTypeRef(f.Name, t)
	case FieldTypeRefList:
		keys, err := stringList(v)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", f.Name, err)
		}
		ts := make([]*data.Type, 0, len(keys))
		for _, key := range keys {
			t, err := l.bucket.registry.Type(key)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", f.Name, err)
			}
			ts = append(ts, t)
		}
		base.SetTypeList(f.Name, ts)
	case FieldRelation:
		switch f.Rel {
		case RelOne:
			k, err := relKey(v)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", f.Name, err)
			}
			if k == "" {
				if !f.Optional {
					return fmt.Errorf("attribute %q: required relation has empty key", f.Name)
				}
				base.ClearRef(f.Name)
				return nil
			}
			base.SetRef(f.Name, k)
		case RelMany:
			keys, err := relKeys(v)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", f.Name, err)
			}
			base.replaceRefSet(f.Name, NewKeySet(keys...))
		}
	}
	return nil
}

func (l *Loader) clearField(base *Base, f *FieldSpec) {
	switch f.Kind {
	case FieldPlain, FieldStorage:
		base.DelAttr(f.Name)
	case FieldTypeRef:
		base.SetTypeRef(f.Name, nil)
	case FieldTypeRefList:
		base.SetTypeList(f.Name, nil)
	case FieldRelation:
		if f.Rel == RelOne {
			base.ClearRef(f.Name)
		} else {
			base.replaceRefSet(f.Name, NewKeySet())
		}
	}
}

// linkRelations writes the reciprocal side of every relation field named in
// fields. Each key of a many-relation is processed independently. A target
// that does not resolve at link time fails loudly: the batch was supposed to
// make the graph whole.
func (l *Loader) linkRelations(o Object, fields []string) error {
	base := o.base()
	for _, name := range fields {
		f := base.schema.Field(name)
		if f == nil || f.Kind != FieldRelation || f.RecipAttr == "" {
			continue
		}
		var targets []Key
		if f.Rel == RelOne {
			if k, ok := base.Ref(f.Name); ok {
				targets = []Key{k}
			}
		} else {
			targets = base.RefSet(f.Name).Keys()
		}
		for _, tk := range targets {
			target, err := l.bucket.Object(tk)
			if err != nil {
				return fmt.Errorf("link %s.%s: %w", o.Key(), f.Name, err)
			}
			l.bucket.touch(tk)
			tb := target.base()
			if f.RecipRel == RelOne {
				tb.SetRef(f.RecipAttr, o.Key())
			} else {
				tb.AddRef(f.RecipAttr, o.Key())
			}
		}
	}
	return nil
}

// RemoveRelations strips the reciprocal of every relation the doomed object
// holds — the mirror of linkRelations. Related objects that are already gone
// are skipped silently: removal batches may take out both ends.
func (l *Loader) RemoveRelations(o Object) {
	base := o.base()
	for i := range base.schema.Fields {
		f := &base.schema.Fields[i]
		if f.Kind != FieldRelation || f.RecipAttr == "" {
			continue
		}
		if f.Rel == RelOne {
			if k, ok := base.Ref(f.Name); ok {
				l.unlinkRecip(k, f, o.Key())
			}
			continue
		}
		for _, k := range base.RefSet(f.Name).Keys() {
			l.unlinkRecip(k, f, o.Key())
		}
	}
}

// unlinkRecip removes selfKey from the reciprocal attribute of the object at
// target, if that object still exists. A scalar reciprocal is cleared only
// when it still points back at selfKey.
func (l *Loader) unlinkRecip(target Key, f *FieldSpec, selfKey Key) {
	obj, ok := l.bucket.objects[target]
	if !ok {
		return
	}
	l.bucket.touch(target)
	tb := obj.base()
	if f.RecipRel == RelOne {
		if cur, ok := tb.Ref(f.RecipAttr); ok && cur == selfKey {
			tb.ClearRef(f.RecipAttr)
		}
		return
	}
	tb.RemoveRef(f.RecipAttr, selfKey)
}

func recordKey(rec Raw) (Key, error) {
	v, ok := rec["key"]
	if !ok {
		return "", fmt.Errorf("record without key: %v", rec)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("record key %v is not a string", v)
	}
	k := Key(s)
	if err := k.Check(); err != nil {
		return "", err
	}
	return k, nil
}

func relKey(v any) (Key, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return Key(t), nil
	case Key:
		return t, nil
	}
	return "", fmt.Errorf("want relation key string, got %T", v)
}

func relKeys(v any) ([]Key, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]Key, len(t))
		for i, s := range t {
			out[i] = Key(s)
		}
		return out, nil
	case []Key:
		return append([]Key(nil), t...), nil
	case []any:
		out := make([]Key, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("relation list holds non-string %v", e)
			}
			out = append(out, Key(s))
		}
		return out, nil
	}
	return nil, fmt.Errorf("want relation key list, got %T", v)
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("list holds non-string %v", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("want string list, got %T", v)
}

func asStorage(v any) (Storage, error) {
	switch t := v.(type) {
	case Storage:
		return t.MergeCopy(), nil
	case map[string]float64:
		return Storage(t).MergeCopy(), nil
	case map[string]any:
		out := make(Storage, len(t))
		for k, e := range t {
			switch n := e.(type) {
			case float64:
				out[k] = n
			case int:
				out[k] = float64(n)
			case int64:
				out[k] = float64(n)
			default:
				return nil, fmt.Errorf("storage entry %q holds non-number %v", k, e)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("want storage map, got %T", v)
}
