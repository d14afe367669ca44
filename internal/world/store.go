package world

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// MutationType enumerates the declarative mutation kinds handlers emit.
type MutationType string

const (
	MutCreate  MutationType = "create"
	MutUpdate  MutationType = "update"
	MutAppend  MutationType = "append"
	MutFilter  MutationType = "filter"
	MutSetKeys MutationType = "setKeys"
	MutRemove  MutationType = "remove"
)

// Mutation is one intent to change the entity graph. The payload always
// carries the target key; remaining fields depend on the kind.
type Mutation struct {
	Type    MutationType `json:"type"`
	Payload Raw          `json:"payload"`
}

// Store is the transactional mutation applier. A batch is all-or-nothing:
// every mutation is resolved into a concrete field patch against current
// state, removes apply first, then every patch goes through the bucket's
// bulk-ingest path inside one journaled transaction. Any failure rolls the
// touched objects back to their pre-images and re-returns the original error.
type Store struct {
	mu     sync.Mutex
	bucket *Bucket
	log    *zap.Logger
}

func NewStore(bucket *Bucket, log *zap.Logger) *Store {
	return &Store{bucket: bucket, log: log}
}

type resolved struct {
	removes []Key
	patches []Raw
}

// Apply validates, resolves and transactionally applies a mutation batch.
func (s *Store) Apply(ms []Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.resolve(ms)
	if err != nil {
		return err
	}

	j, err := s.bucket.Begin()
	if err != nil {
		return err
	}
	if err := s.apply(r); err != nil {
		if rbErr := s.bucket.Rollback(j); rbErr != nil {
			// The undo log itself failed; the graph may be corrupt. Surface
			// both errors, loudly.
			s.log.Error("rollback failed after mutation error",
				zap.Error(rbErr), zap.NamedError("cause", err))
			return fmt.Errorf("rollback failed: %v (while handling: %w)", rbErr, err)
		}
		s.log.Debug("mutation batch rolled back", zap.Int("mutations", len(ms)), zap.Error(err))
		return err
	}
	s.bucket.Commit(j)
	return nil
}

// resolve turns every mutation into a concrete patch against current object
// state. Referencing an unknown key fails here, before anything is touched.
func (s *Store) resolve(ms []Mutation) (*resolved, error) {
	r := &resolved{}
	for i, m := range ms {
		key, err := recordKey(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("mutation %d (%s): %w", i, m.Type, err)
		}
		switch m.Type {
		case MutCreate:
			if s.bucket.Has(key) {
				return nil, fmt.Errorf("mutation %d: create %s: object already exists", i, key)
			}
			r.patches = append(r.patches, m.Payload)

		case MutUpdate:
			if !s.bucket.Has(key) {
				return nil, fmt.Errorf("mutation %d: update: %w", i, notFound("object", string(key)))
			}
			r.patches = append(r.patches, m.Payload)

		case MutAppend, MutFilter:
			obj, err := s.bucket.Object(key)
			if err != nil {
				return nil, fmt.Errorf("mutation %d (%s): %w", i, m.Type, err)
			}
			patch, err := resolveListPatch(obj, m)
			if err != nil {
				return nil, fmt.Errorf("mutation %d: %w", i, err)
			}
			r.patches = append(r.patches, patch)

		case MutSetKeys:
			obj, err := s.bucket.Object(key)
			if err != nil {
				return nil, fmt.Errorf("mutation %d (setKeys): %w", i, err)
			}
			patch, err := resolveSetKeys(obj, m)
			if err != nil {
				return nil, fmt.Errorf("mutation %d: %w", i, err)
			}
			r.patches = append(r.patches, patch)

		case MutRemove:
			if !s.bucket.Has(key) {
				return nil, fmt.Errorf("mutation %d: remove: %w", i, notFound("object", string(key)))
			}
			r.removes = append(r.removes, key)

		default:
			return nil, fmt.Errorf("mutation %d: unknown mutation kind %q", i, m.Type)
		}
	}
	return r, nil
}

func (s *Store) apply(r *resolved) error {
	for _, key := range r.removes {
		if err := s.bucket.RemoveObject(key); err != nil {
			return err
		}
	}
	if len(r.patches) > 0 {
		if err := s.bucket.SetRaw(r.patches); err != nil {
			return err
		}
	}
	return nil
}

// resolveListPatch computes the new value of each collection field named in
// an append/filter payload: concatenation for append, set-difference by value
// identity for filter.
func resolveListPatch(obj Object, m Mutation) (Raw, error) {
	cur := obj.base().Raw()
	patch := Raw{"key": string(obj.Key())}
	for field, v := range m.Payload {
		if field == "key" {
			continue
		}
		items, err := anyList(v)
		if err != nil {
			return nil, fmt.Errorf("%s %s.%s: %w", m.Type, obj.Key(), field, err)
		}
		existing, _ := anyList(cur[field])
		if m.Type == MutAppend {
			patch[field] = append(existing, items...)
			continue
		}
		kept := make([]any, 0, len(existing))
		for _, e := range existing {
			drop := false
			for _, item := range items {
				if reflect.DeepEqual(e, item) {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, e)
			}
		}
		patch[field] = kept
	}
	return patch, nil
}

// resolveSetKeys shallow-merges a keyed storage field. The live Storage value
// is unwrapped to its plain map form before merging.
func resolveSetKeys(obj Object, m Mutation) (Raw, error) {
	patch := Raw{"key": string(obj.Key())}
	for field, v := range m.Payload {
		if field == "key" {
			continue
		}
		incoming, err := asStorage(v)
		if err != nil {
			return nil, fmt.Errorf("setKeys %s.%s: %w", obj.Key(), field, err)
		}
		existing := obj.base().StorageOf(field)
		patch[field] = map[string]float64(existing.Merge(incoming))
	}
	return patch, nil
}

// anyList normalizes a collection value to []any for patch computation.
func anyList(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return append([]any(nil), t...), nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("want collection, got %T", v)
}
