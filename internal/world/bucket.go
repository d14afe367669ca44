package world

import (
	"fmt"
	"sort"
	"time"

	"github.com/poh/server/internal/data"
)

// WorldState is the always-present singleton describing the match itself.
type WorldState struct {
	ID               string `json:"id"`
	Size             Size   `json:"size"`
	Turn             int    `json:"turn"`
	Year             int    `json:"year"`
	CurrentPlayerKey Key    `json:"currentPlayerKey"`
}

// Size is the map extent in tiles.
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bucket is the single source of truth: frozen static reference data, the
// live object graph with per-class indexes, the world singleton, and the RNG.
// A bucket is passed explicitly to everything that resolves entities; there
// is no package-level instance.
//
// Not goroutine safe. All mutation runs on the simulation goroutine;
// Simulation serializes entry (same discipline as a game-loop server).
type Bucket struct {
	registry *data.Registry
	schemas  Schemas
	loader   *Loader

	objects map[Key]Object
	byClass map[string]map[Key]Object

	world WorldState
	rng   *RNG

	journal *Journal // non-nil while a transaction is collecting pre-images
}

// NewBucket builds an empty bucket over a frozen registry and schema set.
func NewBucket(registry *data.Registry, schemas Schemas) *Bucket {
	b := &Bucket{
		registry: registry,
		schemas:  schemas,
		objects:  make(map[Key]Object),
		byClass:  make(map[string]map[Key]Object),
		rng:      NewRNG(time.Now().UnixNano()),
	}
	b.loader = &Loader{bucket: b}
	return b
}

// Registry exposes the static reference data.
func (b *Bucket) Registry() *data.Registry { return b.registry }

// RNG returns the bucket's serializable random source.
func (b *Bucket) RNG() *RNG { return b.rng }

// SetRNG replaces the random source, e.g. to seed a reproducible world.
func (b *Bucket) SetRNG(r *RNG) { b.rng = r }

// World returns the world singleton.
func (b *Bucket) World() WorldState { return b.world }

// SetWorld replaces the world singleton.
func (b *Bucket) SetWorld(w WorldState) {
	b.touchWorld()
	b.world = w
}

// ── static lookups (delegating to the frozen registry) ──

// Type returns a static Type or an error naming the missing key.
func (b *Bucket) Type(key string) (*data.Type, error) {
	return b.registry.Type(key)
}

// Category returns a static Category; era keys fall back to the Type index
// (eras double as technology categories, see data.Registry.Category).
func (b *Bucket) Category(key string) (*data.Category, error) {
	return b.registry.Category(key)
}

// ClassTypes returns all Types of a class; an unregistered class is an error.
func (b *Bucket) ClassTypes(class string) ([]*data.Type, error) {
	return b.registry.ClassTypes(class)
}

// CategoryTypes returns all Types of a category; unknown category is an error.
func (b *Bucket) CategoryTypes(category string) ([]*data.Type, error) {
	return b.registry.CategoryTypes(category)
}

// ClassCategories returns all Categories of a class.
func (b *Bucket) ClassCategories(class string) ([]*data.Category, error) {
	return b.registry.ClassCategories(class)
}

// ── live object graph ──

// Object returns the live entity for key, or a NotFoundError.
func (b *Bucket) Object(key Key) (Object, error) {
	o, ok := b.objects[key]
	if !ok {
		return nil, notFound("object", string(key))
	}
	return o, nil
}

// Has reports whether an object exists without the error ceremony.
func (b *Bucket) Has(key Key) bool {
	_, ok := b.objects[key]
	return ok
}

// Objects returns every live entity, sorted by key.
func (b *Bucket) Objects() []Object {
	out := make([]Object, 0, len(b.objects))
	for _, o := range b.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ClassObjects returns the entities of one class. Unlike the static lookups
// an unknown or empty class yields an empty map: entity classes legitimately
// have zero live instances.
func (b *Bucket) ClassObjects(class string) map[Key]Object {
	idx := b.byClass[class]
	out := make(map[Key]Object, len(idx))
	for k, o := range idx {
		out[k] = o
	}
	return out
}

// Count returns the number of live entities.
func (b *Bucket) Count() int { return len(b.objects) }

// SetObject inserts an entity and updates its class index.
func (b *Bucket) SetObject(o Object) error {
	key := o.Key()
	if err := key.Check(); err != nil {
		return err
	}
	b.touch(key)
	b.objects[key] = o
	class := key.Class()
	if b.byClass[class] == nil {
		b.byClass[class] = make(map[Key]Object)
	}
	b.byClass[class][key] = o
	return nil
}

// RemoveObject strips every outward relation the object holds from its
// related objects, then deletes it from the primary map and class index.
func (b *Bucket) RemoveObject(key Key) error {
	o, ok := b.objects[key]
	if !ok {
		return notFound("object", string(key))
	}
	b.touch(key)
	b.loader.RemoveRelations(o)
	delete(b.objects, key)
	if idx := b.byClass[key.Class()]; idx != nil {
		delete(idx, key)
	}
	return nil
}

// SetRaw is the bulk ingestion entry point. Incoming records are partitioned
// into updates (key already live) and creations, handed to the loader in one
// batch so forward references resolve, and finally each affected entity's
// lifecycle hook fires with exactly the fields its record carried.
func (b *Bucket) SetRaw(records []Raw) error {
	touched, err := b.loader.SetFromRaw(records)
	if err != nil {
		return err
	}
	for _, t := range touched {
		if t.created {
			t.obj.OnCreate(t.fields)
		} else {
			t.obj.OnUpdate(t.fields)
		}
	}
	return nil
}

// drop removes an entity from the maps without touching relations. Used by
// rollback, where the whole touched set is restored wholesale.
func (b *Bucket) drop(key Key) {
	delete(b.objects, key)
	if idx := b.byClass[key.Class()]; idx != nil {
		delete(idx, key)
	}
}

// touch records an object's pre-image into the active journal, once per key
// per transaction. Every mutating path calls it before changing anything.
func (b *Bucket) touch(key Key) {
	if b.journal == nil {
		return
	}
	b.journal.capture(b, key)
}

func (b *Bucket) touchWorld() {
	if b.journal == nil {
		return
	}
	b.journal.captureWorld(b)
}

// Verify walks every relation of every entity and reports the first
// reciprocal-consistency violation, if any. Debug/test aid.
func (b *Bucket) Verify() error {
	for _, o := range b.Objects() {
		base := o.base()
		for i := range base.schema.Fields {
			f := &base.schema.Fields[i]
			if f.Kind != FieldRelation || f.RecipAttr == "" {
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
				to, err := b.Object(tk)
				if err != nil {
					return fmt.Errorf("%s.%s: %w", o.Key(), f.Name, err)
				}
				tb := to.base()
				if f.RecipRel == RelOne {
					if got, ok := tb.Ref(f.RecipAttr); !ok || got != o.Key() {
						return fmt.Errorf("%s.%s=%s but %s.%s=%q", o.Key(), f.Name, tk, tk, f.RecipAttr, got)
					}
				} else if !tb.RefSet(f.RecipAttr).Has(o.Key()) {
					return fmt.Errorf("%s.%s=%s but %s.%s misses %s", o.Key(), f.Name, tk, tk, f.RecipAttr, o.Key())
				}
			}
		}
	}
	return nil
}
