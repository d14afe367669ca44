package data

import (
	"fmt"
	"sort"
	"strings"
)

// Yield is one yield modifier carried by a Type: "+2 food", "+10% production
// for granaries", "set science to 0 vs rival cities", and so on.
type Yield struct {
	Type   string   // yield kind: food, production, gold, science, culture, faith
	Method string   // "lump", "percent" or "set"
	Amount float64
	For    []string // type/category keys the modifier applies to (empty = owner)
	Vs     []string // type/category keys the modifier applies against
}

// RequireGroup is one "any of" group inside a requires expression. A flat
// entry in the source data becomes a group of one.
type RequireGroup []string

// Type is an immutable static definition: a building kind, a technology, a
// policy, a terrain, an era. Identified by a composite key "{class}:{id}".
// Types are produced by the offline data compiler and never mutated at runtime.
type Type struct {
	Key      string
	Class    string
	Name     string
	Concept  string
	Category string // category key, may be empty
	Costs    map[string]float64
	Yields   []Yield
	Requires []RequireGroup

	// Relation arrays, back-computed by the offline compiler. The runtime
	// only reads them, it never regenerates them.
	Allows       []string
	UpgradesFrom []string
	UpgradesTo   []string
	Specials     []string
	RelatesTo    []string
}

// Category groups Types and carries a back-computed relatesTo list.
type Category struct {
	Key       string
	Class     string
	Name      string
	RelatesTo []string
}

// EraClass is the class whose Types double as technology categories. A key
// like "era:classic" resolves through Registry.Category even though eras live
// in the Type index; see Registry.Category.
const EraClass = "era"

// Registry holds all Types and Categories, frozen after construction and
// indexed by key, by class and by category.
type Registry struct {
	types       map[string]*Type
	cats        map[string]*Category
	byClass     map[string][]*Type
	byCategory  map[string][]*Type
	catsByClass map[string][]*Category
	eraCats     map[string]*Category // synthesized Category views of era Types
}

// NewRegistry builds and freezes a registry from already-parsed definitions.
// It fails fast on the first duplicate key or malformed key; exhaustive
// cross-reference checking belongs to cmd/datacheck.
func NewRegistry(types []*Type, cats []*Category) (*Registry, error) {
	r := &Registry{
		types:       make(map[string]*Type, len(types)),
		cats:        make(map[string]*Category, len(cats)),
		byClass:     make(map[string][]*Type),
		byCategory:  make(map[string][]*Type),
		catsByClass: make(map[string][]*Category),
		eraCats:     make(map[string]*Category),
	}
	for _, t := range types {
		class, err := classOf(t.Key)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", t.Key, err)
		}
		if _, dup := r.types[t.Key]; dup {
			return nil, fmt.Errorf("duplicate type key %q", t.Key)
		}
		t.Class = class
		r.types[t.Key] = t
		r.byClass[class] = append(r.byClass[class], t)
		if t.Category != "" {
			r.byCategory[t.Category] = append(r.byCategory[t.Category], t)
		}
	}
	for _, c := range cats {
		class, err := classOf(c.Key)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Key, err)
		}
		if _, dup := r.cats[c.Key]; dup {
			return nil, fmt.Errorf("duplicate category key %q", c.Key)
		}
		c.Class = class
		r.cats[c.Key] = c
		r.catsByClass[class] = append(r.catsByClass[class], c)
	}
	for _, byKey := range []map[string][]*Type{r.byClass, r.byCategory} {
		for _, ts := range byKey {
			sort.Slice(ts, func(i, j int) bool { return ts[i].Key < ts[j].Key })
		}
	}
	for _, cs := range r.catsByClass {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Key < cs[j].Key })
	}
	return r, nil
}

// Type returns the Type for key, or an error naming the missing key.
func (r *Registry) Type(key string) (*Type, error) {
	t, ok := r.types[key]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", key)
	}
	return t, nil
}

// Category returns the Category for key. Era keys are the documented
// exception: an era is a Type but serves as a technology category, so an
// "era:"-prefixed key falls back to the Type index and is exposed through a
// synthesized, cached Category view.
func (r *Registry) Category(key string) (*Category, error) {
	if c, ok := r.cats[key]; ok {
		return c, nil
	}
	if strings.HasPrefix(key, EraClass+":") {
		if c, ok := r.eraCats[key]; ok {
			return c, nil
		}
		if t, ok := r.types[key]; ok {
			c := &Category{Key: t.Key, Class: t.Class, Name: t.Name, RelatesTo: t.RelatesTo}
			r.eraCats[key] = c
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown category %q", key)
}

// ClassTypes returns every Type of the given class. An unregistered class is
// an error: "no such class" and "class with zero types" are different bugs.
func (r *Registry) ClassTypes(class string) ([]*Type, error) {
	ts, ok := r.byClass[class]
	if !ok {
		return nil, fmt.Errorf("unknown type class %q", class)
	}
	return ts, nil
}

// CategoryTypes returns every Type in the given category.
func (r *Registry) CategoryTypes(category string) ([]*Type, error) {
	ts, ok := r.byCategory[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q in type index", category)
	}
	return ts, nil
}

// ClassCategories returns every Category of the given class.
func (r *Registry) ClassCategories(class string) ([]*Category, error) {
	cs, ok := r.catsByClass[class]
	if !ok {
		return nil, fmt.Errorf("unknown category class %q", class)
	}
	return cs, nil
}

// TypeCount returns the total number of loaded Types.
func (r *Registry) TypeCount() int { return len(r.types) }

// CategoryCount returns the total number of loaded Categories.
func (r *Registry) CategoryCount() int { return len(r.cats) }

func classOf(key string) (string, error) {
	i := strings.IndexByte(key, ':')
	if i <= 0 || i == len(key)-1 {
		return "", fmt.Errorf("malformed key, want \"class:id\"")
	}
	return key[:i], nil
}
