package world

import "fmt"

// FieldKind tags what a schema field holds. The kinds form a closed union;
// the loader branches on the tag and nothing else.
type FieldKind int

const (
	// FieldPlain is an ordinary value: number, string, bool, list or map.
	FieldPlain FieldKind = iota
	// FieldTypeRef is a single static-Type reference, stored in raw records
	// as a type key and resolved against the registry at load time.
	FieldTypeRef
	// FieldTypeRefList is a list of static-Type references.
	FieldTypeRefList
	// FieldRelation is a reference to one or many live objects, with an
	// automatically maintained reciprocal on the related class.
	FieldRelation
	// FieldStorage is a keyed numeric storage map (resource stockpiles),
	// the target of setKeys mutations.
	FieldStorage
)

// RelKind is the shape of one side of a relation. Both sides are declared
// explicitly in the schema; the linker never inspects a live object to
// discover whether the reciprocal is scalar or a set.
type RelKind int

const (
	RelNone RelKind = iota
	// RelOne: this side stores a single key.
	RelOne
	// RelMany: this side stores a key set.
	RelMany
)

// FieldSpec describes one attribute of an object class, in declaration order.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Optional bool

	// Relation metadata, meaningful only when Kind == FieldRelation.
	Rel       RelKind
	RecipAttr string  // reciprocal attribute name on the related class; "" = one-way
	RecipRel  RelKind // shape of the reciprocal side
}

// Schema is the typed attribute configuration of one object class.
type Schema struct {
	Class  string
	Fields []FieldSpec
	New    func(key Key) Object

	byName map[string]*FieldSpec
}

// Field returns the spec for an attribute name, or nil.
func (s *Schema) Field(name string) *FieldSpec {
	return s.byName[name]
}

func (s *Schema) index() {
	s.byName = make(map[string]*FieldSpec, len(s.Fields))
	for i := range s.Fields {
		s.byName[s.Fields[i].Name] = &s.Fields[i]
	}
}

// Schemas maps object class → schema for one game ruleset. It is built once
// and passed to the bucket explicitly; there is no global schema table.
type Schemas map[string]*Schema

// NewSchemas indexes and sanity-checks a schema collection: every relation
// must name a valid shape, and a declared reciprocal must exist somewhere in
// the collection with a matching shape declaration.
func NewSchemas(list ...*Schema) (Schemas, error) {
	ss := make(Schemas, len(list))
	for _, s := range list {
		if _, dup := ss[s.Class]; dup {
			return nil, fmt.Errorf("duplicate schema for class %q", s.Class)
		}
		s.index()
		ss[s.Class] = s
	}
	for _, s := range ss {
		for i := range s.Fields {
			f := &s.Fields[i]
			if f.Kind != FieldRelation {
				continue
			}
			if f.Rel == RelNone {
				return nil, fmt.Errorf("%s.%s: relation without a shape", s.Class, f.Name)
			}
			if f.RecipAttr == "" {
				continue
			}
			if f.RecipRel == RelNone {
				return nil, fmt.Errorf("%s.%s: reciprocal %q without a shape", s.Class, f.Name, f.RecipAttr)
			}
			// The reciprocal must be declared as a relation of the stated
			// shape on at least one class. Relations are class-typed by
			// convention, not enforced per-class, since e.g. "tile" fields
			// appear on several classes.
			found := false
			for _, other := range ss {
				if rf := other.Field(f.RecipAttr); rf != nil && rf.Kind == FieldRelation && rf.Rel == f.RecipRel {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%s.%s: no class declares reciprocal %q with shape %v",
					s.Class, f.Name, f.RecipAttr, f.RecipRel)
			}
		}
	}
	return ss, nil
}

// Get returns the schema for a class, or an error naming the class.
func (ss Schemas) Get(class string) (*Schema, error) {
	s, ok := ss[class]
	if !ok {
		return nil, notFound("object class", class)
	}
	return s, nil
}
