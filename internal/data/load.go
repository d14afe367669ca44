package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// File format: any number of *.yaml files in one directory, each carrying a
// "types" list and/or a "categories" list. The files are emitted by the
// offline data compiler; the runtime loader fails fast on the first problem
// while cmd/datacheck reports all problems in one pass.

type typeEntry struct {
	Key          string             `yaml:"key"`
	Name         string             `yaml:"name"`
	Concept      string             `yaml:"concept"`
	Category     string             `yaml:"category"`
	Costs        map[string]float64 `yaml:"costs"`
	Yields       []yieldEntry       `yaml:"yields"`
	Requires     []any              `yaml:"requires"` // mixed flat / nested "any of"
	Allows       []string           `yaml:"allows"`
	UpgradesFrom []string           `yaml:"upgrades_from"`
	UpgradesTo   []string           `yaml:"upgrades_to"`
	Specials     []string           `yaml:"specials"`
	RelatesTo    []string           `yaml:"relates_to"`
}

type yieldEntry struct {
	Type   string   `yaml:"type"`
	Method string   `yaml:"method"`
	Amount float64  `yaml:"amount"`
	For    []string `yaml:"for"`
	Vs     []string `yaml:"vs"`
}

type categoryEntry struct {
	Key       string   `yaml:"key"`
	Name      string   `yaml:"name"`
	RelatesTo []string `yaml:"relates_to"`
}

type dataFile struct {
	Types      []typeEntry     `yaml:"types"`
	Categories []categoryEntry `yaml:"categories"`
}

// Load reads every *.yaml file in dir and builds a frozen Registry.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var types []*Type
	var cats []*Category
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var f dataFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		ts, cs, err := convertFile(&f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		types = append(types, ts...)
		cats = append(cats, cs...)
	}
	return NewRegistry(types, cats)
}

func convertFile(f *dataFile) ([]*Type, []*Category, error) {
	types := make([]*Type, 0, len(f.Types))
	for i := range f.Types {
		t, err := convertType(&f.Types[i])
		if err != nil {
			return nil, nil, err
		}
		types = append(types, t)
	}
	cats := make([]*Category, 0, len(f.Categories))
	for i := range f.Categories {
		c := &f.Categories[i]
		cats = append(cats, &Category{Key: c.Key, Name: c.Name, RelatesTo: c.RelatesTo})
	}
	return types, cats, nil
}

func convertType(e *typeEntry) (*Type, error) {
	req, err := parseRequires(e.Requires)
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", e.Key, err)
	}
	yields := make([]Yield, 0, len(e.Yields))
	for _, y := range e.Yields {
		switch y.Method {
		case "lump", "percent", "set":
		default:
			return nil, fmt.Errorf("type %q: bad yield method %q", e.Key, y.Method)
		}
		yields = append(yields, Yield{Type: y.Type, Method: y.Method, Amount: y.Amount, For: y.For, Vs: y.Vs})
	}
	return &Type{
		Key:          e.Key,
		Name:         e.Name,
		Concept:      e.Concept,
		Category:     e.Category,
		Costs:        e.Costs,
		Yields:       yields,
		Requires:     req,
		Allows:       e.Allows,
		UpgradesFrom: e.UpgradesFrom,
		UpgradesTo:   e.UpgradesTo,
		Specials:     e.Specials,
		RelatesTo:    e.RelatesTo,
	}, nil
}

// parseRequires converts the compiler's mixed requires expression: a flat
// string is a group of one, a nested array is an "any of" group.
func parseRequires(raw []any) ([]RequireGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	groups := make([]RequireGroup, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			groups = append(groups, RequireGroup{v})
		case []any:
			g := make(RequireGroup, 0, len(v))
			for _, alt := range v {
				s, ok := alt.(string)
				if !ok {
					return nil, fmt.Errorf("requires group holds non-string %v", alt)
				}
				g = append(g, s)
			}
			if len(g) == 0 {
				return nil, fmt.Errorf("empty requires group")
			}
			groups = append(groups, g)
		default:
			return nil, fmt.Errorf("requires entry %v is neither key nor group", item)
		}
	}
	return groups, nil
}
