package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Verify is the batch-reporting half of static-data validation, used by
// cmd/datacheck. Unlike Load it does not stop at the first problem: it walks
// every file and returns every violation it finds, so a data author can fix a
// whole batch in one round.
func Verify(dir string) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []error{fmt.Errorf("read data dir %s: %w", dir, err)}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	type located struct {
		file string
		t    *typeEntry
	}
	var allTypes []located
	typeKeys := make(map[string]string) // key → file of first definition
	catKeys := make(map[string]string)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			report("read %s: %v", path, err)
			continue
		}
		var f dataFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			report("parse %s: %v", path, err)
			continue
		}
		for i := range f.Types {
			t := &f.Types[i]
			if !wellFormedKey(t.Key) {
				report("%s: type key %q is not \"class:id\"", name, t.Key)
				continue
			}
			if prev, dup := typeKeys[t.Key]; dup {
				report("%s: duplicate type key %q (first defined in %s)", name, t.Key, prev)
				continue
			}
			typeKeys[t.Key] = name
			allTypes = append(allTypes, located{file: name, t: t})
		}
		for i := range f.Categories {
			c := &f.Categories[i]
			if !wellFormedKey(c.Key) {
				report("%s: category key %q is not \"class:id\"", name, c.Key)
				continue
			}
			if prev, dup := catKeys[c.Key]; dup {
				report("%s: duplicate category key %q (first defined in %s)", name, c.Key, prev)
				continue
			}
			catKeys[c.Key] = name
		}
	}

	// Cross-reference pass. Era Types count as categories (dual identity).
	catExists := func(key string) bool {
		if _, ok := catKeys[key]; ok {
			return true
		}
		if strings.HasPrefix(key, EraClass+":") {
			_, ok := typeKeys[key]
			return ok
		}
		return false
	}
	for _, lt := range allTypes {
		t := lt.t
		if t.Category != "" && !catExists(t.Category) {
			report("%s: type %q references unknown category %q", lt.file, t.Key, t.Category)
		}
		for _, y := range t.Yields {
			switch y.Method {
			case "lump", "percent", "set":
			default:
				report("%s: type %q yield has bad method %q", lt.file, t.Key, y.Method)
			}
			for _, ref := range append(append([]string{}, y.For...), y.Vs...) {
				if _, ok := typeKeys[ref]; !ok && !catExists(ref) {
					report("%s: type %q yield references unknown key %q", lt.file, t.Key, ref)
				}
			}
		}
		if groups, err := parseRequires(t.Requires); err != nil {
			report("%s: type %q: %v", lt.file, t.Key, err)
		} else {
			for _, g := range groups {
				for _, ref := range g {
					if _, ok := typeKeys[ref]; !ok {
						report("%s: type %q requires unknown type %q", lt.file, t.Key, ref)
					}
				}
			}
		}
		for _, rel := range [][]string{t.Allows, t.UpgradesFrom, t.UpgradesTo, t.Specials, t.RelatesTo} {
			for _, ref := range rel {
				if _, ok := typeKeys[ref]; !ok {
					report("%s: type %q relation references unknown type %q", lt.file, t.Key, ref)
				}
			}
		}
	}
	return errs
}

func wellFormedKey(key string) bool {
	i := strings.IndexByte(key, ':')
	return i > 0 && i < len(key)-1
}
