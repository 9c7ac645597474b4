package catalog

import (
	"sort"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Normalize folds the parameter values for case- and whitespace-insensitive
// comparisons, as existence checks use.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Normalized returns a copy with every value normalised and empty values
// dropped.
func (p Params) Normalized() Params {
	out := make(Params, len(p))
	for key, values := range p {
		var clean []string
		for _, v := range values {
			if n := Normalize(v); n != "" {
				clean = append(clean, n)
			}
		}
		out[strings.TrimSpace(key)] = clean
	}
	return out
}

// Expand splits multi-valued parameters into single-valued parameter sets
// (cartesian product, keys in sorted order). A lookup for divisions [A, B]
// becomes two lookups, one per division.
func (p Params) Expand() []Params {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []Params{{}}
	for _, key := range keys {
		values := p[key]
		if len(values) == 0 {
			continue
		}
		next := make([]Params, 0, len(out)*len(values))
		for _, base := range out {
			for _, v := range values {
				combo := make(Params, len(base)+1)
				for bk, bv := range base {
					combo[bk] = bv
				}
				combo[key] = []string{v}
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}

// Binding maps lookup parameter names to the field ids supplying their values.
type Binding map[string]string

// Params reads the bound fields from the section identified by groupID,
// falling back to the canonical instance of any section defining the field.
// Empty responses are omitted.
func (b Binding) Params(doc *model.Document, groupID string) Params {
	out := Params{}
	for param, fieldID := range b {
		values := model.StringValues(lookupField(doc, groupID, fieldID))
		if len(values) == 0 {
			continue
		}
		out[param] = values
	}
	return out
}

func lookupField(doc *model.Document, groupID, fieldID string) any {
	if doc == nil {
		return nil
	}
	if sec, ok := doc.Section(groupID); ok {
		if f, ok := sec.Field(fieldID); ok {
			return f.Response
		}
	}
	for i := range doc.Sections {
		if !doc.IsCanonical(i) {
			continue
		}
		if f, ok := doc.Sections[i].Field(fieldID); ok {
			return f.Response
		}
	}
	return nil
}
