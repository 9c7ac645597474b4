package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrFieldNotFound is returned when a path does not resolve to a field.
	ErrFieldNotFound = errors.New("model: field not found")
	// ErrIndexOutOfRange is returned by the structural section operations.
	ErrIndexOutOfRange = errors.New("model: section index out of range")
)

// SectionIndex returns the position of the instance with the given group id,
// or -1.
func (d *Document) SectionIndex(groupID string) int {
	if d == nil || groupID == "" {
		return -1
	}
	for idx := range d.Sections {
		if d.Sections[idx].DuplicateGroupID == groupID {
			return idx
		}
	}
	return -1
}

// FirstIndexOf returns the position of the canonical instance of a template.
func (d *Document) FirstIndexOf(sectionID string) int {
	if d == nil {
		return -1
	}
	for idx := range d.Sections {
		if d.Sections[idx].SectionID == sectionID {
			return idx
		}
	}
	return -1
}

// LastIndexOf returns the position of the last instance of a template.
func (d *Document) LastIndexOf(sectionID string) int {
	if d == nil {
		return -1
	}
	for idx := len(d.Sections) - 1; idx >= 0; idx-- {
		if d.Sections[idx].SectionID == sectionID {
			return idx
		}
	}
	return -1
}

// IsCanonical reports whether the section at index is the first instance of
// its template.
func (d *Document) IsCanonical(index int) bool {
	if d == nil || index < 0 || index >= len(d.Sections) {
		return false
	}
	return d.FirstIndexOf(d.Sections[index].SectionID) == index
}

// Instances returns the indices of every instance of a template, in order.
func (d *Document) Instances(sectionID string) []int {
	if d == nil {
		return nil
	}
	var out []int
	for idx := range d.Sections {
		if d.Sections[idx].SectionID == sectionID {
			out = append(out, idx)
		}
	}
	return out
}

// Section returns the instance with the given group id.
func (d *Document) Section(groupID string) (*Section, bool) {
	idx := d.SectionIndex(groupID)
	if idx < 0 {
		return nil, false
	}
	return &d.Sections[idx], true
}

// Field resolves a path to a pointer into the document. The pointer is only
// valid until the next structural change.
func (d *Document) Field(path Path) (*Field, bool) {
	section, ok := d.Section(path.GroupID)
	if !ok {
		return nil, false
	}
	return section.Field(path.FieldID)
}

// Get returns the response stored at path.
func (d *Document) Get(path Path) (any, bool) {
	field, ok := d.Field(path)
	if !ok {
		return nil, false
	}
	return field.Response, true
}

// Set stores a response at path.
func (d *Document) Set(path Path, value any) error {
	field, ok := d.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	field.Response = value
	return nil
}

// SetOptions replaces the option list of the field at path.
func (d *Document) SetOptions(path Path, options []Option) error {
	field, ok := d.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	field.Options = cloneOptions(options)
	return nil
}

// SetReadOnly toggles the read-only flag of the field at path.
func (d *Document) SetReadOnly(path Path, readOnly bool) error {
	field, ok := d.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	field.ReadOnly = readOnly
	return nil
}

// InsertSection places section at index, shifting later sections right.
// Inserting at len(Sections) appends.
func (d *Document) InsertSection(index int, section Section) error {
	if index < 0 || index > len(d.Sections) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	d.Sections = append(d.Sections, Section{})
	copy(d.Sections[index+1:], d.Sections[index:])
	d.Sections[index] = section
	return nil
}

// RemoveSection deletes the section at index and returns it.
func (d *Document) RemoveSection(index int) (Section, error) {
	if index < 0 || index >= len(d.Sections) {
		return Section{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	removed := d.Sections[index]
	d.Sections = append(d.Sections[:index], d.Sections[index+1:]...)
	return removed, nil
}

// Paths lists every field path in document order.
func (d *Document) Paths() []Path {
	if d == nil {
		return nil
	}
	var out []Path
	for _, section := range d.Sections {
		for _, field := range section.Fields {
			out = append(out, NewPath(section.DuplicateGroupID, field.FieldID))
		}
	}
	return out
}

// Field returns the field with the given definition id.
func (s *Section) Field(fieldID string) (*Field, bool) {
	if s == nil {
		return nil, false
	}
	for idx := range s.Fields {
		if s.Fields[idx].FieldID == fieldID {
			return &s.Fields[idx], true
		}
	}
	return nil, false
}

// FieldIndex returns the position of a field within the section, or -1.
func (s *Section) FieldIndex(fieldID string) int {
	if s == nil {
		return -1
	}
	for idx := range s.Fields {
		if s.Fields[idx].FieldID == fieldID {
			return idx
		}
	}
	return -1
}

// Values maps field ids to responses for the section.
func (s Section) Values() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		out[field.FieldID] = field.Response
	}
	return out
}

// EmptyValue is the cleared response for a field.
func EmptyValue(Field) any {
	return nil
}

// IsEmpty reports whether a response counts as unanswered. Whitespace-only
// strings and empty lists are empty; false booleans are answers.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map:
			return rv.Len() == 0
		case reflect.Pointer, reflect.Interface:
			return rv.IsNil()
		}
		return false
	}
}

// StringValues flattens a scalar or list response into strings.
func StringValues(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{typed}
	case []string:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if strings.TrimSpace(item) != "" {
				out = append(out, item)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item == nil {
				continue
			}
			if str := fmt.Sprint(item); strings.TrimSpace(str) != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(typed)}
	}
}

// StringValue returns the first string form of a response, or "".
func StringValue(value any) string {
	values := StringValues(value)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
