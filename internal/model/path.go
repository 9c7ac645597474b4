package model

import (
	"fmt"
	"strings"
)

// Path addresses a field inside a document by the section instance that owns
// it and the field definition id. The string form is "<group>.<field>".
type Path struct {
	GroupID string
	FieldID string
}

// NewPath constructs a Path from its parts.
func NewPath(groupID, fieldID string) Path {
	return Path{GroupID: strings.TrimSpace(groupID), FieldID: strings.TrimSpace(fieldID)}
}

// ParsePath splits a dotted "<group>.<field>" path. Group ids never contain
// dots, so everything after the first dot is the field id.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	group, field, ok := strings.Cut(trimmed, ".")
	if !ok || strings.TrimSpace(group) == "" || strings.TrimSpace(field) == "" {
		return Path{}, fmt.Errorf("model: invalid field path %q", raw)
	}
	return NewPath(group, field), nil
}

// String renders the dotted form.
func (p Path) String() string {
	if p.GroupID == "" {
		return p.FieldID
	}
	return p.GroupID + "." + p.FieldID
}

// IsZero reports whether the path is empty.
func (p Path) IsZero() bool {
	return p.GroupID == "" && p.FieldID == ""
}
