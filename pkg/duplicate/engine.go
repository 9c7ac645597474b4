// Package duplicate inserts and removes instances of duplicatable sections.
package duplicate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-ticketform/pkg/model"
)

var (
	// ErrCanonicalSection is returned when Remove targets the first instance
	// of a template. Only duplicates can be removed.
	ErrCanonicalSection = errors.New("duplicate: canonical section cannot be removed")
	// ErrNotDuplicatable is returned when Duplicate targets a template that
	// is not marked duplicatable.
	ErrNotDuplicatable = errors.New("duplicate: section is not duplicatable")
)

// IDGenerator produces duplicate group identifiers.
type IDGenerator func() string

// Option configures the Engine.
type Option func(*Engine)

// WithIDGenerator overrides the uuid-based group id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// Engine performs duplicate/remove commands against a document.
type Engine struct {
	newID IDGenerator
}

// New constructs an Engine.
func New(options ...Option) *Engine {
	e := &Engine{newID: NewGroupID}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// NewGroupID returns a fresh random duplicate group id.
func NewGroupID() string {
	return uuid.New().String()
}

// Duplicate copies the last instance of sectionID and inserts the copy right
// after it. Responses are cleared except for the carry-over field ids, which
// keep the source instance's values. It returns the new group id, or "" when
// no instance matches (stale command).
func (e *Engine) Duplicate(doc *model.Document, sectionID string, carryOver []string) (string, error) {
	if doc == nil {
		return "", nil
	}
	idx := doc.LastIndexOf(sectionID)
	if idx < 0 {
		return "", nil
	}
	source := doc.Sections[idx]
	if !source.Duplicatable {
		return "", fmt.Errorf("%w: %s", ErrNotDuplicatable, sectionID)
	}

	keep := make(map[string]struct{}, len(carryOver))
	for _, id := range carryOver {
		keep[id] = struct{}{}
	}

	copySection := source.Clone()
	copySection.DuplicateGroupID = e.uniqueID(doc)
	for i := range copySection.Fields {
		field := &copySection.Fields[i]
		if _, ok := keep[field.FieldID]; ok {
			continue
		}
		field.Response = model.EmptyValue(*field)
	}

	if err := doc.InsertSection(idx+1, copySection); err != nil {
		return "", fmt.Errorf("duplicate: insert section: %w", err)
	}
	return copySection.DuplicateGroupID, nil
}

// Remove deletes the duplicate identified by groupID. Unknown ids are a
// no-op and report false; the canonical instance is refused.
func (e *Engine) Remove(doc *model.Document, groupID string) (bool, error) {
	if doc == nil {
		return false, nil
	}
	idx := doc.SectionIndex(groupID)
	if idx < 0 {
		return false, nil
	}
	if doc.IsCanonical(idx) {
		return false, fmt.Errorf("%w: %s", ErrCanonicalSection, groupID)
	}
	if _, err := doc.RemoveSection(idx); err != nil {
		return false, fmt.Errorf("duplicate: remove section: %w", err)
	}
	return true, nil
}

func (e *Engine) uniqueID(doc *model.Document) string {
	for attempt := 0; ; attempt++ {
		gen := e.newID
		if attempt >= 8 {
			gen = NewGroupID
		}
		if id := gen(); id != "" && doc.SectionIndex(id) < 0 {
			return id
		}
	}
}
