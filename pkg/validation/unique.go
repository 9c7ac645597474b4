package validation

import (
	"context"
	"fmt"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// UniqueValues flags every instance of sectionID whose fieldID value matches,
// after trimming and case folding, the value of an earlier instance. The
// earlier instance is left alone.
func UniqueValues(doc *model.Document, sectionID, fieldID, message string) Issues {
	if message == "" {
		message = "This value is already used in another section"
	}
	seen := make(map[string]string)
	var out Issues
	for _, idx := range doc.Instances(sectionID) {
		sec := &doc.Sections[idx]
		f, ok := sec.Field(fieldID)
		if !ok {
			continue
		}
		key := catalog.Normalize(model.StringValue(f.Response))
		if key == "" {
			continue
		}
		path := model.NewPath(sec.DuplicateGroupID, fieldID)
		if first, dup := seen[key]; dup {
			out = append(out, IssueAt(path, CodeUniqueness, message, map[string]any{"duplicateOf": first}))
			continue
		}
		seen[key] = path.String()
	}
	return out
}

// CollisionCheck asks the catalog whether any instance of SectionID would
// collide with an existing entry. Only the first colliding instance is
// flagged, at FieldID.
type CollisionCheck struct {
	Kind      string
	SectionID string
	FieldID   string
	Binding   catalog.Binding
	Message   string
}

// Run executes the check. Instances whose bound fields are all empty are
// skipped without a catalog call.
func (c CollisionCheck) Run(ctx context.Context, cat catalog.Catalog, doc *model.Document) (Issues, error) {
	message := c.Message
	if message == "" {
		message = "An entry with these values already exists"
	}
	for _, idx := range doc.Instances(c.SectionID) {
		groupID := doc.Sections[idx].DuplicateGroupID
		params := c.Binding.Params(doc, groupID)
		if len(params) == 0 {
			continue
		}
		exists, err := cat.CheckExists(ctx, c.Kind, params)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDependencyUnavailable, c.Kind, err)
		}
		if exists {
			return Issues{IssueAt(model.NewPath(groupID, c.FieldID), CodeConflict, message, map[string]any{"kind": c.Kind})}, nil
		}
	}
	return nil, nil
}

// UniqueCheck adapts UniqueValues to the pre-submit check shape.
type UniqueCheck struct {
	SectionID string
	FieldID   string
	Message   string
}

// Run implements the pre-submit check contract. It never calls the catalog.
func (u UniqueCheck) Run(_ context.Context, _ catalog.Catalog, doc *model.Document) (Issues, error) {
	return UniqueValues(doc, u.SectionID, u.FieldID, u.Message), nil
}
