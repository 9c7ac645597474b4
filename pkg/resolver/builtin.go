package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// ErrNoCatalog is returned by lookup resolvers invoked without a catalog.
var ErrNoCatalog = errors.New("resolver: catalog not configured")

// DependentOptions loads the options of Target from the catalog whenever the
// trigger changes. Target is rewritten in the trigger's own section when it
// defines the field, otherwise in every later section that does.
type DependentOptions struct {
	Kind    string
	Binding catalog.Binding
	Target  string
	// Resets lists further fields that are cleared whenever the trigger
	// changes, such as value lists below the target.
	Resets []string
	// Unlock clears the target's read-only flag once options are available.
	Unlock bool
	// KeepValid keeps the current target response when it is still one of
	// the new options.
	KeepValid bool
}

// Resolve implements Resolver.
func (d DependentOptions) Resolve(ctx context.Context, change Change) (Patch, error) {
	targets := scopedPaths(change.Document, change.Path.GroupID, d.Target)
	var patch Patch
	for _, fieldID := range d.Resets {
		for _, path := range scopedPaths(change.Document, change.Path.GroupID, fieldID) {
			patch = patch.ClearResponse(path).ResetReadOnly(path)
		}
	}

	if model.IsEmpty(change.Value) {
		for _, path := range targets {
			patch = patch.Reset(path)
		}
		return patch, nil
	}
	if len(targets) == 0 {
		return patch, nil
	}
	if change.Catalog == nil {
		return nil, ErrNoCatalog
	}

	params := d.Binding.Params(change.Document, change.Path.GroupID)
	options, err := change.Catalog.LookupOptions(ctx, d.Kind, params)
	if err != nil {
		return nil, fmt.Errorf("resolver: %s options: %w", d.Kind, err)
	}

	for _, path := range targets {
		patch = patch.SetOptions(path, options)
		if !d.KeepValid || !allIn(change.Document, path, options) {
			patch = patch.ClearResponse(path)
		}
		if d.Unlock {
			patch = patch.SetReadOnly(path, len(options) == 0)
		}
	}
	return patch, nil
}

// UnitBroadcast looks up the canonical unit for the trigger value and writes
// it into Target in the trigger's section and every later instance of the
// same template, overwriting. Earlier instances are never touched.
type UnitBroadcast struct {
	Kind    string
	Binding catalog.Binding
	Target  string
}

// Resolve implements Resolver.
func (u UnitBroadcast) Resolve(ctx context.Context, change Change) (Patch, error) {
	targets := forwardPaths(change.Document, change.Path.GroupID, u.Target)
	var patch Patch
	if model.IsEmpty(change.Value) {
		for _, path := range targets {
			patch = patch.ClearResponse(path)
		}
		return patch, nil
	}
	if len(targets) == 0 {
		return nil, nil
	}
	if change.Catalog == nil {
		return nil, ErrNoCatalog
	}

	options, err := change.Catalog.LookupOptions(ctx, u.Kind, u.Binding.Params(change.Document, change.Path.GroupID))
	if err != nil {
		return nil, fmt.Errorf("resolver: %s lookup: %w", u.Kind, err)
	}
	for _, path := range targets {
		if len(options) == 0 {
			patch = patch.ClearResponse(path)
			continue
		}
		patch = patch.SetOptions(path, options[:1]).SetResponse(path, options[0].Value)
	}
	return patch, nil
}

// MutuallyExclusive forces the other flag false whenever one of the two
// boolean fields becomes true within a section. Register it under both ids.
func MutuallyExclusive(a, b string) Resolver {
	return Func(func(_ context.Context, change Change) (Patch, error) {
		if on, _ := change.Value.(bool); !on {
			return nil, nil
		}
		other := ""
		switch change.Path.FieldID {
		case a:
			other = b
		case b:
			other = a
		default:
			return nil, nil
		}
		sec, ok := change.Section()
		if !ok {
			return nil, nil
		}
		if _, ok := sec.Field(other); !ok {
			return nil, nil
		}
		return Patch{}.SetResponse(model.NewPath(change.Path.GroupID, other), false), nil
	})
}

// Propagate copies the trigger value into the same field of every later
// instance of the trigger's template.
func Propagate() Resolver {
	return Func(func(_ context.Context, change Change) (Patch, error) {
		var patch Patch
		for _, path := range forwardPaths(change.Document, change.Path.GroupID, change.Path.FieldID) {
			if path == change.Path {
				continue
			}
			if model.IsEmpty(change.Value) {
				patch = patch.ClearResponse(path)
				continue
			}
			patch = patch.SetResponse(path, change.Value)
		}
		return patch, nil
	})
}

// scopedPaths resolves fieldID in the trigger's section when defined there,
// otherwise in every later section defining it.
func scopedPaths(doc *model.Document, groupID, fieldID string) []model.Path {
	if doc == nil || fieldID == "" {
		return nil
	}
	if sec, ok := doc.Section(groupID); ok {
		if _, ok := sec.Field(fieldID); ok {
			return []model.Path{model.NewPath(groupID, fieldID)}
		}
	}
	start := doc.SectionIndex(groupID)
	if start < 0 {
		return nil
	}
	var out []model.Path
	for i := start + 1; i < len(doc.Sections); i++ {
		if _, ok := doc.Sections[i].Field(fieldID); ok {
			out = append(out, model.NewPath(doc.Sections[i].DuplicateGroupID, fieldID))
		}
	}
	return out
}

// forwardPaths resolves fieldID in the trigger's section and every later
// instance of the same template.
func forwardPaths(doc *model.Document, groupID, fieldID string) []model.Path {
	if doc == nil || fieldID == "" {
		return nil
	}
	start := doc.SectionIndex(groupID)
	if start < 0 {
		return nil
	}
	sectionID := doc.Sections[start].SectionID
	var out []model.Path
	for _, idx := range doc.Instances(sectionID) {
		if idx < start {
			continue
		}
		sec := &doc.Sections[idx]
		if _, ok := sec.Field(fieldID); ok {
			out = append(out, model.NewPath(sec.DuplicateGroupID, fieldID))
		}
	}
	return out
}

func allIn(doc *model.Document, path model.Path, options []model.Option) bool {
	current, ok := doc.Get(path)
	if !ok {
		return false
	}
	values := model.StringValues(current)
	if len(values) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(options))
	for _, opt := range options {
		allowed[opt.Value] = struct{}{}
	}
	for _, v := range values {
		if _, ok := allowed[v]; !ok {
			return false
		}
	}
	return true
}
