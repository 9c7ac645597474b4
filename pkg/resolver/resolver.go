// Package resolver propagates a field change to the fields that depend on it.
//
// A Resolver never touches the live document. It receives a Change carrying a
// private snapshot, may consult the catalog, and returns a Patch that the
// owning session applies only if the trigger is still the latest one for its
// field (see Tracker).
package resolver

import (
	"context"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// Change describes one field edit.
type Change struct {
	Path     model.Path
	Value    any
	Previous any
	// Document is a snapshot taken after the edit was applied. Resolvers may
	// read it freely; it is never shared with the live document.
	Document *model.Document
	Catalog  catalog.Catalog
}

// Section returns the snapshot instance that owns the changed field.
func (c Change) Section() (*model.Section, bool) {
	if c.Document == nil {
		return nil, false
	}
	return c.Document.Section(c.Path.GroupID)
}

// Resolver recomputes dependents of a changed field.
type Resolver interface {
	Resolve(ctx context.Context, change Change) (Patch, error)
}

// Func adapts a function into a Resolver.
type Func func(ctx context.Context, change Change) (Patch, error)

// Resolve delegates to the underlying function.
func (fn Func) Resolve(ctx context.Context, change Change) (Patch, error) {
	return fn(ctx, change)
}

// Table maps a triggering field id to its resolver.
type Table map[string]Resolver

// For returns the resolver registered for fieldID.
func (t Table) For(fieldID string) (Resolver, bool) {
	if t == nil {
		return nil, false
	}
	r, ok := t[fieldID]
	return r, ok && r != nil
}

// Chain runs resolvers in order and concatenates their patches. The first
// error aborts the chain and no patch is returned.
func Chain(resolvers ...Resolver) Resolver {
	return Func(func(ctx context.Context, change Change) (Patch, error) {
		var out Patch
		for _, r := range resolvers {
			if r == nil {
				continue
			}
			p, err := r.Resolve(ctx, change)
			if err != nil {
				return nil, err
			}
			out = append(out, p...)
		}
		return out, nil
	})
}
