package templates

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/variant"
)

// Category is a parsed category template. Sections carry no group ids; each
// instantiation assigns fresh ones.
type Category struct {
	Name     string
	Title    string
	Summary  string
	Source   string
	Sections []model.Section
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the group id generator used on instantiation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store holds parsed category templates and implements catalog.Templates.
// It is read-only after loading and safe for concurrent use.
type Store struct {
	categories map[string]Category
	newID      func() string
}

func newStore(options ...Option) *Store {
	s := &Store{
		categories: make(map[string]Category),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Category returns the template registered for name (normalised).
func (s *Store) Category(name string) (Category, bool) {
	if s == nil {
		return Category{}, false
	}
	cat, ok := s.categories[variant.Normalize(name)]
	return cat, ok
}

// List returns the sorted category names.
func (s *Store) List() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.categories))
	for name := range s.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the store holds any categories.
func (s *Store) Empty() bool {
	return s == nil || len(s.categories) == 0
}

// SummaryFor returns the summary template of a category, if any.
func (s *Store) SummaryFor(category string) string {
	cat, _ := s.Category(category)
	return cat.Summary
}

// FetchTemplate implements catalog.Templates. Every section instance gets a
// fresh group id and Prefill values are written into the canonical sections
// by field id.
func (s *Store) FetchTemplate(ctx context.Context, category string, tc catalog.TemplateContext) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	cat, ok := s.Category(category)
	if !ok {
		return model.Document{}, fmt.Errorf("templates: category %q: %w", category, catalog.ErrNotFound)
	}

	doc := model.Document{Category: cat.Name}
	for _, tmpl := range cat.Sections {
		section := tmpl.Clone()
		section.DuplicateGroupID = s.newID()
		for i := range section.Fields {
			if value, ok := tc.Prefill[section.Fields[i].FieldID]; ok {
				section.Fields[i].Response = model.CloneValue(value)
			}
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}
