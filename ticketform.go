// Package ticketform composes category templates, variant behaviour and a
// catalog backend into authoring sessions. It is the simplest entry point for
// callers that do not need to assemble the packages under pkg/ themselves.
package ticketform

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/session"
	"github.com/goliatone/go-ticketform/pkg/submission"
	"github.com/goliatone/go-ticketform/pkg/templates"
	"github.com/goliatone/go-ticketform/pkg/validation"
	"github.com/goliatone/go-ticketform/pkg/variant"
)

// Document aliases model.Document for callers of the root package.
type Document = model.Document

// Path aliases model.Path.
type Path = model.Path

// TemplateContext aliases catalog.TemplateContext.
type TemplateContext = catalog.TemplateContext

// Session aliases session.Session.
type Session = session.Session

// Option configures an Engine.
type Option func(*Engine)

// WithTemplateFS loads category templates from fsys instead of the embedded
// defaults.
func WithTemplateFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.templateFS = fsys
	}
}

// WithTemplateStore uses an already loaded template store.
func WithTemplateStore(store *templates.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.templates = store
		}
	}
}

// WithTickets sets the persistence backend (default: in-memory).
func WithTickets(t catalog.Tickets) Option {
	return func(e *Engine) {
		if t != nil {
			e.tickets = t
		}
	}
}

// WithCatalog sets the lookup backend (default: in-memory).
func WithCatalog(c catalog.Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithVariants replaces the built-in variant registry.
func WithVariants(reg *variant.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.variants = reg
		}
	}
}

// WithLogger sets the structured logger shared by every session.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine holds the long-lived dependencies shared by sessions.
type Engine struct {
	templateFS fs.FS
	templates  *templates.Store
	variants   *variant.Registry
	tickets    catalog.Tickets
	catalog    catalog.Catalog
	logger     *slog.Logger
	validator  *validation.Validator
	pipeline   *submission.Pipeline
}

// New builds an Engine. Without options it serves the embedded templates
// against an in-memory backend.
func New(options ...Option) (*Engine, error) {
	e := &Engine{
		variants: variant.NewDefaultRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}

	if e.templates == nil {
		var err error
		if e.templateFS != nil {
			e.templates, err = templates.LoadFS(e.templateFS)
		} else {
			e.templates, err = templates.LoadDefaults()
		}
		if err != nil {
			return nil, fmt.Errorf("ticketform: load templates: %w", err)
		}
	}
	if e.tickets == nil || e.catalog == nil {
		mem := catalog.NewMemory()
		if e.tickets == nil {
			e.tickets = mem
		}
		if e.catalog == nil {
			e.catalog = mem
		}
	}

	e.validator = validation.New()
	e.pipeline = submission.New(e.tickets, e.catalog,
		submission.WithValidator(e.validator),
		submission.WithLogger(e.logger),
		submission.WithSummaries(e.templates.SummaryFor),
	)
	return e, nil
}

// Categories lists the categories with a template.
func (e *Engine) Categories() []string {
	return e.templates.List()
}

// Category returns the template of name.
func (e *Engine) Category(name string) (templates.Category, bool) {
	return e.templates.Category(name)
}

// Variants returns the variant registry.
func (e *Engine) Variants() *variant.Registry {
	return e.variants
}

// Tickets returns the persistence backend.
func (e *Engine) Tickets() catalog.Tickets {
	return e.tickets
}

// NewSession returns an Idle session wired to the engine's backends.
func (e *Engine) NewSession(options ...session.Option) *session.Session {
	base := []session.Option{
		session.WithVariants(e.variants),
		session.WithValidator(e.validator),
		session.WithPipeline(e.pipeline),
		session.WithLogger(e.logger),
	}
	backend := session.Backend{Templates: e.templates, Tickets: e.tickets, Catalog: e.catalog}
	return session.New(backend, append(base, options...)...)
}

// Start returns a session Ready to author a new ticket of category.
func (e *Engine) Start(ctx context.Context, category string, tc TemplateContext, options ...session.Option) (*session.Session, error) {
	s := e.NewSession(options...)
	if err := s.Load(ctx, category, tc); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Edit returns a session Ready to edit the stored ticket ticketID.
func (e *Engine) Edit(ctx context.Context, ticketID string, options ...session.Option) (*session.Session, error) {
	s := e.NewSession(options...)
	if err := s.LoadTicket(ctx, ticketID); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
