// Package submission turns an authored ticket document into exactly one
// persistence call, after static validation and the category's pre-submit
// checks have passed.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/validation"
	"github.com/goliatone/go-ticketform/pkg/variant"
)

var (
	// ErrInvalid is returned when static validation fails. No backend call
	// is made.
	ErrInvalid = errors.New("submission: invalid document")
	// ErrConflict is returned when a pre-submit check finds a collision. No
	// persistence call is made.
	ErrConflict = errors.New("submission: conflict")
	// ErrUnavailable is returned when a pre-submit check could not reach the
	// catalog.
	ErrUnavailable = errors.New("submission: check unavailable")
	// ErrRejected is returned when the backend refused the ticket with
	// field-level messages.
	ErrRejected = errors.New("submission: rejected by backend")
	// ErrPersistence is returned when the final write failed. It is safe to
	// retry.
	ErrPersistence = errors.New("submission: persistence failed")
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithValidator overrides the static validator.
func WithValidator(v *validation.Validator) Option {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

// WithSummaries supplies the per-category summary template.
func WithSummaries(lookup func(category string) string) Option {
	return func(p *Pipeline) {
		p.summaries = lookup
	}
}

// Pipeline validates, checks and submits ticket documents. It holds no
// per-ticket state and is safe for concurrent use.
type Pipeline struct {
	tickets    catalog.Tickets
	catalog    catalog.Catalog
	validator  *validation.Validator
	summarizer *Summarizer
	summaries  func(category string) string
	logger     *slog.Logger
}

// New constructs a Pipeline writing to tickets and checking against cat.
func New(tickets catalog.Tickets, cat catalog.Catalog, options ...Option) *Pipeline {
	p := &Pipeline{
		tickets:    tickets,
		catalog:    cat,
		validator:  validation.New(),
		summarizer: NewSummarizer(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Request is one submission attempt.
type Request struct {
	Mode     catalog.Mode
	TicketID string
	Variant  variant.Variant
	// Document is a snapshot; the pipeline never mutates it.
	Document model.Document
}

// Result reports the outcome of Submit. Issues is set when validation,
// pre-submit checks or the backend flagged fields.
type Result struct {
	Receipt catalog.Receipt
	Payload catalog.Payload
	Issues  validation.Issues
}

// Submit runs static validation, the variant's pre-submit checks, and then
// calls SubmitTicket exactly once.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	doc := &req.Document
	logger := p.logger.With("category", doc.Category, "mode", string(req.Mode))

	if issues := p.validator.ValidateDocument(doc); len(issues) > 0 {
		logger.Debug("submission blocked by validation", "issues", len(issues))
		return Result{Issues: issues}, fmt.Errorf("%w: %w", ErrInvalid, issues)
	}

	issues, err := req.Variant.RunPreSubmit(ctx, p.catalog, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		logger.Warn("pre-submit check failed", "error", err)
		unavailable := validation.Issues{validation.FormIssue(validation.CodeDependencyUnavailable, "Could not verify the ticket right now, please retry")}
		return Result{Issues: unavailable}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(issues) > 0 {
		logger.Info("submission blocked by pre-submit check", "paths", issues.Paths())
		return Result{Issues: issues}, fmt.Errorf("%w: %w", ErrConflict, issues)
	}

	payload, err := p.BuildPayload(req)
	if err != nil {
		return Result{}, err
	}

	receipt, err := p.tickets.SubmitTicket(ctx, catalog.Submission{
		Category: doc.Category,
		Mode:     req.Mode,
		TicketID: req.TicketID,
		Document: doc.Clone(),
		Payload:  payload,
	})
	if err != nil {
		var rejected *catalog.RejectedError
		if errors.As(err, &rejected) {
			mapped := MapRejection(doc, rejected)
			logger.Info("submission rejected by backend", "issues", len(mapped))
			return Result{Payload: payload, Issues: mapped}, fmt.Errorf("%w: %w", ErrRejected, mapped)
		}
		logger.Warn("submission failed", "error", err)
		return Result{Payload: payload}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	logger.Info("ticket submitted", "ticket_id", receipt.TicketID)
	return Result{Receipt: receipt, Payload: payload}, nil
}

// BuildPayload serialises the document: free-text responses are stripped of
// markup and the category summary is rendered.
func (p *Pipeline) BuildPayload(req Request) (catalog.Payload, error) {
	doc := req.Document
	payload := catalog.Payload{
		Category: doc.Category,
		TicketID: req.TicketID,
	}

	for _, sec := range doc.Sections {
		ps := catalog.PayloadSection{
			SectionID:        sec.SectionID,
			DuplicateGroupID: sec.DuplicateGroupID,
			Name:             sec.Name,
		}
		for _, f := range sec.Fields {
			ps.Fields = append(ps.Fields, catalog.PayloadField{
				FieldID:  f.FieldID,
				Name:     f.Name,
				Response: payloadValue(f),
			})
		}
		payload.Sections = append(payload.Sections, ps)
	}

	if p.summaries != nil {
		summary, err := p.summarizer.Render(p.summaries(doc.Category), doc)
		if err != nil {
			return catalog.Payload{}, err
		}
		payload.Summary = SanitizeText(summary)
	}
	return payload, nil
}

func payloadValue(f model.Field) any {
	if f.Type.IsFreeText() {
		if s, ok := f.Response.(string); ok {
			return SanitizeText(s)
		}
	}
	return model.CloneValue(f.Response)
}
