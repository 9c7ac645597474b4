// Package session owns one ticket-authoring session: the form document, its
// lifecycle state machine, dependency resolution and submission.
//
// Mutations are synchronous and serialised by the session lock. Catalog
// lookups and persistence run without holding the lock; their results are
// applied only if they are still the latest trigger for their field and the
// session is still Ready.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/duplicate"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/resolver"
	"github.com/goliatone/go-ticketform/pkg/submission"
	"github.com/goliatone/go-ticketform/pkg/validation"
	"github.com/goliatone/go-ticketform/pkg/variant"
)

// Backend groups the external ports a session consumes.
type Backend struct {
	Templates catalog.Templates
	Tickets   catalog.Tickets
	Catalog   catalog.Catalog
}

// Option configures a Session.
type Option func(*Session)

// WithVariants sets the variant registry (default: built-ins).
func WithVariants(reg *variant.Registry) Option {
	return func(s *Session) {
		if reg != nil {
			s.variants = reg
		}
	}
}

// WithPipeline sets the submission pipeline.
func WithPipeline(p *submission.Pipeline) Option {
	return func(s *Session) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithValidator sets the static validator used for live field checks.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDuplicator sets the duplication engine.
func WithDuplicator(e *duplicate.Engine) Option {
	return func(s *Session) {
		if e != nil {
			s.duplicator = e
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnSuccess registers the continuation invoked once after a successful
// submission.
func WithOnSuccess(fn func(submission.Result)) Option {
	return func(s *Session) {
		s.onSuccess = fn
	}
}

// WithNotifier registers a callback receiving every notification as it is
// raised. It is never called with the session lock held.
func WithNotifier(fn func(Notification)) Option {
	return func(s *Session) {
		s.notifier = fn
	}
}

// Session is one authoring session. Create with New; call Close when the
// session is abandoned.
type Session struct {
	backend    Backend
	variants   *variant.Registry
	pipeline   *submission.Pipeline
	validator  *validation.Validator
	duplicator *duplicate.Engine
	logger     *slog.Logger
	onSuccess  func(submission.Result)
	notifier   func(Notification)

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	closed        bool
	mode          catalog.Mode
	ticketID      string
	variant       variant.Variant
	doc           model.Document
	issues        validation.Issues
	notifications []Notification
	resolutions   *resolver.Tracker
	checks        *resolver.Tracker
	inflight      map[string]*Pending
	successOnce   sync.Once
}

// New constructs an Idle session.
func New(backend Backend, options ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:     backend,
		variants:    variant.NewDefaultRegistry(),
		validator:   validation.New(),
		duplicator:  duplicate.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:         ctx,
		cancel:      cancel,
		resolutions: resolver.NewTracker(),
		checks:      resolver.NewTracker(),
		inflight:    make(map[string]*Pending),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.pipeline == nil {
		s.pipeline = submission.New(backend.Tickets, backend.Catalog,
			submission.WithValidator(s.validator),
			submission.WithLogger(s.logger),
		)
	}
	return s
}

// Load fetches the template of category (a name or variant alias) and makes
// the session Ready for a new ticket.
func (s *Session) Load(ctx context.Context, category string, tc catalog.TemplateContext) error {
	return s.load(ctx, catalog.ModeCreate, func(ctx context.Context) (model.Document, error) {
		if s.backend.Templates == nil {
			return model.Document{}, errors.New("no template source configured")
		}
		name := templateName(s.variants, category)
		doc, err := s.backend.Templates.FetchTemplate(ctx, name, tc)
		if err == nil && doc.Category == "" {
			doc.Category = name
		}
		return doc, err
	})
}

// templateName maps a category name or variant alias to the registered
// variant name. Categories without a variant are fetched as given.
func templateName(variants *variant.Registry, category string) string {
	if v, err := variants.Get(category); err == nil && v.Name != "" {
		return v.Name
	}
	return category
}

// LoadTicket fetches a stored ticket and makes the session Ready to edit it.
func (s *Session) LoadTicket(ctx context.Context, ticketID string) error {
	return s.load(ctx, catalog.ModeEdit, func(ctx context.Context) (model.Document, error) {
		if s.backend.Tickets == nil {
			return model.Document{}, errors.New("no ticket source configured")
		}
		doc, err := s.backend.Tickets.FetchTicket(ctx, ticketID)
		if err == nil && doc.TicketID == "" {
			doc.TicketID = ticketID
		}
		return doc, err
	})
}

func (s *Session) load(ctx context.Context, mode catalog.Mode, fetch func(context.Context) (model.Document, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyLoaded, state)
	}
	s.state = StateTemplateLoading
	s.mu.Unlock()

	loadCtx, stop := mergeDone(ctx, s.ctx)
	doc, err := fetch(loadCtx)
	stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.state = StateIdle
		note := Notification{Level: LevelError, Message: "Could not load the ticket form, please retry"}
		s.notifications = append(s.notifications, note)
		s.mu.Unlock()
		s.logger.Warn("template load failed", "mode", string(mode), "error", err)
		s.notify(note)
		return fmt.Errorf("%w: %w", ErrTemplateLoad, err)
	}

	s.doc = doc
	s.mode = mode
	s.ticketID = doc.TicketID
	s.variant = s.variants.Resolve(doc.Category)
	s.issues = nil
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Debug("session ready", "category", doc.Category, "variant", s.variant.Name, "mode", string(mode), "sections", len(doc.Sections))
	return nil
}

// OnFieldChange stores value at path and starts the field's resolver, if the
// variant declares one. The returned Pending completes when the resolver
// result has been applied or discarded.
func (s *Session) OnFieldChange(path model.Path, value any) (*Pending, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	field, ok := s.doc.Field(path)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("session: change %s: %w", path, model.ErrFieldNotFound)
	}
	if field.ReadOnly {
		s.mu.Unlock()
		return nil, fmt.Errorf("session: change %s: %w", path, ErrReadOnly)
	}

	previous := model.CloneValue(field.Response)
	field.Response = model.CloneValue(value)
	key := path.String()
	s.checks.Cancel(key)
	s.issues = append(s.issues.Without(path), s.validator.ValidateField(&s.doc, path)...)

	r, ok := s.variant.Resolver(path.FieldID)
	if !ok {
		s.mu.Unlock()
		return completed(path, OutcomeResolved), nil
	}

	token := s.resolutions.Begin(key)
	change := resolver.Change{
		Path:     path,
		Value:    model.CloneValue(value),
		Previous: previous,
		Document: ptr(s.doc.Clone()),
		Catalog:  s.backend.Catalog,
	}
	pending := newPending(path)
	s.inflight[key] = pending
	s.mu.Unlock()

	go s.resolve(r, change, token, pending)
	return pending, nil
}

func (s *Session) resolve(r resolver.Resolver, change resolver.Change, token resolver.Token, pending *Pending) {
	key := change.Path.String()
	patch, err := r.Resolve(s.ctx, change)

	s.mu.Lock()
	if s.inflight[key] == pending {
		delete(s.inflight, key)
	}
	switch {
	case s.closed || s.ctx.Err() != nil:
		s.mu.Unlock()
		pending.finish(OutcomeDiscarded, nil)
		return
	case !s.resolutions.IsCurrent(key, token):
		s.mu.Unlock()
		s.logger.Debug("stale resolution discarded", "path", key, "token", uint64(token))
		pending.finish(OutcomeStale, nil)
		return
	case s.state != StateReady:
		s.resolutions.Finish(key, token)
		s.mu.Unlock()
		s.logger.Debug("resolution discarded outside ready state", "path", key)
		pending.finish(OutcomeDiscarded, nil)
		return
	}
	s.resolutions.Finish(key, token)

	if err != nil {
		if field, ok := s.doc.Field(change.Path); ok {
			field.Response = change.Previous
			s.issues = append(s.issues.Without(change.Path), s.validator.ValidateField(&s.doc, change.Path)...)
		}
		note := Notification{Level: LevelError, Path: key, Message: "Could not load dependent values, the change was reverted"}
		s.notifications = append(s.notifications, note)
		s.mu.Unlock()
		s.logger.Warn("resolver failed", "path", key, "error", err)
		s.notify(note)
		pending.finish(OutcomeFailed, err)
		return
	}

	for _, touched := range patch.Apply(&s.doc) {
		if len(s.issues.For(touched)) > 0 {
			s.issues = append(s.issues.Without(touched), s.validator.ValidateField(&s.doc, touched)...)
		}
	}
	s.mu.Unlock()
	pending.finish(OutcomeResolved, nil)
}

// OnFieldBlur runs the variant's existence check for path, if any. Issues
// from the check replace earlier ones for the same field.
func (s *Session) OnFieldBlur(path model.Path) (*Pending, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if _, ok := s.doc.Field(path); !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("session: blur %s: %w", path, model.ErrFieldNotFound)
	}
	check, ok := s.variant.BlurCheck(path.FieldID)
	if !ok || s.backend.Catalog == nil {
		s.mu.Unlock()
		return completed(path, OutcomeResolved), nil
	}

	key := path.String()
	token := s.checks.Begin(key)
	snapshot := s.doc.Clone()
	pending := newPending(path)
	s.mu.Unlock()

	go func() {
		found, err := validation.RunAsync(s.ctx, check.Validator(s.backend.Catalog), &snapshot, path)

		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case s.closed || err != nil:
			pending.finish(OutcomeDiscarded, err)
			return
		case !s.checks.IsCurrent(key, token):
			pending.finish(OutcomeStale, nil)
			return
		case s.state != StateReady:
			s.checks.Finish(key, token)
			pending.finish(OutcomeDiscarded, nil)
			return
		}
		s.checks.Finish(key, token)
		s.issues = append(s.issues.Without(path), s.validator.ValidateField(&s.doc, path)...)
		s.issues = append(s.issues, found...)
		pending.finish(OutcomeResolved, nil)
	}()
	return pending, nil
}

// OnSectionDuplicate appends a copy of the last instance of sectionID and
// returns its group id. Unknown section ids are a no-op returning "".
func (s *Session) OnSectionDuplicate(sectionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return "", err
	}
	groupID, err := s.duplicator.Duplicate(&s.doc, sectionID, s.variant.CarryOverFor(sectionID))
	if err != nil {
		return "", err
	}
	if groupID != "" {
		s.logger.Debug("section duplicated", "section", sectionID, "group", groupID)
	}
	return groupID, nil
}

// OnSectionRemove removes the duplicate identified by groupID. Unknown ids
// are a no-op; the canonical instance cannot be removed.
func (s *Session) OnSectionRemove(groupID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return false, err
	}

	var fieldIDs []string
	if sec, ok := s.doc.Section(groupID); ok {
		for _, f := range sec.Fields {
			fieldIDs = append(fieldIDs, f.FieldID)
		}
	}
	removed, err := s.duplicator.Remove(&s.doc, groupID)
	if err != nil || !removed {
		return removed, err
	}
	for _, id := range fieldIDs {
		path := model.NewPath(groupID, id)
		s.resolutions.Cancel(path.String())
		s.checks.Cancel(path.String())
		delete(s.inflight, path.String())
		s.issues = s.issues.Without(path)
	}
	return true, nil
}

// OnSubmit runs the submission pipeline. Dependency resolutions still in
// flight are awaited first, so the submitted document never carries a
// trigger value whose dependents were not recomputed. A second call while a
// submission is in flight returns ErrSubmitInProgress and changes nothing.
func (s *Session) OnSubmit(ctx context.Context) (submission.Result, error) {
	s.mu.Lock()
	for {
		switch {
		case s.closed:
			s.mu.Unlock()
			return submission.Result{}, ErrClosed
		case s.state == StateSubmitting:
			s.mu.Unlock()
			return submission.Result{}, ErrSubmitInProgress
		case s.state != StateReady:
			state := s.state
			s.mu.Unlock()
			return submission.Result{}, fmt.Errorf("%w (state %s)", ErrNotReady, state)
		}
		if len(s.inflight) == 0 {
			break
		}
		waiting := make([]*Pending, 0, len(s.inflight))
		for _, p := range s.inflight {
			waiting = append(waiting, p)
		}
		s.mu.Unlock()
		if err := s.settle(ctx, waiting); err != nil {
			return submission.Result{}, err
		}
		s.mu.Lock()
	}
	s.state = StateSubmitting
	req := submission.Request{
		Mode:     s.mode,
		TicketID: s.ticketID,
		Variant:  s.variant,
		Document: s.doc.Clone(),
	}
	s.mu.Unlock()

	submitCtx, stop := mergeDone(ctx, s.ctx)
	res, err := s.pipeline.Submit(submitCtx, req)
	stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return res, ErrClosed
	}
	if err != nil {
		s.state = StateReady
		s.issues = res.Issues
		var note *Notification
		switch {
		case errors.Is(err, submission.ErrPersistence):
			note = &Notification{Level: LevelError, Message: "The ticket could not be saved, please retry"}
		case errors.Is(err, submission.ErrUnavailable):
			note = &Notification{Level: LevelError, Message: "The ticket could not be verified, please retry"}
		}
		if note != nil {
			s.notifications = append(s.notifications, *note)
		}
		s.mu.Unlock()
		if note != nil {
			s.notify(*note)
		}
		return res, err
	}

	s.state = StateSubmitted
	s.ticketID = res.Receipt.TicketID
	s.doc.TicketID = res.Receipt.TicketID
	s.issues = nil
	s.notifications = nil
	s.resolutions.Reset()
	s.checks.Reset()
	clear(s.inflight)
	onSuccess := s.onSuccess
	s.mu.Unlock()

	if onSuccess != nil {
		s.successOnce.Do(func() { onSuccess(res) })
	}
	return res, nil
}

// settle blocks until every pending resolution has an outcome.
func (s *Session) settle(ctx context.Context, waiting []*Pending) error {
	for _, p := range waiting {
		select {
		case <-p.Done():
		case <-ctx.Done():
			return fmt.Errorf("session: submit: %w", ctx.Err())
		case <-s.ctx.Done():
			return ErrClosed
		}
	}
	return nil
}

// Close cancels in-flight work. Late results are discarded and every further
// operation returns ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.resolutions.Reset()
	s.checks.Reset()
	clear(s.inflight)
}

// Snapshot returns a deep copy of the current document.
func (s *Session) Snapshot() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Errors returns the current field and form issues.
func (s *Session) Errors() validation.Issues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(validation.Issues(nil), s.issues...)
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notifications returns the pending notifications.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notifications...)
}

// DismissNotifications clears the pending notifications.
func (s *Session) DismissNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// Variant returns the name of the active variant.
func (s *Session) Variant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant.Name
}

// Mode reports whether the session creates or edits a ticket.
func (s *Session) Mode() catalog.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TicketID returns the ticket id being edited, or the id assigned on
// successful submission.
func (s *Session) TicketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketID
}

// Required reports whether the field at path currently must be answered.
func (s *Session) Required(path model.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validator.Required(&s.doc, path)
}

func (s *Session) editableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.state != StateReady {
		return fmt.Errorf("%w (state %s)", ErrNotReady, s.state)
	}
	return nil
}

func (s *Session) notify(n Notification) {
	if s.notifier != nil {
		s.notifier(n)
	}
}

// mergeDone derives a context from ctx that is also cancelled when other
// ends.
func mergeDone(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func ptr[T any](v T) *T { return &v }
