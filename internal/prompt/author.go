package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/session"
	"github.com/goliatone/go-ticketform/pkg/submission"
	"github.com/goliatone/go-ticketform/pkg/validation"
)

// ErrCancelled is returned when the user declines to submit.
var ErrCancelled = errors.New("prompt: submission cancelled")

const skipOption = "(none)"

// Option configures an Author.
type Option func(*Author)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(a *Author) {
		if driver != nil {
			a.driver = driver
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Author) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often a field is re-prompted while it has
// issues.
func WithMaxAttempts(n int) Option {
	return func(a *Author) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// Author walks a loaded session field by field, then submits it.
type Author struct {
	driver      Driver
	logger      *slog.Logger
	maxAttempts int
}

// New constructs an Author using the survey driver unless overridden.
func New(options ...Option) *Author {
	a := &Author{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAttempts: 3,
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	if a.driver == nil {
		a.driver = NewSurveyDriver(nil)
	}
	return a
}

// Run prompts every section of the session's document in order, offering
// to add or drop duplicates of repeatable sections, and submits. Fields
// flagged by a failed submission are prompted again before retrying.
func (a *Author) Run(ctx context.Context, s *session.Session) (submission.Result, error) {
	if s.State() != session.StateReady {
		return submission.Result{}, fmt.Errorf("prompt: %w", session.ErrNotReady)
	}
	if err := a.walk(ctx, s); err != nil {
		return submission.Result{}, err
	}

	for {
		ok, err := a.driver.Confirm(ctx, ConfirmConfig{Message: "Submit ticket?", Default: true})
		if err != nil {
			return submission.Result{}, err
		}
		if !ok {
			return submission.Result{}, ErrCancelled
		}

		res, err := s.OnSubmit(ctx)
		if err == nil {
			return res, nil
		}
		if err := a.flushNotifications(ctx, s); err != nil {
			return res, err
		}
		a.logger.Debug("submission attempt failed", "error", err)

		switch {
		case errors.Is(err, submission.ErrInvalid),
			errors.Is(err, submission.ErrConflict),
			errors.Is(err, submission.ErrRejected):
			if err := a.revisit(ctx, s, res.Issues); err != nil {
				return res, err
			}
		case errors.Is(err, submission.ErrPersistence), errors.Is(err, submission.ErrUnavailable):
			retry, perr := a.driver.Confirm(ctx, ConfirmConfig{Message: "Retry submission?", Default: true})
			if perr != nil {
				return res, perr
			}
			if !retry {
				return res, err
			}
		default:
			return res, err
		}
	}
}

func (a *Author) walk(ctx context.Context, s *session.Session) error {
	for i := 0; ; i++ {
		doc := s.Snapshot()
		if i >= len(doc.Sections) {
			return nil
		}
		sec := doc.Sections[i]

		if !doc.IsCanonical(i) {
			keep, err := a.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Keep %s #%d?", sec.Name, ordinal(doc, i)), Default: true})
			if err != nil {
				return err
			}
			if !keep {
				if _, err := s.OnSectionRemove(sec.DuplicateGroupID); err != nil {
					return err
				}
				i--
				continue
			}
		}

		if err := a.driver.Info(ctx, fmt.Sprintf("== %s ==", sec.Name)); err != nil {
			return err
		}
		for _, f := range sec.Fields {
			if err := a.field(ctx, s, model.NewPath(sec.DuplicateGroupID, f.FieldID)); err != nil {
				return err
			}
		}

		doc = s.Snapshot()
		if !sec.Duplicatable || doc.LastIndexOf(sec.SectionID) != i {
			continue
		}
		more, err := a.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another %s?", sec.Name)})
		if err != nil {
			return err
		}
		if more {
			if _, err := s.OnSectionDuplicate(sec.SectionID); err != nil {
				return err
			}
		}
	}
}

// revisit prompts the fields named by issues again and prints form-level
// messages.
func (a *Author) revisit(ctx context.Context, s *session.Session, issues validation.Issues) error {
	for _, it := range issues.Form() {
		if err := a.driver.Info(ctx, "! "+it.Message); err != nil {
			return err
		}
	}
	for _, raw := range issues.Paths() {
		path, err := model.ParsePath(raw)
		if err != nil {
			continue
		}
		if err := a.field(ctx, s, path); err != nil {
			return err
		}
	}
	return nil
}

// field prompts one field, applies the answer and waits for its resolver and
// blur check. It re-prompts while the field has issues, up to maxAttempts.
func (a *Author) field(ctx context.Context, s *session.Session, path model.Path) error {
	for attempt := 1; ; attempt++ {
		doc := s.Snapshot()
		f, ok := doc.Field(path)
		if !ok {
			return nil
		}
		if f.ReadOnly {
			if !model.IsEmpty(f.Response) {
				return a.driver.Info(ctx, fmt.Sprintf("%s: %s", f.Name, display(*f)))
			}
			return nil
		}
		for _, it := range s.Errors().For(path) {
			if err := a.driver.Info(ctx, "! "+it.Message); err != nil {
				return err
			}
		}

		value, err := a.ask(ctx, *f, s.Required(path))
		if err != nil {
			return err
		}
		pending, err := s.OnFieldChange(path, value)
		if err != nil {
			return err
		}
		if _, err := pending.Wait(ctx); err != nil {
			return err
		}
		if pending, err = s.OnFieldBlur(path); err != nil {
			return err
		}
		if _, err := pending.Wait(ctx); err != nil {
			return err
		}
		if err := a.flushNotifications(ctx, s); err != nil {
			return err
		}

		issues := s.Errors().For(path)
		if len(issues) == 0 {
			return nil
		}
		if attempt >= a.maxAttempts {
			for _, it := range issues {
				if err := a.driver.Info(ctx, "! "+it.Message); err != nil {
					return err
				}
			}
			return nil
		}
	}
}

func (a *Author) ask(ctx context.Context, f model.Field, required bool) (any, error) {
	label := f.Name
	if required {
		label += " *"
	}

	switch f.Type {
	case model.FieldTypeBoolean:
		current, _ := f.Response.(bool)
		return a.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current, Help: f.Description})

	case model.FieldTypeDropdown:
		if len(f.Options) == 0 {
			return nil, a.driver.Info(ctx, fmt.Sprintf("%s: no options available", f.Name))
		}
		labels := optionLabels(f.Options)
		offset := 0
		if !required {
			labels = append([]string{skipOption}, labels...)
			offset = 1
		}
		def := 0
		if current := model.StringValue(f.Response); current != "" {
			if idx := optionIndex(f.Options, current); idx >= 0 {
				def = idx + offset
			}
		}
		idx, err := a.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: def, Help: f.Description})
		if err != nil {
			return nil, err
		}
		if idx < offset || idx-offset >= len(f.Options) {
			return nil, nil
		}
		return f.Options[idx-offset].Value, nil

	case model.FieldTypeMultiSelect:
		if len(f.Options) == 0 {
			return nil, a.driver.Info(ctx, fmt.Sprintf("%s: no options available", f.Name))
		}
		var defaults []int
		for _, v := range model.StringValues(f.Response) {
			if idx := optionIndex(f.Options, v); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
		picked, err := a.driver.MultiSelect(ctx, SelectConfig{Message: label, Options: optionLabels(f.Options), Defaults: defaults, Help: f.Description})
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(f.Options) {
				values = append(values, f.Options[idx].Value)
			}
		}
		if len(values) == 0 {
			return nil, nil
		}
		return values, nil

	case model.FieldTypeTextArea:
		text, err := a.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: model.StringValue(f.Response), Help: f.Description})
		return emptyToNil(text), err

	case model.FieldTypeNumber:
		text, err := a.driver.Input(ctx, InputConfig{Message: label, Default: model.StringValue(f.Response), Help: f.Description})
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if n, perr := strconv.ParseFloat(text, 64); perr == nil {
			return n, nil
		}
		return emptyToNil(text), nil

	default:
		help := f.Description
		if f.Placeholder != "" && help == "" {
			help = f.Placeholder
		}
		text, err := a.driver.Input(ctx, InputConfig{Message: label, Default: model.StringValue(f.Response), Help: help})
		return emptyToNil(text), err
	}
}

func (a *Author) flushNotifications(ctx context.Context, s *session.Session) error {
	notes := s.Notifications()
	if len(notes) == 0 {
		return nil
	}
	s.DismissNotifications()
	for _, n := range notes {
		if err := a.driver.Info(ctx, "! "+n.Message); err != nil {
			return err
		}
	}
	return nil
}

func display(f model.Field) string {
	values := model.StringValues(f.Response)
	for i, v := range values {
		if idx := optionIndex(f.Options, v); idx >= 0 && f.Options[idx].Label != "" {
			values[i] = f.Options[idx].Label
		}
	}
	return strings.Join(values, ", ")
}

func ordinal(doc model.Document, index int) int {
	for n, idx := range doc.Instances(doc.Sections[index].SectionID) {
		if idx == index {
			return n + 1
		}
	}
	return 0
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label
		if out[i] == "" {
			out[i] = opt.Value
		}
	}
	return out
}

func optionIndex(options []model.Option, value string) int {
	for i, opt := range options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func emptyToNil(text string) any {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return text
}
