package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// State is the authoring session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateTemplateLoading
	StateReady
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTemplateLoading:
		return "template-loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrTemplateLoad is returned when the template or stored ticket could
	// not be fetched. The session stays Idle and Load may be retried.
	ErrTemplateLoad = errors.New("session: template load failed")
	// ErrNotReady is returned by edits and submits outside the Ready state.
	ErrNotReady = errors.New("session: not ready")
	// ErrSubmitInProgress is returned by OnSubmit while a submission runs.
	ErrSubmitInProgress = errors.New("session: submit in progress")
	// ErrAlreadyLoaded is returned by Load once a document is loaded.
	ErrAlreadyLoaded = errors.New("session: already loaded")
	// ErrReadOnly is returned when editing a read-only field.
	ErrReadOnly = errors.New("session: field is read-only")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session: closed")
)

// Outcome is the final status of an asynchronous trigger.
type Outcome int

const (
	// OutcomePending means the trigger has not completed yet.
	OutcomePending Outcome = iota
	// OutcomeResolved means the result was applied (or nothing was needed).
	OutcomeResolved
	// OutcomeStale means a newer trigger for the same field superseded it.
	OutcomeStale
	// OutcomeFailed means the lookup failed; the trigger field was rolled
	// back and a notification was raised.
	OutcomeFailed
	// OutcomeDiscarded means the session closed or moved on to submission
	// before the result arrived.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeResolved:
		return "resolved"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Pending tracks one asynchronous resolver or blur check.
type Pending struct {
	Path model.Path

	done    chan struct{}
	outcome Outcome
	err     error
}

func newPending(path model.Path) *Pending {
	return &Pending{Path: path, done: make(chan struct{})}
}

func completed(path model.Path, outcome Outcome) *Pending {
	p := newPending(path)
	p.finish(outcome, nil)
	return p
}

func (p *Pending) finish(outcome Outcome, err error) {
	p.outcome = outcome
	p.err = err
	close(p.done)
}

// Done is closed once the outcome is known.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the outcome is known or ctx ends.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, p.err
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Outcome returns the outcome, or OutcomePending while still running.
func (p *Pending) Outcome() Outcome {
	select {
	case <-p.done:
		return p.outcome
	default:
		return OutcomePending
	}
}

// Level classifies a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	Level   Level  `json:"level"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}
