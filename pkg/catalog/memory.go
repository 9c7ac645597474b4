package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Memory is an in-process Catalog and Tickets implementation. It is safe for
// concurrent use and counts calls so tests can assert on backend traffic.
type Memory struct {
	mu       sync.RWMutex
	options  map[string]map[string][]model.Option
	existing map[string]map[string]struct{}
	tickets  map[string]model.Document
	failures map[string]error

	lookups atomic.Int64
	checks  atomic.Int64
	submits atomic.Int64

	submitErr error
	newID     func() string
}

// NewMemory constructs an empty Memory catalog.
func NewMemory() *Memory {
	return &Memory{
		options:  make(map[string]map[string][]model.Option),
		existing: make(map[string]map[string]struct{}),
		tickets:  make(map[string]model.Document),
		failures: make(map[string]error),
		newID:    func() string { return uuid.New().String() },
	}
}

// AddOptions registers the options returned for kind when looked up with
// params. Multi-valued lookups union the per-value entries.
func (m *Memory) AddOptions(kind string, params Params, options ...model.Option) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.options[kind]
	if !ok {
		byKey = make(map[string][]model.Option)
		m.options[kind] = byKey
	}
	key := params.Key()
	byKey[key] = append(byKey[key], options...)
	return m
}

// AddExisting records a catalog entry so CheckExists(kind, params) reports
// true. Values are compared case- and whitespace-insensitively.
func (m *Memory) AddExisting(kind string, params Params) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.existing[kind]
	if !ok {
		byKey = make(map[string]struct{})
		m.existing[kind] = byKey
	}
	byKey[params.Normalized().Key()] = struct{}{}
	return m
}

// FailKind makes every lookup or existence check of kind return err. Pass nil
// to clear.
func (m *Memory) FailKind(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, kind)
		return
	}
	m.failures[kind] = err
}

// FailSubmit makes SubmitTicket return err until cleared with nil.
func (m *Memory) FailSubmit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
}

// LookupOptions implements Catalog.
func (m *Memory) LookupOptions(ctx context.Context, kind string, params Params) ([]model.Option, error) {
	m.lookups.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[kind]; err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: %w", kind, err)
	}

	byKey := m.options[kind]
	var out []model.Option
	seen := make(map[string]struct{})
	for _, single := range params.Expand() {
		for _, opt := range byKey[single.Key()] {
			if _, dup := seen[opt.Value]; dup {
				continue
			}
			seen[opt.Value] = struct{}{}
			out = append(out, opt)
		}
	}
	return out, nil
}

// CheckExists implements Catalog.
func (m *Memory) CheckExists(ctx context.Context, kind string, params Params) (bool, error) {
	m.checks.Add(1)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[kind]; err != nil {
		return false, fmt.Errorf("catalog: check %s: %w", kind, err)
	}
	_, ok := m.existing[kind][params.Normalized().Key()]
	return ok, nil
}

// FetchTicket implements Tickets.
func (m *Memory) FetchTicket(ctx context.Context, ticketID string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.tickets[strings.TrimSpace(ticketID)]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: ticket %q", ErrNotFound, ticketID)
	}
	return doc.Clone(), nil
}

// SubmitTicket implements Tickets.
func (m *Memory) SubmitTicket(ctx context.Context, sub Submission) (Receipt, error) {
	m.submits.Add(1)
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return Receipt{}, m.submitErr
	}

	id := sub.TicketID
	switch sub.Mode {
	case ModeEdit:
		if _, ok := m.tickets[id]; !ok {
			return Receipt{}, fmt.Errorf("%w: ticket %q", ErrNotFound, id)
		}
	default:
		id = m.newID()
	}

	doc := sub.Document.Clone()
	doc.TicketID = id
	doc.Category = sub.Category
	m.tickets[id] = doc
	return Receipt{TicketID: id}, nil
}

// PutTicket stores a ticket directly, bypassing submission.
func (m *Memory) PutTicket(doc model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[doc.TicketID] = doc.Clone()
}

// Lookups reports how many LookupOptions calls were made.
func (m *Memory) Lookups() int { return int(m.lookups.Load()) }

// Checks reports how many CheckExists calls were made.
func (m *Memory) Checks() int { return int(m.checks.Load()) }

// Submits reports how many SubmitTicket calls were made.
func (m *Memory) Submits() int { return int(m.submits.Load()) }
