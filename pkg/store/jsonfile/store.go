// Package jsonfile implements the catalog and ticket ports on top of a single
// JSON file. Every operation is a read-modify-write of the whole file guarded
// by an in-process lock and a cross-process file lock, so several CLI
// invocations can share one store.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

const formatVersion = "1"

// ErrLocked is returned when the file lock could not be acquired in time.
var ErrLocked = errors.New("jsonfile: store is locked")

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides the uuid ticket id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLockTimeout bounds how long an operation waits for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a file-backed catalog and ticket store.
type Store struct {
	path        string
	lock        *flock.Flock
	mu          sync.RWMutex
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
	lockTimeout time.Duration
}

var (
	_ catalog.Catalog = (*Store)(nil)
	_ catalog.Tickets = (*Store)(nil)
)

// fileData is the on-disk layout.
type fileData struct {
	// Options maps kind -> params key -> options.
	Options map[string]map[string][]model.Option `json:"options"`
	// Existing maps kind -> normalized params keys.
	Existing map[string][]string     `json:"existing"`
	Tickets  map[string]ticketRecord `json:"tickets"`
	Metadata metadata                `json:"metadata"`
}

type ticketRecord struct {
	Document  model.Document  `json:"document"`
	Payload   catalog.Payload `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TicketInfo summarises a stored ticket.
type TicketInfo struct {
	TicketID  string    `json:"ticketId" yaml:"ticketId"`
	Category  string    `json:"category" yaml:"category"`
	Summary   string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// New returns a store persisting to path. The file is created on first
// write.
func New(path string, options ...Option) *Store {
	s := &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
		lockTimeout: 3 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// LookupOptions implements catalog.Catalog.
func (s *Store) LookupOptions(ctx context.Context, kind string, params catalog.Params) ([]model.Option, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	byKey := data.Options[kind]
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
	s.logger.Debug("options lookup", "kind", kind, "params", params.Key(), "results", len(out))
	return out, nil
}

// CheckExists implements catalog.Catalog. Values compare case- and
// whitespace-insensitively.
func (s *Store) CheckExists(ctx context.Context, kind string, params catalog.Params) (bool, error) {
	data, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(data.Existing[kind], params.Normalized().Key()), nil
}

// FetchTicket implements catalog.Tickets.
func (s *Store) FetchTicket(ctx context.Context, ticketID string) (model.Document, error) {
	data, err := s.read(ctx)
	if err != nil {
		return model.Document{}, err
	}
	rec, ok := data.Tickets[ticketID]
	if !ok {
		return model.Document{}, fmt.Errorf("jsonfile: ticket %q: %w", ticketID, catalog.ErrNotFound)
	}
	doc := rec.Document
	doc.TicketID = ticketID
	return doc, nil
}

// SubmitTicket implements catalog.Tickets. Create assigns a fresh id; edit
// requires the ticket to exist and keeps its creation time.
func (s *Store) SubmitTicket(ctx context.Context, sub catalog.Submission) (catalog.Receipt, error) {
	var receipt catalog.Receipt
	err := s.update(ctx, func(data *fileData) error {
		now := s.now()
		rec := ticketRecord{CreatedAt: now}
		id := sub.TicketID
		switch sub.Mode {
		case catalog.ModeEdit:
			existing, ok := data.Tickets[id]
			if !ok {
				return fmt.Errorf("jsonfile: edit ticket %q: %w", id, catalog.ErrNotFound)
			}
			rec.CreatedAt = existing.CreatedAt
		default:
			id = s.newID()
		}

		doc := sub.Document.Clone()
		doc.TicketID = id
		if sub.Category != "" {
			doc.Category = sub.Category
		}
		payload := sub.Payload
		payload.TicketID = id
		rec.Document = doc
		rec.Payload = payload
		rec.UpdatedAt = now
		data.Tickets[id] = rec
		receipt = catalog.Receipt{TicketID: id}
		return nil
	})
	if err != nil {
		return catalog.Receipt{}, err
	}
	s.logger.Info("ticket stored", "ticket_id", receipt.TicketID, "mode", string(sub.Mode), "category", sub.Category)
	return receipt, nil
}

// Tickets lists stored tickets ordered by id.
func (s *Store) Tickets(ctx context.Context) ([]TicketInfo, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TicketInfo, 0, len(data.Tickets))
	for id, rec := range data.Tickets {
		out = append(out, TicketInfo{
			TicketID:  id,
			Category:  rec.Document.Category,
			Summary:   rec.Payload.Summary,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	slices.SortFunc(out, func(a, b TicketInfo) int {
		return strings.Compare(a.TicketID, b.TicketID)
	})
	return out, nil
}

// AddOptions records the options returned for kind when looked up with
// params.
func (s *Store) AddOptions(ctx context.Context, kind string, params catalog.Params, options ...model.Option) error {
	return s.update(ctx, func(data *fileData) error {
		addOptions(data, kind, params, options)
		return nil
	})
}

// AddExisting records an entry so CheckExists(kind, params) reports true.
func (s *Store) AddExisting(ctx context.Context, kind string, params catalog.Params) error {
	return s.update(ctx, func(data *fileData) error {
		addExisting(data, kind, params)
		return nil
	})
}

func addOptions(data *fileData, kind string, params catalog.Params, options []model.Option) int {
	byKey, ok := data.Options[kind]
	if !ok {
		byKey = make(map[string][]model.Option)
		data.Options[kind] = byKey
	}
	key := params.Key()
	added := 0
	for _, opt := range options {
		if slices.ContainsFunc(byKey[key], func(o model.Option) bool { return o.Value == opt.Value }) {
			continue
		}
		byKey[key] = append(byKey[key], opt)
		added++
	}
	return added
}

func addExisting(data *fileData, kind string, params catalog.Params) bool {
	key := params.Normalized().Key()
	if slices.Contains(data.Existing[kind], key) {
		return false
	}
	data.Existing[kind] = append(data.Existing[kind], key)
	slices.Sort(data.Existing[kind])
	return true
}

func (s *Store) read(ctx context.Context) (*fileData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.loadLocked()
}

func (s *Store) update(ctx context.Context, fn func(*fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.saveLocked(data)
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: create directory: %w", err)
		}
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrLocked, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func (s *Store) loadLocked() (*fileData, error) {
	data := &fileData{
		Options:  make(map[string]map[string][]model.Option),
		Existing: make(map[string][]string),
		Tickets:  make(map[string]ticketRecord),
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("jsonfile: parse %s: %w", s.path, err)
	}
	if data.Options == nil {
		data.Options = make(map[string]map[string][]model.Option)
	}
	if data.Existing == nil {
		data.Existing = make(map[string][]string)
	}
	if data.Tickets == nil {
		data.Tickets = make(map[string]ticketRecord)
	}
	for id, rec := range data.Tickets {
		normalizeResponses(&rec.Document)
		data.Tickets[id] = rec
	}
	return data, nil
}

func (s *Store) saveLocked(data *fileData) error {
	now := s.now()
	if data.Metadata.CreatedAt.IsZero() {
		data.Metadata.CreatedAt = now
	}
	data.Metadata.UpdatedAt = now
	data.Metadata.Version = formatVersion

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("jsonfile: replace: %w", err)
	}
	return nil
}

// normalizeResponses restores list responses decoded as []any to []string
// so stored tickets compare equal to the documents that were submitted.
func normalizeResponses(doc *model.Document) {
	for si := range doc.Sections {
		for fi := range doc.Sections[si].Fields {
			field := &doc.Sections[si].Fields[fi]
			list, ok := field.Response.([]any)
			if !ok || !field.Type.IsList() {
				continue
			}
			field.Response = model.StringValues(list)
		}
	}
}
