// Package catalog declares the narrow ports the ticket engine uses to reach the
// external catalog and persistence backend, plus reference adapters (in-memory
// and HTTP). The engine only depends on the interfaces.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Lookup kinds used by the built-in variants.
const (
	KindDivision        = "division"
	KindCSIDescription  = "csi-description"
	KindItemDescription = "item-description"
	KindUnitOfMeasure   = "unit-of-measure"
	KindOptionName      = "option-name"
	KindPEDPartNumber   = "ped-part-number"
)

// Existence kinds used by the built-in variants.
const (
	ExistsGeneralName    = "general-name"
	ExistsCSICombination = "csi-combination"
	ExistsItemCSI        = "item-csi"
	ExistsOptionValue    = "option-value"
	ExistsPEDPart        = "ped-part"
	ExistsPEDPartName    = "ped-part-name"
)

// Params carries lookup parameters. Multi-valued parameters (for example a
// set of division codes) keep every value in order.
type Params map[string][]string

// Get returns the first value for key.
func (p Params) Get(key string) string {
	if values := p[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Set replaces the values for key.
func (p Params) Set(key string, values ...string) Params {
	if p == nil {
		p = Params{}
	}
	p[key] = append([]string(nil), values...)
	return p
}

// Key renders a deterministic cache/storage key for the parameter set.
func (p Params) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(";")
		}
		values := append([]string(nil), p[k]...)
		sort.Strings(values)
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}

// Mode distinguishes creating a new ticket from editing an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// TemplateContext carries caller context for template instantiation, such as
// values to pre-fill into canonical sections keyed by field id.
type TemplateContext struct {
	Prefill map[string]any
	Extras  map[string]string
}

// Payload is the serialised ticket handed to SubmitTicket.
type Payload struct {
	Category string           `json:"category" yaml:"category"`
	TicketID string           `json:"ticketId,omitempty" yaml:"ticketId,omitempty"`
	Summary  string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Sections []PayloadSection `json:"sections" yaml:"sections"`
}

// PayloadSection is one section instance in a submitted ticket.
type PayloadSection struct {
	SectionID        string         `json:"sectionId" yaml:"sectionId"`
	DuplicateGroupID string         `json:"duplicateGroupId" yaml:"duplicateGroupId"`
	Name             string         `json:"name" yaml:"name"`
	Fields           []PayloadField `json:"fields" yaml:"fields"`
}

// PayloadField is one answered field in a submitted ticket.
type PayloadField struct {
	FieldID  string `json:"fieldId" yaml:"fieldId"`
	Name     string `json:"name" yaml:"name"`
	Response any    `json:"response" yaml:"response"`
}

// Receipt is returned by a successful submission.
type Receipt struct {
	TicketID string `json:"ticketId"`
}

// Templates fetches the section/field template of a category.
type Templates interface {
	FetchTemplate(ctx context.Context, category string, tc TemplateContext) (model.Document, error)
}

// Catalog answers option lookups and existence checks.
type Catalog interface {
	LookupOptions(ctx context.Context, kind string, params Params) ([]model.Option, error)
	CheckExists(ctx context.Context, kind string, params Params) (bool, error)
}

// Submission is everything a backend receives for one create/edit call: the
// authored document snapshot and its serialised payload.
type Submission struct {
	Category string
	Mode     Mode
	TicketID string
	Document model.Document
	Payload  Payload
}

// Tickets persists submissions and loads stored tickets for editing.
type Tickets interface {
	FetchTicket(ctx context.Context, ticketID string) (model.Document, error)
	SubmitTicket(ctx context.Context, sub Submission) (Receipt, error)
}

// ErrNotFound is returned when a ticket or category does not exist.
var ErrNotFound = errors.New("catalog: not found")

// RejectedError is returned by a backend that refused a submission with
// field-level messages keyed by path.
type RejectedError struct {
	Fields map[string][]string
	Form   []string
}

func (e *RejectedError) Error() string {
	if e == nil {
		return "catalog: submission rejected"
	}
	return fmt.Sprintf("catalog: submission rejected (%d field errors, %d form errors)", len(e.Fields), len(e.Form))
}
