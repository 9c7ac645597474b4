package resolver

import (
	"fmt"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// OpKind identifies a patch operation.
type OpKind int

const (
	OpSetOptions OpKind = iota
	OpSetResponse
	OpClearResponse
	OpSetReadOnly
	OpResetReadOnly
)

func (k OpKind) String() string {
	switch k {
	case OpSetOptions:
		return "set-options"
	case OpSetResponse:
		return "set-response"
	case OpClearResponse:
		return "clear-response"
	case OpSetReadOnly:
		return "set-read-only"
	case OpResetReadOnly:
		return "reset-read-only"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one field rewrite.
type Op struct {
	Kind     OpKind
	Path     model.Path
	Options  []model.Option
	Value    any
	ReadOnly bool
}

// Patch is an ordered list of field rewrites.
type Patch []Op

// SetOptions replaces the options of path.
func (p Patch) SetOptions(path model.Path, options []model.Option) Patch {
	return append(p, Op{Kind: OpSetOptions, Path: path, Options: options})
}

// SetResponse overwrites the response of path.
func (p Patch) SetResponse(path model.Path, value any) Patch {
	return append(p, Op{Kind: OpSetResponse, Path: path, Value: value})
}

// ClearResponse empties the response of path.
func (p Patch) ClearResponse(path model.Path) Patch {
	return append(p, Op{Kind: OpClearResponse, Path: path})
}

// SetReadOnly toggles the read-only flag of path.
func (p Patch) SetReadOnly(path model.Path, readOnly bool) Patch {
	return append(p, Op{Kind: OpSetReadOnly, Path: path, ReadOnly: readOnly})
}

// ResetReadOnly restores the template default read-only flag of path.
func (p Patch) ResetReadOnly(path model.Path) Patch {
	return append(p, Op{Kind: OpResetReadOnly, Path: path})
}

// Reset clears options and response of path and restores its read-only
// default.
func (p Patch) Reset(path model.Path) Patch {
	return p.SetOptions(path, nil).ClearResponse(path).ResetReadOnly(path)
}

// Paths lists the distinct paths touched by the patch, in order.
func (p Patch) Paths() []model.Path {
	seen := make(map[model.Path]struct{}, len(p))
	var out []model.Path
	for _, op := range p {
		if _, ok := seen[op.Path]; ok {
			continue
		}
		seen[op.Path] = struct{}{}
		out = append(out, op.Path)
	}
	return out
}

// Apply writes the patch into doc and returns the paths it changed. Ops on
// paths that no longer exist (a section removed while the lookup was in
// flight) are skipped.
func (p Patch) Apply(doc *model.Document) []model.Path {
	var applied []model.Path
	seen := make(map[model.Path]struct{})
	for _, op := range p {
		field, ok := doc.Field(op.Path)
		if !ok {
			continue
		}
		switch op.Kind {
		case OpSetOptions:
			field.Options = append([]model.Option(nil), op.Options...)
		case OpSetResponse:
			field.Response = model.CloneValue(op.Value)
		case OpClearResponse:
			field.Response = model.EmptyValue(*field)
		case OpSetReadOnly:
			field.ReadOnly = op.ReadOnly
		case OpResetReadOnly:
			field.ReadOnly = field.DefaultReadOnly
		default:
			continue
		}
		if _, dup := seen[op.Path]; !dup {
			seen[op.Path] = struct{}{}
			applied = append(applied, op.Path)
		}
	}
	return applied
}
