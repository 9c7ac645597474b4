package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// ErrDependencyUnavailable wraps catalog failures raised by async checks.
var ErrDependencyUnavailable = errors.New("validation: dependency unavailable")

// AsyncValidator checks one field against an external source. It receives
// a snapshot of the document and returns "" when the value is acceptable or
// a user-facing message otherwise.
type AsyncValidator interface {
	Validate(ctx context.Context, doc *model.Document, path model.Path) (string, error)
}

// AsyncFunc adapts a function into an AsyncValidator.
type AsyncFunc func(ctx context.Context, doc *model.Document, path model.Path) (string, error)

// Validate delegates to the underlying function.
func (fn AsyncFunc) Validate(ctx context.Context, doc *model.Document, path model.Path) (string, error) {
	return fn(ctx, doc, path)
}

// Exists reports message when the catalog already holds an entry of kind
// matching the bound fields of the triggering section. Empty bindings skip
// the catalog call.
func Exists(cat catalog.Catalog, kind string, binding catalog.Binding, message string) AsyncValidator {
	return AsyncFunc(func(ctx context.Context, doc *model.Document, path model.Path) (string, error) {
		params := binding.Params(doc, path.GroupID)
		if len(params) == 0 {
			return "", nil
		}
		exists, err := cat.CheckExists(ctx, kind, params)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
		}
		if exists {
			return message, nil
		}
		return "", nil
	})
}

// RunAsync runs validator and turns its outcome into issues for path. Catalog
// failures become a dependency_unavailable issue; cancellation is returned.
func RunAsync(ctx context.Context, validator AsyncValidator, doc *model.Document, path model.Path) (Issues, error) {
	msg, err := validator.Validate(ctx, doc, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return Issues{IssueAt(path, CodeDependencyUnavailable, "Could not verify this value right now", map[string]any{"cause": err.Error()})}, nil
	}
	if msg == "" {
		return nil, nil
	}
	return Issues{IssueAt(path, CodeConflict, msg, nil)}, nil
}
