// Package variant selects category-specific behaviour: which resolvers run on
// field changes, which async checks run on blur, which fields survive section
// duplication and which checks gate submission. Selection is by category name
// only; unknown categories get the default variant.
package variant

import (
	"context"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/resolver"
	"github.com/goliatone/go-ticketform/pkg/validation"
)

// Built-in variant names.
const (
	Default    = "default"
	CustomCSI  = "custom-csi"
	ItemCSI    = "item-csi"
	ItemOption = "item-option"
	PEDPart    = "ped-part"
)

// Check is a pre-submit check. Returned issues abort the submission; an
// error means the check could not be completed.
type Check interface {
	Run(ctx context.Context, cat catalog.Catalog, doc *model.Document) (validation.Issues, error)
}

// BlurCheck is an existence check run when a field loses focus.
type BlurCheck struct {
	Kind    string
	Binding catalog.Binding
	Message string
}

// Validator binds the check to a catalog.
func (b BlurCheck) Validator(cat catalog.Catalog) validation.AsyncValidator {
	return validation.Exists(cat, b.Kind, b.Binding, b.Message)
}

// Variant bundles the behaviour of one category family.
type Variant struct {
	Name    string
	Aliases []string
	// Resolvers maps a triggering field id to its dependency resolver.
	Resolvers resolver.Table
	// BlurChecks maps a field id to the existence check run on blur.
	BlurChecks map[string]BlurCheck
	// CarryOver maps a section id to the field ids copied into duplicates.
	CarryOver map[string][]string
	// PreSubmit runs in order; the first check reporting issues stops the
	// sequence.
	PreSubmit []Check
}

// CarryOverFor returns the carry-over field ids of sectionID.
func (v Variant) CarryOverFor(sectionID string) []string {
	return v.CarryOver[sectionID]
}

// Resolver returns the change resolver of fieldID.
func (v Variant) Resolver(fieldID string) (resolver.Resolver, bool) {
	return v.Resolvers.For(fieldID)
}

// BlurCheck returns the blur check of fieldID.
func (v Variant) BlurCheck(fieldID string) (BlurCheck, bool) {
	check, ok := v.BlurChecks[fieldID]
	return check, ok
}

// RunPreSubmit executes the pre-submit checks.
func (v Variant) RunPreSubmit(ctx context.Context, cat catalog.Catalog, doc *model.Document) (validation.Issues, error) {
	for _, check := range v.PreSubmit {
		if check == nil {
			continue
		}
		issues, err := check.Run(ctx, cat, doc)
		if err != nil {
			return nil, err
		}
		if len(issues) > 0 {
			return issues, nil
		}
	}
	return nil, nil
}

// Normalize folds a category name into registry form: lower case, with runs
// of spaces, underscores and hyphens collapsed into one hyphen.
func Normalize(category string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(category)), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "-")
}
