package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/resolver"
)

func optionDoc() *model.Document {
	return &model.Document{Sections: []model.Section{
		{SectionID: "header", DuplicateGroupID: "h", Fields: []model.Field{
			{FieldID: "item_name", Type: model.FieldTypeDropdown, Response: "Pipe"},
		}},
		{SectionID: "option", DuplicateGroupID: "o1", Fields: []model.Field{
			{FieldID: "option_name", Type: model.FieldTypeDropdown, Response: "Size"},
			{FieldID: "option_description", Type: model.FieldTypeDropdown},
			{FieldID: "unit_of_measure", Type: model.FieldTypeText, ReadOnly: true, DefaultReadOnly: true},
		}},
		{SectionID: "option", DuplicateGroupID: "o2", Fields: []model.Field{
			{FieldID: "option_name", Type: model.FieldTypeDropdown, Response: "Size"},
			{FieldID: "option_description", Type: model.FieldTypeDropdown},
			{FieldID: "unit_of_measure", Type: model.FieldTypeText, Response: "old"},
		}},
		{SectionID: "option", DuplicateGroupID: "o3", Fields: []model.Field{
			{FieldID: "option_name", Type: model.FieldTypeDropdown, Response: "Size"},
			{FieldID: "option_description", Type: model.FieldTypeDropdown},
			{FieldID: "unit_of_measure", Type: model.FieldTypeText, Response: "old"},
		}},
	}}
}

func responses(doc *model.Document, fieldID string) []any {
	var out []any
	for _, sec := range doc.Sections {
		if f, ok := sec.Field(fieldID); ok {
			out = append(out, f.Response)
		}
	}
	return out
}

func TestUnitBroadcastWritesTriggerAndLaterInstancesOnly(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddOptions(catalog.KindUnitOfMeasure, catalog.Params{"description": {"Diameter"}}, model.Option{Label: "Inches", Value: "in"})

	doc := optionDoc()
	_ = doc.Set(model.NewPath("o2", "option_description"), "Diameter")
	change := resolver.Change{
		Path:     model.NewPath("o2", "option_description"),
		Value:    "Diameter",
		Document: doc,
		Catalog:  mem,
	}
	rule := resolver.UnitBroadcast{Kind: catalog.KindUnitOfMeasure, Binding: catalog.Binding{"description": "option_description"}, Target: "unit_of_measure"}

	patch, err := rule.Resolve(context.Background(), change)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patch.Apply(doc)

	want := []any{nil, "in", "in"}
	if diff := cmp.Diff(want, responses(doc, "unit_of_measure")); diff != "" {
		t.Fatalf("unit broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestDependentOptionsLoadsAndResets(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddOptions(catalog.KindOptionName, catalog.Params{"item": {"Pipe"}},
		model.Option{Label: "Size", Value: "Size"},
		model.Option{Label: "Finish", Value: "Finish"},
	)
	rule := resolver.DependentOptions{
		Kind:      catalog.KindOptionName,
		Binding:   catalog.Binding{"item": "item_name"},
		Target:    "option_name",
		Resets:    []string{"unit_of_measure"},
		KeepValid: true,
	}

	doc := optionDoc()
	patch, err := rule.Resolve(context.Background(), resolver.Change{Path: model.NewPath("h", "item_name"), Value: "Pipe", Document: doc, Catalog: mem})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patch.Apply(doc)
	if diff := cmp.Diff([]any{"Size", "Size", "Size"}, responses(doc, "option_name")); diff != "" {
		t.Fatalf("valid responses should survive (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{nil, nil, nil}, responses(doc, "unit_of_measure")); diff != "" {
		t.Fatalf("resets mismatch (-want +got):\n%s", diff)
	}
	f, _ := doc.Field(model.NewPath("o3", "option_name"))
	if len(f.Options) != 2 {
		t.Fatalf("expected options on every instance, got %v", f.Options)
	}

	_ = doc.Set(model.NewPath("h", "item_name"), nil)
	patch, err = rule.Resolve(context.Background(), resolver.Change{Path: model.NewPath("h", "item_name"), Value: nil, Document: doc, Catalog: mem})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patch.Apply(doc)
	if diff := cmp.Diff([]any{nil, nil, nil}, responses(doc, "option_name")); diff != "" {
		t.Fatalf("clear mismatch (-want +got):\n%s", diff)
	}
	if mem.Lookups() != 1 {
		t.Fatalf("clearing must not hit the catalog, got %d lookups", mem.Lookups())
	}
}

func TestDependentOptionsNeverWritesEarlierSections(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddOptions(catalog.KindOptionName, catalog.Params{"item": {"Valve"}}, model.Option{Label: "Pressure", Value: "Pressure"})
	rule := resolver.DependentOptions{
		Kind:    catalog.KindOptionName,
		Binding: catalog.Binding{"item": "item_name"},
		Target:  "option_name",
		Resets:  []string{"unit_of_measure"},
	}

	doc := optionDoc()
	doc.Sections[1].Fields[2].Response = "keep"
	doc.Sections = append(doc.Sections[:2:2], append([]model.Section{{
		SectionID: "header", DuplicateGroupID: "h2", Fields: []model.Field{
			{FieldID: "item_name", Type: model.FieldTypeDropdown, Response: "Valve"},
		},
	}}, doc.Sections[2:]...)...)

	patch, err := rule.Resolve(context.Background(), resolver.Change{Path: model.NewPath("h2", "item_name"), Value: "Valve", Document: doc, Catalog: mem})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patch.Apply(doc)

	if diff := cmp.Diff([]any{"Size", nil, nil}, responses(doc, "option_name")); diff != "" {
		t.Fatalf("target responses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"keep", nil, nil}, responses(doc, "unit_of_measure")); diff != "" {
		t.Fatalf("resets mismatch (-want +got):\n%s", diff)
	}
	earlier, _ := doc.Field(model.NewPath("o1", "option_name"))
	if len(earlier.Options) != 0 {
		t.Fatalf("expected earlier section untouched, got options %v", earlier.Options)
	}
	later, _ := doc.Field(model.NewPath("o3", "option_name"))
	if diff := cmp.Diff([]model.Option{{Label: "Pressure", Value: "Pressure"}}, later.Options); diff != "" {
		t.Fatalf("later options mismatch (-want +got):\n%s", diff)
	}
}

func TestDependentOptionsUnlockAndFailure(t *testing.T) {
	doc := &model.Document{Sections: []model.Section{{SectionID: "csi", DuplicateGroupID: "c", Fields: []model.Field{
		{FieldID: "divisions", Type: model.FieldTypeMultiSelect, Response: []string{"03"}},
		{FieldID: "description", Type: model.FieldTypeDropdown, ReadOnly: true, DefaultReadOnly: true},
	}}}}
	mem := catalog.NewMemory()
	mem.AddOptions(catalog.KindCSIDescription, catalog.Params{"divisions": {"03"}}, model.Option{Label: "Concrete", Value: "03-100"})
	rule := resolver.DependentOptions{Kind: catalog.KindCSIDescription, Binding: catalog.Binding{"divisions": "divisions"}, Target: "description", Unlock: true}
	change := resolver.Change{Path: model.NewPath("c", "divisions"), Value: []string{"03"}, Document: doc, Catalog: mem}

	patch, err := rule.Resolve(context.Background(), change)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patch.Apply(doc)
	desc, _ := doc.Field(model.NewPath("c", "description"))
	if desc.ReadOnly {
		t.Fatalf("expected description to unlock")
	}

	change.Value = []string{}
	patch, _ = rule.Resolve(context.Background(), change)
	patch.Apply(doc)
	if !desc.ReadOnly || len(desc.Options) != 0 {
		t.Fatalf("expected description reset to read-only with no options, got %+v", desc)
	}

	mem.FailKind(catalog.KindCSIDescription, errors.New("down"))
	change.Value = []string{"03"}
	if _, err := rule.Resolve(context.Background(), change); err == nil {
		t.Fatalf("expected lookup failure to surface")
	}
}

func TestMutuallyExclusiveAndPropagate(t *testing.T) {
	doc := &model.Document{Sections: []model.Section{{SectionID: "part", DuplicateGroupID: "p", Fields: []model.Field{
		{FieldID: "is_new_part", Type: model.FieldTypeBoolean, Response: true},
		{FieldID: "is_replacement", Type: model.FieldTypeBoolean, Response: true},
	}}}}
	rule := resolver.MutuallyExclusive("is_new_part", "is_replacement")
	patch, _ := rule.Resolve(context.Background(), resolver.Change{Path: model.NewPath("p", "is_replacement"), Value: true, Document: doc})
	patch.Apply(doc)
	if diff := cmp.Diff([]any{false}, responses(doc, "is_new_part")); diff != "" {
		t.Fatalf("exclusive mismatch (-want +got):\n%s", diff)
	}
	if patch, _ := rule.Resolve(context.Background(), resolver.Change{Path: model.NewPath("p", "is_new_part"), Value: false, Document: doc}); len(patch) != 0 {
		t.Fatalf("false must not force the sibling, got %v", patch)
	}

	opts := optionDoc()
	_ = opts.Set(model.NewPath("o2", "option_name"), "Finish")
	patch, _ = resolver.Propagate().Resolve(context.Background(), resolver.Change{Path: model.NewPath("o2", "option_name"), Value: "Finish", Document: opts})
	patch.Apply(opts)
	if diff := cmp.Diff([]any{"Size", "Finish", "Finish"}, responses(opts, "option_name")); diff != "" {
		t.Fatalf("propagate mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchApplySkipsMissingPaths(t *testing.T) {
	doc := optionDoc()
	patch := resolver.Patch{}.
		SetResponse(model.NewPath("gone", "unit_of_measure"), "x").
		SetResponse(model.NewPath("o1", "unit_of_measure"), "ft").
		SetReadOnly(model.NewPath("o1", "unit_of_measure"), false)

	applied := patch.Apply(doc)
	if diff := cmp.Diff([]model.Path{model.NewPath("o1", "unit_of_measure")}, applied); diff != "" {
		t.Fatalf("applied paths mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerLastWriteWins(t *testing.T) {
	tr := resolver.NewTracker()
	first := tr.Begin("g.f")
	second := tr.Begin("g.f")
	other := tr.Begin("g.x")

	if tr.IsCurrent("g.f", first) {
		t.Fatalf("first token should be stale")
	}
	if !tr.IsCurrent("g.f", second) || !tr.IsCurrent("g.x", other) {
		t.Fatalf("latest tokens should be current")
	}
	if tr.Finish("g.f", first) {
		t.Fatalf("finishing a stale token must report false")
	}
	if !tr.Finish("g.f", second) {
		t.Fatalf("finishing the latest token must report true")
	}
	tr.Reset()
	if tr.IsCurrent("g.x", other) || tr.InFlight() != 0 {
		t.Fatalf("reset should supersede everything")
	}
}
