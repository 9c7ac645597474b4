package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleDocument() Document {
	return Document{
		Category: "item-option",
		Sections: []Section{
			{SectionID: "item", DuplicateGroupID: "g1", Name: "Item", Fields: []Field{
				{FieldID: "item_name", SectionID: "item", Type: FieldTypeDropdown, Response: "Pipe"},
			}},
			{SectionID: "option", DuplicateGroupID: "g2", Name: "Option", Duplicatable: true, Fields: []Field{
				{FieldID: "option_name", SectionID: "option", Type: FieldTypeDropdown, Response: "Size"},
				{FieldID: "option_value", SectionID: "option", Type: FieldTypeText, Response: "10in"},
			}},
			{SectionID: "option", DuplicateGroupID: "g3", Name: "Option", Duplicatable: true, Fields: []Field{
				{FieldID: "option_name", SectionID: "option", Type: FieldTypeDropdown, Response: "Size"},
				{FieldID: "option_value", SectionID: "option", Type: FieldTypeText},
			}},
		},
	}
}

func TestDocumentIndexLookups(t *testing.T) {
	doc := sampleDocument()

	if got := doc.FirstIndexOf("option"); got != 1 {
		t.Fatalf("FirstIndexOf: got %d", got)
	}
	if got := doc.LastIndexOf("option"); got != 2 {
		t.Fatalf("LastIndexOf: got %d", got)
	}
	if got := doc.LastIndexOf("missing"); got != -1 {
		t.Fatalf("LastIndexOf missing: got %d", got)
	}
	if !doc.IsCanonical(1) || doc.IsCanonical(2) {
		t.Fatalf("canonical detection mismatch")
	}
	if diff := cmp.Diff([]int{1, 2}, doc.Instances("option")); diff != "" {
		t.Fatalf("instances mismatch (-want +got):\n%s", diff)
	}
	if got := doc.SectionIndex("g3"); got != 2 {
		t.Fatalf("SectionIndex: got %d", got)
	}
}

func TestDocumentGetSet(t *testing.T) {
	doc := sampleDocument()
	path := NewPath("g3", "option_value")

	if err := doc.Set(path, "12in"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := doc.Get(path)
	if !ok || got != "12in" {
		t.Fatalf("Get: got %v (ok=%v)", got, ok)
	}

	err := doc.Set(NewPath("g9", "option_value"), "x")
	if !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestDocumentInsertRemoveSection(t *testing.T) {
	doc := sampleDocument()
	extra := Section{SectionID: "option", DuplicateGroupID: "g4"}

	if err := doc.InsertSection(2, extra); err != nil {
		t.Fatalf("InsertSection: %v", err)
	}
	want := []string{"g1", "g2", "g4", "g3"}
	if diff := cmp.Diff(want, groupIDs(doc)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	removed, err := doc.RemoveSection(2)
	if err != nil {
		t.Fatalf("RemoveSection: %v", err)
	}
	if removed.DuplicateGroupID != "g4" {
		t.Fatalf("removed wrong section: %s", removed.DuplicateGroupID)
	}
	if diff := cmp.Diff([]string{"g1", "g2", "g3"}, groupIDs(doc)); diff != "" {
		t.Fatalf("order mismatch after remove (-want +got):\n%s", diff)
	}

	if err := doc.InsertSection(7, extra); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := doc.RemoveSection(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	doc.Sections[0].Fields[0].Response = []string{"a", "b"}
	doc.Sections[0].Fields[0].Options = []Option{{Label: "A", Value: "a"}}

	clone := doc.Clone()
	clone.Sections[0].Fields[0].Response.([]string)[0] = "changed"
	clone.Sections[0].Fields[0].Options[0].Label = "changed"
	clone.Sections[1].Fields[1].Response = "changed"

	if diff := cmp.Diff(sampleDocument().Sections[1], doc.Sections[1]); diff != "" {
		t.Fatalf("source mutated through clone (-want +got):\n%s", diff)
	}
	if got := doc.Sections[0].Fields[0].Response.([]string)[0]; got != "a" {
		t.Fatalf("list response aliased: %q", got)
	}
	if got := doc.Sections[0].Fields[0].Options[0].Label; got != "A" {
		t.Fatalf("options aliased: %q", got)
	}
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath(" 1f0c.option_value ")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if path.GroupID != "1f0c" || path.FieldID != "option_value" {
		t.Fatalf("unexpected path %+v", path)
	}
	if path.String() != "1f0c.option_value" {
		t.Fatalf("String: %q", path.String())
	}
	for _, raw := range []string{"", "nodot", ".field", "group."} {
		if _, err := ParsePath(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	cases := map[string]struct {
		value any
		want  bool
	}{
		"nil":          {nil, true},
		"blank string": {"   ", true},
		"string":       {"x", false},
		"empty list":   {[]string{}, true},
		"list":         {[]string{"a"}, false},
		"false":        {false, false},
		"zero":         {0, false},
		"empty any":    {[]any{}, true},
	}
	for name, tc := range cases {
		if got := IsEmpty(tc.value); got != tc.want {
			t.Fatalf("%s: IsEmpty(%v) = %v, want %v", name, tc.value, got, tc.want)
		}
	}
}

func TestLabelFor(t *testing.T) {
	cases := map[string]string{
		"unit_of_measure": "Unit Of Measure",
		"partNumber":      "Part Number",
		"item-csi":        "Item Csi",
		"option2":         "Option 2",
	}
	for in, want := range cases {
		if got := LabelFor(in); got != want {
			t.Fatalf("LabelFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func groupIDs(doc Document) []string {
	out := make([]string, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		out = append(out, section.DuplicateGroupID)
	}
	return out
}
