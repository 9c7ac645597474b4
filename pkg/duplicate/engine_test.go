package duplicate_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/duplicate"
	"github.com/goliatone/go-ticketform/pkg/model"
)

func sequentialIDs() duplicate.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("dup-%d", n)
	}
}

func templateDoc() model.Document {
	return model.Document{Sections: []model.Section{
		{SectionID: "header", DuplicateGroupID: "h", Fields: []model.Field{
			{FieldID: "title", SectionID: "header", Response: "Ticket"},
		}},
		{SectionID: "S", DuplicateGroupID: "s0", Duplicatable: true, Fields: []model.Field{
			{FieldID: "Name", SectionID: "S", Response: "Bolt", Options: []model.Option{{Label: "Bolt", Value: "Bolt"}}},
			{FieldID: "UoM", SectionID: "S", Response: "EA"},
		}},
		{SectionID: "footer", DuplicateGroupID: "f", Fields: []model.Field{
			{FieldID: "notes", SectionID: "footer"},
		}},
	}}
}

func order(doc model.Document) []string {
	out := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		out = append(out, s.SectionID+"/"+s.DuplicateGroupID)
	}
	return out
}

func TestDuplicateCarryOverAndIsolation(t *testing.T) {
	engine := duplicate.New(duplicate.WithIDGenerator(sequentialIDs()))
	doc := templateDoc()
	original := doc.Sections[1].Clone()

	id, err := engine.Duplicate(&doc, "S", []string{"Name"})
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if id != "dup-1" {
		t.Fatalf("unexpected group id %q", id)
	}

	if diff := cmp.Diff(original, doc.Sections[1]); diff != "" {
		t.Fatalf("source section mutated (-want +got):\n%s", diff)
	}

	dup := doc.Sections[2]
	if dup.SectionID != "S" || dup.DuplicateGroupID != "dup-1" {
		t.Fatalf("duplicate not inserted after source: %v", order(doc))
	}
	if got := dup.Fields[0].Response; got != "Bolt" {
		t.Fatalf("carry-over field not preserved: %v", got)
	}
	if got := dup.Fields[1].Response; got != nil {
		t.Fatalf("non carry-over field not cleared: %v", got)
	}
	if diff := cmp.Diff(original.Fields[0].Options, dup.Fields[0].Options); diff != "" {
		t.Fatalf("options not copied (-want +got):\n%s", diff)
	}
}

func TestDuplicateChainsAfterLastInstance(t *testing.T) {
	engine := duplicate.New(duplicate.WithIDGenerator(sequentialIDs()))
	doc := templateDoc()

	for i := 0; i < 3; i++ {
		if _, err := engine.Duplicate(&doc, "S", nil); err != nil {
			t.Fatalf("Duplicate #%d: %v", i, err)
		}
	}

	want := []string{"header/h", "S/s0", "S/dup-1", "S/dup-2", "S/dup-3", "footer/f"}
	if diff := cmp.Diff(want, order(doc)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveKeepsOrderAndIsIdempotent(t *testing.T) {
	engine := duplicate.New(duplicate.WithIDGenerator(sequentialIDs()))
	doc := templateDoc()
	for i := 0; i < 3; i++ {
		if _, err := engine.Duplicate(&doc, "S", nil); err != nil {
			t.Fatalf("Duplicate: %v", err)
		}
	}
	doc.Sections[4].Fields[1].Response = "BOX"

	removed, err := engine.Remove(&doc, "dup-2")
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	want := []string{"header/h", "S/s0", "S/dup-1", "S/dup-3", "footer/f"}
	if diff := cmp.Diff(want, order(doc)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if got := doc.Sections[3].Fields[1].Response; got != "BOX" {
		t.Fatalf("sibling mutated by removal: %v", got)
	}

	before := doc.Clone()
	removed, err = engine.Remove(&doc, "dup-2")
	if err != nil || removed {
		t.Fatalf("second Remove should be a no-op: removed=%v err=%v", removed, err)
	}
	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("document changed by stale remove (-want +got):\n%s", diff)
	}

	// A new duplicate lands after the last remaining instance.
	if _, err := engine.Duplicate(&doc, "S", nil); err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	want = []string{"header/h", "S/s0", "S/dup-1", "S/dup-3", "S/dup-4", "footer/f"}
	if diff := cmp.Diff(want, order(doc)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveRefusesCanonical(t *testing.T) {
	engine := duplicate.New()
	doc := templateDoc()
	before := doc.Clone()

	removed, err := engine.Remove(&doc, "s0")
	if !errors.Is(err, duplicate.ErrCanonicalSection) || removed {
		t.Fatalf("expected ErrCanonicalSection, got removed=%v err=%v", removed, err)
	}
	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
}

func TestDuplicateStaleAndNonDuplicatable(t *testing.T) {
	engine := duplicate.New()
	doc := templateDoc()
	before := doc.Clone()

	id, err := engine.Duplicate(&doc, "missing", nil)
	if err != nil || id != "" {
		t.Fatalf("stale duplicate should be a no-op: id=%q err=%v", id, err)
	}

	_, err = engine.Duplicate(&doc, "header", nil)
	if !errors.Is(err, duplicate.ErrNotDuplicatable) {
		t.Fatalf("expected ErrNotDuplicatable, got %v", err)
	}
	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
}

func TestGroupIDsStayUnique(t *testing.T) {
	calls := 0
	colliding := func() string {
		calls++
		if calls == 1 {
			return "s0"
		}
		return fmt.Sprintf("fresh-%d", calls)
	}
	engine := duplicate.New(duplicate.WithIDGenerator(colliding))
	doc := templateDoc()

	id, err := engine.Duplicate(&doc, "S", nil)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if id != "fresh-2" {
		t.Fatalf("expected generator to retry past collision, got %q", id)
	}
}
