package ticketform

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/session"
)

func TestEmbeddedTemplatesReadable(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "item-option.yaml"); err != nil {
		t.Fatalf("expected embedded template to be readable: %v", err)
	}
}

func TestEngineDefaults(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []string{"custom-csi", "default", "item-csi", "item-option", "ped-part"}
	if diff := cmp.Diff(want, e.Categories()); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineStartSubmitEdit(t *testing.T) {
	mem := catalog.NewMemory()
	e, err := New(WithTickets(mem), WithCatalog(mem))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	s, err := e.Start(ctx, "default", TemplateContext{Prefill: map[string]any{"title": "Leaking tap"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()
	res, err := s.OnSubmit(ctx)
	if err != nil {
		t.Fatalf("OnSubmit: %v", err)
	}
	if res.Payload.Summary != "Leaking tap" {
		t.Fatalf("expected summary from template, got %q", res.Payload.Summary)
	}

	edit, err := e.Edit(ctx, res.Receipt.TicketID)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	defer edit.Close()
	if edit.Mode() != catalog.ModeEdit || edit.State() != session.StateReady {
		t.Fatalf("unexpected edit session %s %s", edit.Mode(), edit.State())
	}

	if _, err := e.Start(ctx, "nope", TemplateContext{}); err == nil {
		t.Fatalf("expected unknown category to fail")
	}
}

func TestEngineStartsEveryCategoryName(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]string{
		"default":            "default",
		"Custom-CSI":         "custom-csi",
		"Item-CSI":           "item-csi",
		"Item-Option":        "item-option",
		"PED-Equipment-Part": "ped-part",
		"ped part":           "ped-part",
		"csi":                "custom-csi",
	}
	for name, want := range cases {
		s, err := e.Start(context.Background(), name, TemplateContext{})
		if err != nil {
			t.Fatalf("Start(%q): %v", name, err)
		}
		doc := s.Snapshot()
		if doc.Category != want || s.Variant() != want {
			t.Fatalf("Start(%q): category %q variant %q, want %q", name, doc.Category, s.Variant(), want)
		}
		s.Close()
	}
}

func TestEngineTemplateFS(t *testing.T) {
	fsys := fstest.MapFS{"one.yaml": {Data: []byte(`
categories:
  hello:
    sections:
      - id: greeting
        fields:
          - id: text
`)}}
	e, err := New(WithTemplateFS(fsys))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := e.Start(context.Background(), "hello", TemplateContext{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()
	doc := s.Snapshot()
	if _, ok := doc.Field(model.NewPath(doc.Sections[0].DuplicateGroupID, "text")); !ok {
		t.Fatalf("expected templated field, got %+v", doc)
	}
}
