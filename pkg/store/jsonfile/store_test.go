package jsonfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/store/jsonfile"
)

func newStore(t *testing.T) *jsonfile.Store {
	t.Helper()
	seq := 0
	return jsonfile.New(filepath.Join(t.TempDir(), "data", "store.json"),
		jsonfile.WithIDGenerator(func() string {
			seq++
			return "T-" + string(rune('0'+seq))
		}),
		jsonfile.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func sampleDocument() model.Document {
	return model.Document{Category: "custom-csi", Sections: []model.Section{{
		SectionID: "csi", DuplicateGroupID: "g1", Name: "CSI",
		Fields: []model.Field{
			{FieldID: "general_name", SectionID: "csi", Name: "General Name", Type: model.FieldTypeText, Response: "Rebar"},
			{FieldID: "divisions", SectionID: "csi", Name: "Divisions", Type: model.FieldTypeMultiSelect,
				Options: []model.Option{{Label: "03", Value: "03"}, {Label: "05", Value: "05"}}, Response: []string{"03", "05"}},
			{FieldID: "urgent", SectionID: "csi", Name: "Urgent", Type: model.FieldTypeBoolean, Response: true},
		},
	}}}
}

func TestSubmitAndFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.FetchTicket(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	receipt, err := s.SubmitTicket(ctx, catalog.Submission{
		Category: "custom-csi",
		Mode:     catalog.ModeCreate,
		Document: sampleDocument(),
		Payload:  catalog.Payload{Category: "custom-csi", Summary: "Custom CSI Rebar"},
	})
	if err != nil {
		t.Fatalf("SubmitTicket: %v", err)
	}
	if receipt.TicketID != "T-1" {
		t.Fatalf("unexpected ticket id %q", receipt.TicketID)
	}

	got, err := s.FetchTicket(ctx, "T-1")
	if err != nil {
		t.Fatalf("FetchTicket: %v", err)
	}
	want := sampleDocument()
	want.TicketID = "T-1"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	reopened := jsonfile.New(s.Path())
	list, err := reopened.Tickets(ctx)
	if err != nil {
		t.Fatalf("Tickets: %v", err)
	}
	if len(list) != 1 || list[0].Summary != "Custom CSI Rebar" || list[0].Category != "custom-csi" {
		t.Fatalf("unexpected listing %+v", list)
	}
}

func TestSubmitEditRequiresExistingTicket(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.SubmitTicket(ctx, catalog.Submission{Mode: catalog.ModeEdit, TicketID: "nope", Document: sampleDocument()})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	receipt, err := s.SubmitTicket(ctx, catalog.Submission{Mode: catalog.ModeCreate, Document: sampleDocument()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	edited := sampleDocument()
	if err := edited.Set(model.NewPath("g1", "general_name"), "Anchor"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	again, err := s.SubmitTicket(ctx, catalog.Submission{Mode: catalog.ModeEdit, TicketID: receipt.TicketID, Document: edited})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if again.TicketID != receipt.TicketID {
		t.Fatalf("edit must keep the ticket id, got %q", again.TicketID)
	}
	got, _ := s.FetchTicket(ctx, receipt.TicketID)
	if value, _ := got.Get(model.NewPath("g1", "general_name")); value != "Anchor" {
		t.Fatalf("expected edited value, got %v", value)
	}
}

func TestCatalogEntries(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if err := s.AddOptions(ctx, catalog.KindCSIDescription, catalog.Params{"divisions": {"03"}},
		model.Option{Label: "Cast-in-place", Value: "cip"}); err != nil {
		t.Fatalf("AddOptions: %v", err)
	}
	if err := s.AddOptions(ctx, catalog.KindCSIDescription, catalog.Params{"divisions": {"05"}},
		model.Option{Label: "Cast-in-place", Value: "cip"}, model.Option{Label: "Steel deck", Value: "deck"}); err != nil {
		t.Fatalf("AddOptions: %v", err)
	}
	if err := s.AddExisting(ctx, catalog.ExistsGeneralName, catalog.Params{"name": {" Rebar "}}); err != nil {
		t.Fatalf("AddExisting: %v", err)
	}

	options, err := s.LookupOptions(ctx, catalog.KindCSIDescription, catalog.Params{"divisions": {"03", "05"}})
	if err != nil {
		t.Fatalf("LookupOptions: %v", err)
	}
	want := []model.Option{{Label: "Cast-in-place", Value: "cip"}, {Label: "Steel deck", Value: "deck"}}
	if diff := cmp.Diff(want, options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	exists, err := s.CheckExists(ctx, catalog.ExistsGeneralName, catalog.Params{"name": {"REBAR"}})
	if err != nil || !exists {
		t.Fatalf("expected normalized match, got %v %v", exists, err)
	}
	exists, err = s.CheckExists(ctx, catalog.ExistsGeneralName, catalog.Params{"name": {"Anchor"}})
	if err != nil || exists {
		t.Fatalf("expected no match, got %v %v", exists, err)
	}
}

func TestImportSeed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed := `
options:
  - kind: option-name
    params: { item: [Pipe] }
    values:
      - { label: Size, value: Size }
      - { value: Schedule }
existing:
  - kind: option-value
    params: { item: [Pipe], option: [Size], value: [10 in] }
`
	stats, err := s.ImportSeed(ctx, strings.NewReader(seed))
	if err != nil {
		t.Fatalf("ImportSeed: %v", err)
	}
	if diff := cmp.Diff(jsonfile.SeedStats{Options: 2, Existing: 1}, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	again, err := s.ImportSeed(ctx, strings.NewReader(seed))
	if err != nil {
		t.Fatalf("second ImportSeed: %v", err)
	}
	if diff := cmp.Diff(jsonfile.SeedStats{}, again); diff != "" {
		t.Fatalf("re-import must be idempotent (-want +got):\n%s", diff)
	}

	options, err := s.LookupOptions(ctx, catalog.KindOptionName, catalog.Params{"item": {"Pipe"}})
	if err != nil {
		t.Fatalf("LookupOptions: %v", err)
	}
	if diff := cmp.Diff([]model.Option{{Label: "Size", Value: "Size"}, {Label: "Schedule", Value: "Schedule"}}, options); diff != "" {
		t.Fatalf("seeded options mismatch (-want +got):\n%s", diff)
	}
	exists, err := s.CheckExists(ctx, catalog.ExistsOptionValue, catalog.Params{"item": {"pipe"}, "option": {"size"}, "value": {"10 IN"}})
	if err != nil || !exists {
		t.Fatalf("expected seeded existence, got %v %v", exists, err)
	}

	if _, err := s.ImportSeed(ctx, strings.NewReader("options:\n  - params: {}\n")); err == nil {
		t.Fatalf("expected error for entry without kind")
	}
	if _, err := s.ImportSeed(ctx, strings.NewReader("bogus: true\n")); err == nil {
		t.Fatalf("expected error for unknown keys")
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := jsonfile.New(path)
	if _, err := s.LookupOptions(context.Background(), "any", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newStore(t)
	if _, err := s.FetchTicket(ctx, "T-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
