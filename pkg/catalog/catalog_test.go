package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

func TestMemoryLookupUnionsMultiValuedParams(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddOptions(catalog.KindCSIDescription, catalog.Params{"divisions": {"03"}},
		model.Option{Label: "Concrete", Value: "03-100"},
		model.Option{Label: "Shared", Value: "shared"},
	)
	mem.AddOptions(catalog.KindCSIDescription, catalog.Params{"divisions": {"05"}},
		model.Option{Label: "Shared", Value: "shared"},
		model.Option{Label: "Metals", Value: "05-100"},
	)

	got, err := mem.LookupOptions(context.Background(), catalog.KindCSIDescription, catalog.Params{"divisions": {"03", "05"}})
	if err != nil {
		t.Fatalf("LookupOptions: %v", err)
	}
	want := []model.Option{
		{Label: "Concrete", Value: "03-100"},
		{Label: "Shared", Value: "shared"},
		{Label: "Metals", Value: "05-100"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	only, err := mem.LookupOptions(context.Background(), catalog.KindCSIDescription, catalog.Params{"divisions": {"05"}})
	if err != nil {
		t.Fatalf("LookupOptions: %v", err)
	}
	if len(only) != 2 {
		t.Fatalf("expected exactly the 05 options, got %v", only)
	}
	if mem.Lookups() != 2 {
		t.Fatalf("expected 2 lookups, got %d", mem.Lookups())
	}
}

func TestMemoryExistsIsCaseAndSpaceInsensitive(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddExisting(catalog.ExistsOptionValue, catalog.Params{"option": {"Size"}, "value": {"10 IN"}})

	ok, err := mem.CheckExists(context.Background(), catalog.ExistsOptionValue, catalog.Params{"option": {" size "}, "value": {"10 in"}})
	if err != nil {
		t.Fatalf("CheckExists: %v", err)
	}
	if !ok {
		t.Fatalf("expected normalised match")
	}

	ok, err = mem.CheckExists(context.Background(), catalog.ExistsOptionValue, catalog.Params{"option": {"size"}, "value": {"12 in"}})
	if err != nil || ok {
		t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryFailures(t *testing.T) {
	mem := catalog.NewMemory()
	boom := errors.New("boom")
	mem.FailKind(catalog.KindUnitOfMeasure, boom)

	if _, err := mem.LookupOptions(context.Background(), catalog.KindUnitOfMeasure, nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	mem.FailKind(catalog.KindUnitOfMeasure, nil)
	if _, err := mem.LookupOptions(context.Background(), catalog.KindUnitOfMeasure, nil); err != nil {
		t.Fatalf("failure not cleared: %v", err)
	}
}

func TestMemorySubmitAndFetch(t *testing.T) {
	mem := catalog.NewMemory()
	doc := model.Document{Sections: []model.Section{{SectionID: "s", DuplicateGroupID: "g", Fields: []model.Field{{FieldID: "f", Response: "v"}}}}}

	receipt, err := mem.SubmitTicket(context.Background(), catalog.Submission{Category: "default", Mode: catalog.ModeCreate, Document: doc})
	if err != nil {
		t.Fatalf("SubmitTicket: %v", err)
	}
	if receipt.TicketID == "" {
		t.Fatalf("expected ticket id")
	}

	stored, err := mem.FetchTicket(context.Background(), receipt.TicketID)
	if err != nil {
		t.Fatalf("FetchTicket: %v", err)
	}
	if stored.TicketID != receipt.TicketID || stored.Category != "default" {
		t.Fatalf("unexpected stored metadata: %+v", stored)
	}

	_, err = mem.SubmitTicket(context.Background(), catalog.Submission{Mode: catalog.ModeEdit, TicketID: "missing", Document: doc})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for edit of unknown ticket, got %v", err)
	}
	if mem.Submits() != 2 {
		t.Fatalf("expected 2 submit calls, got %d", mem.Submits())
	}
}

func TestParamsExpand(t *testing.T) {
	params := catalog.Params{"b": {"1", "2"}, "a": {"x"}}
	got := params.Expand()
	want := []catalog.Params{
		{"a": {"x"}, "b": {"1"}},
		{"a": {"x"}, "b": {"2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expand mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClientLookupAndExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/options/item-description":
			if got := r.URL.Query().Get("item"); got != "Pipe" {
				http.Error(w, "bad item "+got, http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"label":"Steel pipe","value":"steel"},{"value":"pvc"},{"label":"ignored"}]}`))
		case "/api/exists/general-name":
			_, _ = w.Write([]byte(`{"exists":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := catalog.NewHTTPClient(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	opts, err := client.LookupOptions(context.Background(), catalog.KindItemDescription, catalog.Params{"item": {"Pipe"}})
	if err != nil {
		t.Fatalf("LookupOptions: %v", err)
	}
	want := []model.Option{{Label: "Steel pipe", Value: "steel"}, {Label: "pvc", Value: "pvc"}}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	exists, err := client.CheckExists(context.Background(), catalog.ExistsGeneralName, catalog.Params{"name": {"x"}})
	if err != nil || !exists {
		t.Fatalf("CheckExists: exists=%v err=%v", exists, err)
	}

	_, err = client.FetchTicket(context.Background(), "nope")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPClientSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/tickets/T-1" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":{"sections.0.general_name":["already taken"]}}`))
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/tickets" {
			_, _ = w.Write([]byte(`{"ticketId":"T-2"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := catalog.NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = client.SubmitTicket(context.Background(), catalog.Submission{Mode: catalog.ModeEdit, TicketID: "T-1"})
	var rejected *catalog.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if diff := cmp.Diff([]string{"already taken"}, rejected.Fields["sections.0.general_name"]); diff != "" {
		t.Fatalf("rejection payload mismatch (-want +got):\n%s", diff)
	}

	receipt, err := client.SubmitTicket(context.Background(), catalog.Submission{Mode: catalog.ModeCreate})
	if err != nil || receipt.TicketID != "T-2" {
		t.Fatalf("create: receipt=%+v err=%v", receipt, err)
	}
}

func TestNewHTTPClientRequiresAbsoluteURL(t *testing.T) {
	if _, err := catalog.NewHTTPClient("/relative"); err == nil {
		t.Fatalf("expected error for relative url")
	}
}
