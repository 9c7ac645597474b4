package submission_test

import (
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/submission"
	"github.com/goliatone/go-ticketform/pkg/testsupport"
)

func TestBuildPayloadGolden(t *testing.T) {
	doc := testsupport.LoadDocument(t, filepath.Join("testdata", "line_items.json"))
	mem := catalog.NewMemory()
	p := submission.New(mem, mem, submission.WithSummaries(func(string) string {
		return "{{ title }} ({{ category }})"
	}))

	payload, err := p.BuildPayload(submission.Request{Mode: catalog.ModeCreate, Document: doc})
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}

	goldenPath := filepath.Join("testdata", "line_items.payload.json")
	if testsupport.WriteGolden(t, goldenPath, payload) {
		return
	}

	// Round trip so numbers and lists decode the same way as the golden.
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var got catalog.Payload
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	var want catalog.Payload
	testsupport.LoadGolden(t, goldenPath, &want)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}
