// Package testsupport holds fixtures and fakes shared by package tests.
package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// LoadDocument reads a JSON document fixture.
func LoadDocument(t *testing.T, path string) model.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath returns a document fixture without requiring
// testing.T, for setup outside of a test function.
func LoadDocumentFromPath(path string) (model.Document, error) {
	if path == "" {
		return model.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("testsupport: unmarshal document: %w", err)
	}
	return doc, nil
}

// LoadGolden decodes a JSON golden file into out.
func LoadGolden(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
}

// WriteGolden writes value to a golden file when UPDATE_GOLDENS is set and
// reports whether it did.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// TemplatesFunc adapts a function into catalog.Templates.
type TemplatesFunc func(ctx context.Context, category string, tc catalog.TemplateContext) (model.Document, error)

// FetchTemplate implements catalog.Templates.
func (f TemplatesFunc) FetchTemplate(ctx context.Context, category string, tc catalog.TemplateContext) (model.Document, error) {
	return f(ctx, category, tc)
}

// StaticTemplate returns a template source serving a fresh copy of doc.
func StaticTemplate(doc model.Document) TemplatesFunc {
	return func(context.Context, string, catalog.TemplateContext) (model.Document, error) {
		return doc.Clone(), nil
	}
}

// GateCatalog is a catalog whose lookups block until the gate of their
// parameter value is released, so tests can force results to arrive out of
// order.
type GateCatalog struct {
	// Param names the lookup parameter whose value selects the gate.
	Param string

	mu      sync.Mutex
	gates   map[string]chan struct{}
	options map[string][]model.Option
}

// NewGateCatalog returns a GateCatalog keyed by param.
func NewGateCatalog(param string) *GateCatalog {
	return &GateCatalog{
		Param:   param,
		gates:   make(map[string]chan struct{}),
		options: make(map[string][]model.Option),
	}
}

// SetOptions sets the options returned once the gate of value opens.
func (g *GateCatalog) SetOptions(value string, options ...model.Option) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.options[value] = options
}

// Release opens the gate of value.
func (g *GateCatalog) Release(value string) {
	close(g.gate(value))
}

func (g *GateCatalog) gate(value string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[value]
	if !ok {
		ch = make(chan struct{})
		g.gates[value] = ch
	}
	return ch
}

// LookupOptions implements catalog.Catalog.
func (g *GateCatalog) LookupOptions(ctx context.Context, _ string, params catalog.Params) ([]model.Option, error) {
	value := params.Get(g.Param)
	select {
	case <-g.gate(value):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.options[value], nil
}

// CheckExists implements catalog.Catalog and never reports a match.
func (g *GateCatalog) CheckExists(context.Context, string, catalog.Params) (bool, error) {
	return false, nil
}

// Context returns a context cancelled when the test ends or after a short
// deadline.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
