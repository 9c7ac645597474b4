package submission

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Summarizer renders one-line ticket summaries from pongo2 templates. Field
// ids of canonical sections are exposed as top-level variables next to
// category, ticket_id and sections.
type Summarizer struct {
	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// NewSummarizer constructs a Summarizer with an empty compile cache.
func NewSummarizer() *Summarizer {
	return &Summarizer{cache: make(map[string]*pongo2.Template)}
}

// Render executes tpl against doc. An empty template renders "".
func (s *Summarizer) Render(tpl string, doc model.Document) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", nil
	}
	compiled, err := s.compile(tpl)
	if err != nil {
		return "", err
	}
	out, err := compiled.Execute(summaryContext(doc))
	if err != nil {
		return "", fmt.Errorf("submission: render summary: %w", err)
	}
	return strings.Join(strings.Fields(out), " "), nil
}

func (s *Summarizer) compile(tpl string) (*pongo2.Template, error) {
	s.mu.RLock()
	compiled, ok := s.cache[tpl]
	s.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	// Summaries are plain text; markup is stripped afterwards by SanitizeText.
	compiled, err := pongo2.FromString("{% autoescape off %}" + tpl + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("submission: parse summary template: %w", err)
	}
	s.mu.Lock()
	s.cache[tpl] = compiled
	s.mu.Unlock()
	return compiled, nil
}

func summaryContext(doc model.Document) pongo2.Context {
	ctx := pongo2.Context{
		"category":  doc.Category,
		"ticket_id": doc.TicketID,
	}
	sections := make([]map[string]any, 0, len(doc.Sections))
	for i, sec := range doc.Sections {
		values := sec.Values()
		sections = append(sections, map[string]any{
			"id":     sec.SectionID,
			"name":   sec.Name,
			"values": values,
		})
		if !doc.IsCanonical(i) {
			continue
		}
		for id, v := range values {
			if _, taken := ctx[id]; !taken {
				ctx[id] = v
			}
		}
	}
	ctx["sections"] = sections
	return ctx
}
