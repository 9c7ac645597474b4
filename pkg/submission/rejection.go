package submission

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/validation"
)

// MapRejection turns a backend rejection into issues addressed by document
// paths. Accepted key forms are "<group>.<field>", section-index paths such
// as "sections.2.fields.part_number", JSON pointers of the same shape, and
// bare field ids (resolved to the canonical instance). Unknown keys become
// form-level issues so messages are not lost.
func MapRejection(doc *model.Document, rejected *catalog.RejectedError) validation.Issues {
	if rejected == nil {
		return nil
	}

	var out validation.Issues
	for _, raw := range sortedKeys(rejected.Fields) {
		messages := normalizeMessages(rejected.Fields[raw])
		if len(messages) == 0 {
			continue
		}
		path, ok := resolveRejectedPath(doc, raw)
		for _, msg := range messages {
			if !ok {
				out = append(out, validation.FormIssue(validation.CodeRejected, msg))
				continue
			}
			out = append(out, validation.IssueAt(path, validation.CodeRejected, msg, nil))
		}
	}
	for _, msg := range normalizeMessages(rejected.Form) {
		out = append(out, validation.FormIssue(validation.CodeRejected, msg))
	}
	if len(out) == 0 {
		out = validation.Issues{validation.FormIssue(validation.CodeRejected, "The ticket was rejected")}
	}
	return out
}

func resolveRejectedPath(doc *model.Document, raw string) (model.Path, bool) {
	segments := pathSegments(raw)
	if len(segments) == 0 {
		return model.Path{}, false
	}

	if len(segments) == 2 {
		path := model.NewPath(segments[0], segments[1])
		if _, ok := doc.Field(path); ok {
			return path, true
		}
	}

	if segments[0] == "sections" && len(segments) >= 3 {
		idx, err := strconv.Atoi(segments[1])
		if err != nil || idx < 0 || idx >= len(doc.Sections) {
			return model.Path{}, false
		}
		fieldID := segments[len(segments)-1]
		path := model.NewPath(doc.Sections[idx].DuplicateGroupID, fieldID)
		if _, ok := doc.Field(path); ok {
			return path, true
		}
		return model.Path{}, false
	}

	if len(segments) == 1 {
		for i := range doc.Sections {
			if !doc.IsCanonical(i) {
				continue
			}
			if _, ok := doc.Sections[i].Field(segments[0]); ok {
				return model.NewPath(doc.Sections[i].DuplicateGroupID, segments[0]), true
			}
		}
	}
	return model.Path{}, false
}

func pathSegments(raw string) []string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		out = append(out, p)
	}
	return out
}

func normalizeMessages(messages []string) []string {
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		trimmed := strings.TrimSpace(m)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
