// Package templates loads category templates (the section/field blueprint of
// each ticket category) from YAML or JSONC files and instantiates them as
// fresh form documents.
package templates

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/rules"
	"github.com/goliatone/go-ticketform/pkg/variant"
)

type documentFile struct {
	Categories map[string]categoryFile `json:"categories" yaml:"categories"`
}

type categoryFile struct {
	Title    string        `json:"title" yaml:"title"`
	Summary  string        `json:"summary" yaml:"summary"`
	Sections []sectionFile `json:"sections" yaml:"sections"`
}

type sectionFile struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Duplicatable bool        `json:"duplicatable" yaml:"duplicatable"`
	Fields       []fieldFile `json:"fields" yaml:"fields"`
}

type fieldFile struct {
	ID           string                 `json:"id" yaml:"id"`
	Name         string                 `json:"name" yaml:"name"`
	Description  string                 `json:"description" yaml:"description"`
	Placeholder  string                 `json:"placeholder" yaml:"placeholder"`
	Type         string                 `json:"type" yaml:"type"`
	Required     bool                   `json:"required" yaml:"required"`
	RequiredWhen string                 `json:"requiredWhen" yaml:"requiredWhen"`
	ReadOnly     bool                   `json:"readOnly" yaml:"readOnly"`
	Options      []model.Option         `json:"options" yaml:"options"`
	Validations  []model.ValidationRule `json:"validations" yaml:"validations"`
	Default      any                    `json:"default" yaml:"default"`
	Metadata     map[string]string      `json:"metadata" yaml:"metadata"`
}

// LoadFS walks fsys and parses every .yaml, .yml, .json and .jsonc file as a
// template document. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS, options ...Option) (*Store, error) {
	store := newStore(options...)
	if fsys == nil {
		return store, nil
	}

	eval := rules.New()
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isTemplateFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("templates: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawName, raw := range doc.Categories {
			name := variant.Normalize(rawName)
			if name == "" {
				return fmt.Errorf("templates: file %s defines an empty category name", path)
			}
			if _, exists := store.categories[name]; exists {
				return fmt.Errorf("templates: duplicate category %q (file %s)", name, path)
			}
			cat, err := normaliseCategory(raw, name, path, eval)
			if err != nil {
				return err
			}
			store.categories[name] = cat
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if strings.TrimSpace(string(data)) == "" {
		return doc, fmt.Errorf("templates: file %s is empty", source)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return documentFile{}, fmt.Errorf("templates: parse %s: %w", source, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("templates: parse %s: %w", source, err)
		}
	}
	return doc, nil
}

func normaliseCategory(raw categoryFile, name, source string, eval *rules.Evaluator) (Category, error) {
	cat := Category{
		Name:    name,
		Title:   strings.TrimSpace(raw.Title),
		Summary: raw.Summary,
		Source:  source,
	}
	if cat.Title == "" {
		cat.Title = model.LabelFor(name)
	}
	if len(raw.Sections) == 0 {
		return Category{}, fmt.Errorf("templates: category %q (file %s) has no sections", name, source)
	}

	seenSections := make(map[string]struct{}, len(raw.Sections))
	for _, rs := range raw.Sections {
		sectionID := strings.TrimSpace(rs.ID)
		if sectionID == "" {
			return Category{}, fmt.Errorf("templates: category %q (file %s) has a section without id", name, source)
		}
		if _, dup := seenSections[sectionID]; dup {
			return Category{}, fmt.Errorf("templates: category %q (file %s) defines duplicate section %q", name, source, sectionID)
		}
		seenSections[sectionID] = struct{}{}

		section := model.Section{
			SectionID:    sectionID,
			Name:         strings.TrimSpace(rs.Name),
			Duplicatable: rs.Duplicatable,
		}
		if section.Name == "" {
			section.Name = model.LabelFor(sectionID)
		}

		seenFields := make(map[string]struct{}, len(rs.Fields))
		for _, rf := range rs.Fields {
			field, err := normaliseField(rf, sectionID, eval)
			if err != nil {
				return Category{}, fmt.Errorf("templates: category %q (file %s): %w", name, source, err)
			}
			if _, dup := seenFields[field.FieldID]; dup {
				return Category{}, fmt.Errorf("templates: category %q (file %s) section %q defines duplicate field %q", name, source, sectionID, field.FieldID)
			}
			seenFields[field.FieldID] = struct{}{}
			section.Fields = append(section.Fields, field)
		}
		cat.Sections = append(cat.Sections, section)
	}
	return cat, nil
}

func normaliseField(raw fieldFile, sectionID string, eval *rules.Evaluator) (model.Field, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return model.Field{}, fmt.Errorf("section %q has a field without id", sectionID)
	}
	if strings.Contains(id, ".") {
		return model.Field{}, fmt.Errorf("field id %q must not contain '.'", id)
	}

	ft := model.FieldType(strings.ToUpper(strings.TrimSpace(raw.Type)))
	if ft == "" {
		ft = model.FieldTypeText
	}
	if !ft.Valid() {
		return model.Field{}, fmt.Errorf("field %q has unknown type %q", id, raw.Type)
	}
	if err := eval.Check(raw.RequiredWhen); err != nil {
		return model.Field{}, fmt.Errorf("field %q requiredWhen: %w", id, err)
	}
	for _, rule := range raw.Validations {
		if rule.Kind != model.ValidationRulePattern {
			continue
		}
		if _, err := regexp.Compile(rule.Params["pattern"]); err != nil {
			return model.Field{}, fmt.Errorf("field %q pattern: %w", id, err)
		}
	}

	field := model.Field{
		FieldID:         id,
		SectionID:       sectionID,
		Name:            strings.TrimSpace(raw.Name),
		Description:     raw.Description,
		Placeholder:     raw.Placeholder,
		Type:            ft,
		Required:        raw.Required,
		RequiredWhen:    strings.TrimSpace(raw.RequiredWhen),
		ReadOnly:        raw.ReadOnly,
		DefaultReadOnly: raw.ReadOnly,
		Options:         append([]model.Option(nil), raw.Options...),
		Validations:     append([]model.ValidationRule(nil), raw.Validations...),
		Response:        normaliseDefault(raw.Default),
		Metadata:        raw.Metadata,
	}
	if field.Name == "" {
		field.Name = model.LabelFor(id)
	}
	return field, nil
}

// normaliseDefault converts decoded YAML/JSON lists into []string so that
// list responses have one shape regardless of source format.
func normaliseDefault(value any) any {
	list, ok := value.([]any)
	if !ok {
		return value
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func isTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
