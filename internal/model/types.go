package model

// FieldType enumerates the answerable field kinds a ticket template can use.
type FieldType string

const (
	FieldTypeText        FieldType = "TEXT"
	FieldTypeTextArea    FieldType = "TEXTAREA"
	FieldTypeDropdown    FieldType = "DROPDOWN"
	FieldTypeMultiSelect FieldType = "MULTI_SELECT"
	FieldTypeNumber      FieldType = "NUMBER"
	FieldTypeBoolean     FieldType = "BOOLEAN"
	FieldTypeEmail       FieldType = "EMAIL"
	FieldTypeDate        FieldType = "DATE"
)

// Valid reports whether the type is one of the known field kinds.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextArea, FieldTypeDropdown, FieldTypeMultiSelect,
		FieldTypeNumber, FieldTypeBoolean, FieldTypeEmail, FieldTypeDate:
		return true
	default:
		return false
	}
}

// IsList reports whether responses of this type are lists of values.
func (t FieldType) IsList() bool {
	return t == FieldTypeMultiSelect
}

// IsFreeText reports whether the field accepts arbitrary user text.
func (t FieldType) IsFreeText() bool {
	return t == FieldTypeText || t == FieldTypeTextArea || t == FieldTypeEmail
}

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
	ValidationRuleEmail     = "email"
)

// ValidationRule represents a single static constraint applied to a field.
// Numeric bounds and length limits encode their threshold in Params["value"]
// while pattern rules keep the expression in Params["pattern"].
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Option is a single selectable {label, value} pair.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Field is one answerable unit inside a section instance.
type Field struct {
	FieldID         string            `json:"fieldId"`
	SectionID       string            `json:"sectionId"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Placeholder     string            `json:"placeholder,omitempty"`
	Type            FieldType         `json:"type"`
	Required        bool              `json:"required"`
	RequiredWhen    string            `json:"requiredWhen,omitempty"`
	ReadOnly        bool              `json:"readOnly"`
	DefaultReadOnly bool              `json:"defaultReadOnly"`
	Options         []Option          `json:"options,omitempty"`
	Response        any               `json:"response"`
	Validations     []ValidationRule  `json:"validations,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Section is an ordered group of fields. SectionID identifies the template
// and is shared across duplicates; DuplicateGroupID identifies the physical
// instance.
type Section struct {
	SectionID        string  `json:"sectionId"`
	DuplicateGroupID string  `json:"duplicateGroupId"`
	Name             string  `json:"name"`
	Duplicatable     bool    `json:"duplicatable"`
	Fields           []Field `json:"fields"`
}

// Document is the full content of one ticket: an ordered list of sections.
type Document struct {
	Category string    `json:"category"`
	TicketID string    `json:"ticketId,omitempty"`
	Sections []Section `json:"sections"`
}
