package model

import internalmodel "github.com/goliatone/go-ticketform/internal/model"

// FieldType re-exports the internal FieldType enumeration.
type FieldType = internalmodel.FieldType

const (
	FieldTypeText        = internalmodel.FieldTypeText
	FieldTypeTextArea    = internalmodel.FieldTypeTextArea
	FieldTypeDropdown    = internalmodel.FieldTypeDropdown
	FieldTypeMultiSelect = internalmodel.FieldTypeMultiSelect
	FieldTypeNumber      = internalmodel.FieldTypeNumber
	FieldTypeBoolean     = internalmodel.FieldTypeBoolean
	FieldTypeEmail       = internalmodel.FieldTypeEmail
	FieldTypeDate        = internalmodel.FieldTypeDate
)

const (
	ValidationRuleMin       = internalmodel.ValidationRuleMin
	ValidationRuleMax       = internalmodel.ValidationRuleMax
	ValidationRuleMinLength = internalmodel.ValidationRuleMinLength
	ValidationRuleMaxLength = internalmodel.ValidationRuleMaxLength
	ValidationRulePattern   = internalmodel.ValidationRulePattern
	ValidationRuleEmail     = internalmodel.ValidationRuleEmail
)

type ValidationRule = internalmodel.ValidationRule
type Option = internalmodel.Option
type Field = internalmodel.Field
type Section = internalmodel.Section
type Document = internalmodel.Document
type Path = internalmodel.Path

var (
	ErrFieldNotFound   = internalmodel.ErrFieldNotFound
	ErrIndexOutOfRange = internalmodel.ErrIndexOutOfRange
)

// NewPath constructs a field path.
func NewPath(groupID, fieldID string) Path { return internalmodel.NewPath(groupID, fieldID) }

// ParsePath parses a dotted "<group>.<field>" path.
func ParsePath(raw string) (Path, error) { return internalmodel.ParsePath(raw) }

// IsEmpty reports whether a response counts as unanswered.
func IsEmpty(value any) bool { return internalmodel.IsEmpty(value) }

// EmptyValue returns the cleared response for a field.
func EmptyValue(field Field) any { return internalmodel.EmptyValue(field) }

// StringValues flattens a response into its string values.
func StringValues(value any) []string { return internalmodel.StringValues(value) }

// StringValue returns the first string value of a response.
func StringValue(value any) string { return internalmodel.StringValue(value) }

// CloneValue deep-copies a response.
func CloneValue(value any) any { return internalmodel.CloneValue(value) }

// LabelFor derives a display label from an identifier.
func LabelFor(id string) string { return internalmodel.LabelFor(id) }
