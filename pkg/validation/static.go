package validation

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-ticketform/pkg/model"
	"github.com/goliatone/go-ticketform/pkg/rules"
)

// DateLayout is the accepted format for DATE responses.
const DateLayout = "2006-01-02"

// Option configures a Validator.
type Option func(*Validator)

// WithEvaluator overrides the expression evaluator used for required_when.
func WithEvaluator(eval *rules.Evaluator) Option {
	return func(v *Validator) {
		if eval != nil {
			v.eval = eval
		}
	}
}

// Validator runs the synchronous per-field rules. It is safe for concurrent
// use; compiled patterns are cached.
type Validator struct {
	eval *rules.Evaluator

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// New constructs a Validator.
func New(options ...Option) *Validator {
	v := &Validator{
		eval:     rules.New(),
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// ValidateDocument runs ValidateField over every field, in document order.
func (v *Validator) ValidateDocument(doc *model.Document) Issues {
	var out Issues
	for _, path := range doc.Paths() {
		out = append(out, v.ValidateField(doc, path)...)
	}
	return out
}

// ValidateField checks the field at path against its required flag,
// required_when condition, type and declared validation rules.
func (v *Validator) ValidateField(doc *model.Document, path model.Path) Issues {
	field, ok := doc.Field(path)
	if !ok {
		return nil
	}

	if model.IsEmpty(field.Response) {
		if v.required(doc, path.GroupID, field) {
			return Issues{IssueAt(path, CodeRequired, "This field is required", nil)}
		}
		return nil
	}

	switch field.Type {
	case model.FieldTypeNumber:
		return v.checkNumber(path, field)
	case model.FieldTypeBoolean:
		if _, ok := asBool(field.Response); !ok {
			return Issues{IssueAt(path, CodeInvalidType, "Expected yes or no", nil)}
		}
		return nil
	case model.FieldTypeDropdown:
		return v.checkChoices(path, field, model.StringValues(field.Response))
	case model.FieldTypeMultiSelect:
		values := model.StringValues(field.Response)
		if out := v.checkChoices(path, field, values); len(out) > 0 {
			return out
		}
		return v.checkCount(path, field, len(values))
	case model.FieldTypeDate:
		if _, err := time.Parse(DateLayout, strings.TrimSpace(model.StringValue(field.Response))); err != nil {
			return Issues{IssueAt(path, CodeInvalidFormat, "Enter a date as YYYY-MM-DD", map[string]any{"layout": DateLayout})}
		}
		return nil
	default:
		return v.checkText(path, field)
	}
}

// Required reports whether the field at path must be answered, evaluating
// its required_when condition against the current document.
func (v *Validator) Required(doc *model.Document, path model.Path) bool {
	field, ok := doc.Field(path)
	if !ok {
		return false
	}
	return v.required(doc, path.GroupID, field)
}

func (v *Validator) required(doc *model.Document, groupID string, field *model.Field) bool {
	if field.Required {
		return true
	}
	if strings.TrimSpace(field.RequiredWhen) == "" {
		return false
	}
	ok, err := v.eval.Eval(field.RequiredWhen, rules.SectionScope(doc, groupID))
	return err == nil && ok
}

func (v *Validator) checkText(path model.Path, field *model.Field) Issues {
	value, ok := field.Response.(string)
	if !ok {
		return Issues{IssueAt(path, CodeInvalidType, "Expected text", nil)}
	}

	var out Issues
	length := utf8.RuneCountInString(value)
	if field.Type == model.FieldTypeEmail && !validEmail(value) {
		out = append(out, IssueAt(path, CodeInvalidFormat, "Enter a valid email address", map[string]any{"format": "email"}))
	}
	for _, rule := range field.Validations {
		switch rule.Kind {
		case model.ValidationRuleMinLength:
			if limit, ok := intParam(rule); ok && length < limit {
				out = append(out, IssueAt(path, CodeTooShort, fmt.Sprintf("Must be at least %d characters", limit), map[string]any{"min": limit, "got": length}))
			}
		case model.ValidationRuleMaxLength:
			if limit, ok := intParam(rule); ok && length > limit {
				out = append(out, IssueAt(path, CodeTooLong, fmt.Sprintf("Must be at most %d characters", limit), map[string]any{"max": limit, "got": length}))
			}
		case model.ValidationRulePattern:
			re := v.pattern(rule.Params["pattern"])
			if re != nil && !re.MatchString(value) {
				msg := rule.Params["message"]
				if msg == "" {
					msg = "Does not match the required format"
				}
				out = append(out, IssueAt(path, CodePattern, msg, map[string]any{"pattern": re.String()}))
			}
		case model.ValidationRuleEmail:
			if field.Type != model.FieldTypeEmail && !validEmail(value) {
				out = append(out, IssueAt(path, CodeInvalidFormat, "Enter a valid email address", map[string]any{"format": "email"}))
			}
		}
	}
	return out
}

func (v *Validator) checkNumber(path model.Path, field *model.Field) Issues {
	num, ok := asNumber(field.Response)
	if !ok {
		return Issues{IssueAt(path, CodeInvalidType, "Expected a number", nil)}
	}
	var out Issues
	for _, rule := range field.Validations {
		limit, ok := floatParam(rule)
		if !ok {
			continue
		}
		switch rule.Kind {
		case model.ValidationRuleMin:
			if num < limit {
				out = append(out, IssueAt(path, CodeTooSmall, "Must be at least "+formatNumber(limit), map[string]any{"min": limit, "got": num}))
			}
		case model.ValidationRuleMax:
			if num > limit {
				out = append(out, IssueAt(path, CodeTooBig, "Must be at most "+formatNumber(limit), map[string]any{"max": limit, "got": num}))
			}
		}
	}
	return out
}

func (v *Validator) checkChoices(path model.Path, field *model.Field, values []string) Issues {
	if len(field.Options) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(field.Options))
	for _, opt := range field.Options {
		allowed[opt.Value] = struct{}{}
	}
	for _, val := range values {
		if _, ok := allowed[val]; !ok {
			return Issues{IssueAt(path, CodeInvalidEnum, fmt.Sprintf("%q is not an available option", val), map[string]any{"value": val})}
		}
	}
	return nil
}

func (v *Validator) checkCount(path model.Path, field *model.Field, count int) Issues {
	var out Issues
	for _, rule := range field.Validations {
		limit, ok := intParam(rule)
		if !ok {
			continue
		}
		switch rule.Kind {
		case model.ValidationRuleMinLength:
			if count < limit {
				out = append(out, IssueAt(path, CodeTooShort, fmt.Sprintf("Select at least %d", limit), map[string]any{"min": limit, "got": count}))
			}
		case model.ValidationRuleMaxLength:
			if count > limit {
				out = append(out, IssueAt(path, CodeTooLong, fmt.Sprintf("Select at most %d", limit), map[string]any{"max": limit, "got": count}))
			}
		}
	}
	return out
}

func (v *Validator) pattern(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	v.mu.RLock()
	re, ok := v.patterns[expr]
	v.mu.RUnlock()
	if ok {
		return re
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	v.mu.Lock()
	v.patterns[expr] = re
	v.mu.Unlock()
	return re
}

func validEmail(value string) bool {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func intParam(rule model.ValidationRule) (int, bool) {
	raw := strings.TrimSpace(rule.Params["value"])
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	return val, err == nil
}

func floatParam(rule model.ValidationRule) (float64, bool) {
	raw := strings.TrimSpace(rule.Params["value"])
	if raw == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, err == nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// asNumber converts a numeric response. NaN and infinities are rejected.
func asNumber(value any) (float64, bool) {
	var f float64
	switch n := value.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asBool(value any) (bool, bool) {
	switch b := value.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}
