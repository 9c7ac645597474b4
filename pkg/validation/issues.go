// Package validation checks ticket documents: static per-field rules,
// asynchronous catalog-backed checks, and cross-instance uniqueness. Every
// failure is reported as an Issue addressed by field path.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Issue codes.
const (
	CodeRequired              = "required"
	CodeTooShort              = "too_short"
	CodeTooLong               = "too_long"
	CodeTooSmall              = "too_small"
	CodeTooBig                = "too_big"
	CodePattern               = "pattern"
	CodeInvalidFormat         = "invalid_format"
	CodeInvalidType           = "invalid_type"
	CodeInvalidEnum           = "invalid_enum"
	CodeUniqueness            = "uniqueness"
	CodeConflict              = "conflict"
	CodeDependencyUnavailable = "dependency_unavailable"
	CodeRejected              = "rejected"
)

// Issue is a single validation failure. Path is the dotted "<group>.<field>"
// form of the offending field; form-level issues leave it empty.
type Issue struct {
	Path    string         `json:"path,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// IssueAt builds an Issue for path.
func IssueAt(path model.Path, code, message string, params map[string]any) Issue {
	return Issue{Path: path.String(), Code: code, Message: message, Params: params}
}

// FormIssue builds an Issue that is not tied to a field.
func FormIssue(code, message string) Issue {
	return Issue{Code: code, Message: message}
}

// Issues is a collection of validation failures that implements error.
type Issues []Issue

// Error summarises the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	var b strings.Builder
	for i, it := range iss {
		if i == maxShown {
			fmt.Fprintf(&b, "; ... (total %d)", len(iss))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		if it.Path == "" {
			fmt.Fprintf(&b, "%s: %s", it.Code, it.Message)
			continue
		}
		fmt.Fprintf(&b, "%s at %s", it.Code, it.Path)
	}
	return b.String()
}

// For returns the issues attached to path.
func (iss Issues) For(path model.Path) Issues {
	key := path.String()
	var out Issues
	for _, it := range iss {
		if it.Path == key {
			out = append(out, it)
		}
	}
	return out
}

// Form returns the issues not tied to a field.
func (iss Issues) Form() Issues {
	var out Issues
	for _, it := range iss {
		if it.Path == "" {
			out = append(out, it)
		}
	}
	return out
}

// ByPath groups messages by field path. Form-level messages use the empty key.
func (iss Issues) ByPath() map[string][]string {
	if len(iss) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, it := range iss {
		out[it.Path] = append(out[it.Path], it.Message)
	}
	return out
}

// Paths lists the distinct field paths carrying issues, sorted.
func (iss Issues) Paths() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range iss {
		if it.Path == "" {
			continue
		}
		if _, ok := seen[it.Path]; ok {
			continue
		}
		seen[it.Path] = struct{}{}
		out = append(out, it.Path)
	}
	sort.Strings(out)
	return out
}

// Without drops the issues attached to path.
func (iss Issues) Without(path model.Path) Issues {
	key := path.String()
	out := iss[:0:0]
	for _, it := range iss {
		if it.Path != key {
			out = append(out, it)
		}
	}
	return out
}

// AsIssues extracts Issues from an error chain.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
