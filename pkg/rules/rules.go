// Package rules evaluates the small condition language used by field
// definitions, for example a required_when rule such as
//
//	is_replacement == true && part_number != ""
//
// Supported syntax: identifiers, string/number/bool/null literals, the
// comparison operators ==, !=, <, <=, >, >=, negation with !, && and ||
// composition, and parentheses. A bare identifier is true when its value is
// non-empty.
package rules

import (
	"strings"
	"sync"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// Scope resolves identifiers referenced by an expression.
type Scope interface {
	Lookup(name string) (any, bool)
}

// ScopeFunc adapts a function into a Scope.
type ScopeFunc func(name string) (any, bool)

// Lookup delegates to the underlying function.
func (fn ScopeFunc) Lookup(name string) (any, bool) { return fn(name) }

// Values is a Scope over a flat map. Dotted keys match exactly first and are
// then walked through nested maps.
type Values map[string]any

// Lookup implements Scope.
func (v Values) Lookup(name string) (any, bool) {
	return lookupMap(v, name)
}

// SectionScope resolves identifiers against the section identified by groupID
// first, then against the canonical instance of every other section in doc.
// Identifiers in "<group>.<field>" form address a specific instance.
func SectionScope(doc *model.Document, groupID string) Scope {
	return ScopeFunc(func(name string) (any, bool) {
		name = strings.TrimSpace(name)
		if doc == nil || name == "" {
			return nil, false
		}
		if sec, ok := doc.Section(groupID); ok {
			if f, ok := sec.Field(name); ok {
				return f.Response, true
			}
		}
		if path, err := model.ParsePath(name); err == nil {
			if v, ok := doc.Get(path); ok {
				return v, true
			}
		}
		for i := range doc.Sections {
			if !doc.IsCanonical(i) {
				continue
			}
			if f, ok := doc.Sections[i].Field(name); ok {
				return f.Response, true
			}
		}
		return nil, false
	})
}

// Evaluator compiles and caches expressions. The zero value is not usable;
// construct with New.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]node
}

// New returns an Evaluator with an empty compile cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]node)}
}

// Check compiles rule and reports syntax errors without evaluating it.
func (e *Evaluator) Check(rule string) error {
	_, err := e.compile(rule)
	return err
}

// Eval evaluates rule against scope. An empty rule evaluates to true.
func (e *Evaluator) Eval(rule string, scope Scope) (bool, error) {
	n, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	if n == nil {
		return true, nil
	}
	if scope == nil {
		scope = Values(nil)
	}
	return n.eval(scope)
}

func (e *Evaluator) compile(rule string) (node, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return nil, nil
	}

	e.mu.RLock()
	n, ok := e.cache[trimmed]
	e.mu.RUnlock()
	if ok {
		return n, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	n, err = parse(tokens)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[trimmed] = n
	e.mu.Unlock()
	return n, nil
}

func lookupMap(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}
