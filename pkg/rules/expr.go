package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

var operators = []struct {
	text string
	kind tokenKind
}{
	{"==", tokEq},
	{"!=", tokNeq},
	{"<=", tokLte},
	{">=", tokGte},
	{"&&", tokAnd},
	{"||", tokOr},
	{"<", tokLt},
	{">", tokGt},
	{"!", tokNot},
	{"(", tokLParen},
	{")", tokRParen},
}

func tokenize(input string) ([]token, error) {
	var out []token
	pos := 0
	for pos < len(input) {
		ch := input[pos]
		if unicode.IsSpace(rune(ch)) {
			pos++
			continue
		}

		if ch == '"' || ch == '\'' {
			text, next, err := readString(input, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokString, text: text})
			pos = next
			continue
		}

		matched := false
		for _, op := range operators {
			if strings.HasPrefix(input[pos:], op.text) {
				out = append(out, token{kind: op.kind, text: op.text})
				pos += len(op.text)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if ch == '=' || ch == '&' || ch == '|' {
			return nil, fmt.Errorf("rules: unexpected %q at offset %d", ch, pos)
		}

		start := pos
		for pos < len(input) && !isBoundary(input[pos]) {
			pos++
		}
		out = append(out, classifyWord(input[start:pos]))
	}
	return out, nil
}

func isBoundary(ch byte) bool {
	return unicode.IsSpace(rune(ch)) || strings.IndexByte("()!=<>&|\"'", ch) >= 0
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for pos := start + 1; pos < len(input); pos++ {
		c := input[pos]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			body := input[start+1 : pos]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", 0, fmt.Errorf("rules: invalid string literal: %w", err)
			}
			return value, pos + 1, nil
		}
	}
	return "", 0, errors.New("rules: unterminated string literal")
}

func classifyWord(word string) token {
	switch strings.ToLower(word) {
	case "true", "false":
		return token{kind: tokBool, text: strings.ToLower(word)}
	case "null", "nil":
		return token{kind: tokNull, text: "null"}
	}
	if looksNumeric(word) {
		return token{kind: tokNumber, text: word}
	}
	return token{kind: tokIdent, text: word}
}

func looksNumeric(word string) bool {
	if word == "" || strings.IndexByte("0123456789+-.", word[0]) < 0 {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}

type node interface {
	eval(scope Scope) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(scope Scope) (bool, error) {
	ok, err := n.left.eval(scope)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(scope)
}

type andNode struct{ left, right node }

func (n andNode) eval(scope Scope) (bool, error) {
	ok, err := n.left.eval(scope)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(scope)
}

type notNode struct{ inner node }

func (n notNode) eval(scope Scope) (bool, error) {
	ok, err := n.inner.eval(scope)
	return !ok, err
}

type truthyNode struct{ name string }

func (n truthyNode) eval(scope Scope) (bool, error) {
	value, _ := scope.Lookup(n.name)
	return truthy(value), nil
}

type compareNode struct {
	name string
	op   token
	lit  token
}

func (n compareNode) eval(scope Scope) (bool, error) {
	value, ok := scope.Lookup(n.name)
	if !ok {
		value = nil
	}

	switch n.lit.kind {
	case tokNull:
		return equality(n.op, value == nil)
	case tokBool:
		got, _ := asBool(value)
		return equality(n.op, got == (n.lit.text == "true"))
	case tokNumber:
		want, _ := strconv.ParseFloat(n.lit.text, 64)
		got, ok := asNumber(value)
		if !ok {
			if n.op.kind == tokEq || n.op.kind == tokNeq {
				return equality(n.op, false)
			}
			return false, nil
		}
		return order(n.op, compareFloats(got, want))
	default:
		if list, ok := value.([]string); ok && (n.op.kind == tokEq || n.op.kind == tokNeq) {
			return equality(n.op, contains(list, n.lit.text))
		}
		if list, ok := value.([]any); ok && (n.op.kind == tokEq || n.op.kind == tokNeq) {
			return equality(n.op, contains(stringsOf(list), n.lit.text))
		}
		return order(n.op, strings.Compare(asString(value), n.lit.text))
	}
}

func equality(op token, equal bool) (bool, error) {
	switch op.kind {
	case tokEq:
		return equal, nil
	case tokNeq:
		return !equal, nil
	default:
		return false, fmt.Errorf("rules: operator %q needs a number or string operand", op.text)
	}
}

func order(op token, cmp int) (bool, error) {
	switch op.kind {
	case tokEq:
		return cmp == 0, nil
	case tokNeq:
		return cmp != 0, nil
	case tokLt:
		return cmp < 0, nil
	case tokLte:
		return cmp <= 0, nil
	case tokGt:
		return cmp > 0, nil
	case tokGte:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("rules: unsupported operator %q", op.text)
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	p := &parser{tokens: tokens}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("rules: unexpected token %q", p.tokens[p.pos].text)
	}
	return n, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kinds ...tokenKind) (token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token{}, false
	}
	for _, k := range kinds {
		if tok.kind == k {
			p.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(tokNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if _, ok := p.accept(tokLParen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokRParen); !ok {
			return nil, errors.New("rules: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := p.accept(tokIdent)
	if !ok {
		if tok, more := p.peek(); more {
			return nil, fmt.Errorf("rules: expected identifier, got %q", tok.text)
		}
		return nil, errors.New("rules: incomplete expression")
	}

	op, ok := p.accept(tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte)
	if !ok {
		return truthyNode{name: ident.text}, nil
	}
	lit, ok := p.accept(tokString, tokNumber, tokBool, tokNull, tokIdent)
	if !ok {
		return nil, fmt.Errorf("rules: expected value after %q", op.text)
	}
	if lit.kind == tokIdent {
		// bare words compare as strings
		lit.kind = tokString
	}
	if (lit.kind == tokBool || lit.kind == tokNull) && op.kind != tokEq && op.kind != tokNeq {
		return nil, fmt.Errorf("rules: operator %q cannot compare %s", op.text, lit.text)
	}
	return compareNode{name: ident.text, op: op, lit: lit}, nil
}
