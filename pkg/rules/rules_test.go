package rules

import (
	"testing"

	"github.com/goliatone/go-ticketform/pkg/model"
)

func TestEvaluatorTable(t *testing.T) {
	t.Parallel()

	values := Values{
		"is_replacement": true,
		"flag_text":      "true",
		"part_number":    "PN-1",
		"quantity":       4,
		"divisions":      []string{"03", "05"},
		"meta":           map[string]any{"tier": "gold"},
		"empty":          "",
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"is_replacement", true},
		{"!is_replacement", false},
		{"flag_text == true", true},
		{"empty", false},
		{"missing == null", true},
		{"part_number != null", true},
		{`part_number == "PN-1"`, true},
		{`part_number == 'PN-1'`, true},
		{"part_number == PN-1", true},
		{"quantity > 3 && quantity <= 4", true},
		{"quantity < 2 || quantity == 4", true},
		{"quantity >= 5", false},
		{`divisions == "05"`, true},
		{`divisions != "07"`, true},
		{`meta.tier == "gold"`, true},
		{"(is_replacement && empty) || !(quantity == 4)", false},
		{"missing > 1", false},
	}

	eval := New()
	for _, tc := range cases {
		got, err := eval.Eval(tc.rule, values)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluatorSyntaxErrors(t *testing.T) {
	t.Parallel()

	eval := New()
	for _, rule := range []string{
		"a = 1",
		"a & b",
		"(a == 1",
		`a == "open`,
		"a ==",
		"a > true",
		"== 1",
	} {
		if err := eval.Check(rule); err == nil {
			t.Fatalf("expected syntax error for %q", rule)
		}
	}
}

func TestSectionScopePrefersOwnSection(t *testing.T) {
	t.Parallel()

	doc := &model.Document{Sections: []model.Section{
		{SectionID: "header", DuplicateGroupID: "h1", Fields: []model.Field{{FieldID: "equipment", Response: "pump"}}},
		{SectionID: "part", DuplicateGroupID: "p1", Fields: []model.Field{{FieldID: "is_replacement", Response: false}}},
		{SectionID: "part", DuplicateGroupID: "p2", Fields: []model.Field{{FieldID: "is_replacement", Response: true}}},
	}}

	eval := New()
	ok, err := eval.Eval("is_replacement && equipment == pump", SectionScope(doc, "p2"))
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected own-section lookup plus canonical fallback to hold")
	}

	ok, err = eval.Eval("is_replacement", SectionScope(doc, "p1"))
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected p1 value to shadow the later instance")
	}

	ok, err = eval.Eval("p2.is_replacement == true", SectionScope(doc, "p1"))
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected explicit path lookup")
	}
}
