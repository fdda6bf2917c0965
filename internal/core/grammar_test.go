package core

import (
	"errors"
	"testing"
)

var hexID = Anchored(`[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`)

// testRules is a small inventory-like grammar used across the core tests.
func testRules() []FieldRule {
	return []FieldRule{
		{Field: "id", Kind: RulePattern, Pattern: hexID, Weight: 7, Expect: "a hexadecimal id"},
		{Field: "ci_code", Kind: RulePattern, Pattern: Anchored(`[A-Za-z]{3}[ -]\d{8}`), AllowEmpty: true, Weight: 5},
		{Field: "dns", Kind: RuleAny, AllowEmpty: true, Weight: 4},
		{Field: "hostname", Kind: RuleAny, AllowEmpty: true, Weight: 4},
		{Field: "status", Kind: RuleEnum, Enum: []string{"Планируется", "В эксплуатации"}, AllowEmpty: true, Weight: 1},
		{Field: "ip", Kind: RulePattern, Pattern: Anchored(`(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)`), AllowEmpty: true, Weight: 3},
		{Field: "serial", Kind: RuleAny, AllowEmpty: true, Weight: 2},
		{Field: "description", Kind: RuleAny, AllowEmpty: true, Weight: 0},
	}
}

var testFields = []string{"id", "ci_code", "dns", "hostname", "status", "ip", "serial", "description"}

func testGrammar(t *testing.T, fields ...string) *Grammar {
	t.Helper()
	if len(fields) == 0 {
		fields = testFields
	}
	g, err := NewGrammar(MustSchema(fields...), testRules())
	if err != nil {
		t.Fatalf("NewGrammar: %v", err)
	}
	return g
}

func TestFieldRule_Matches(t *testing.T) {
	tests := []struct {
		name  string
		rule  FieldRule
		value string
		want  bool
	}{
		{"any accepts text", FieldRule{Kind: RuleAny, AllowEmpty: true}, "whatever", true},
		{"any accepts empty", FieldRule{Kind: RuleAny, AllowEmpty: true}, "", true},
		{"required any rejects empty", FieldRule{Kind: RuleAny}, "", false},
		{"enum member", FieldRule{Kind: RuleEnum, Enum: []string{"a", "b"}}, "b", true},
		{"enum non-member", FieldRule{Kind: RuleEnum, Enum: []string{"a", "b"}}, "c", false},
		{"enum is case sensitive", FieldRule{Kind: RuleEnum, Enum: []string{"a"}}, "A", false},
		{"pattern full match", FieldRule{Kind: RulePattern, Pattern: Anchored(`\d+`)}, "123", true},
		{"pattern partial match rejected", FieldRule{Kind: RulePattern, Pattern: Anchored(`\d+`)}, "123abc", false},
		{"pattern alternation anchored", FieldRule{Kind: RulePattern, Pattern: Anchored(`a|b`)}, "ab", false},
		{"pattern empty allowed", FieldRule{Kind: RulePattern, Pattern: Anchored(`\d+`), AllowEmpty: true}, "", true},
		{"unknown kind", FieldRule{Kind: RuleKind(99)}, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.value); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNewGrammar_Incomplete(t *testing.T) {
	schema := MustSchema("id", "warranty", "status", "owner")
	_, err := NewGrammar(schema, testRules())

	var incomplete *GrammarIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected GrammarIncompleteError, got %v", err)
	}
	if got := incomplete.Missing; len(got) != 2 || got[0] != "owner" || got[1] != "warranty" {
		t.Errorf("Missing = %v, want [owner warranty]", got)
	}
}

func TestNewGrammar_RejectsBadRules(t *testing.T) {
	schema := MustSchema("id")

	tests := []struct {
		name  string
		rules []FieldRule
	}{
		{"duplicate", []FieldRule{{Field: "id", Kind: RuleAny}, {Field: "id", Kind: RuleAny}}},
		{"negative weight", []FieldRule{{Field: "id", Kind: RuleAny, Weight: -1}}},
		{"pattern without regexp", []FieldRule{{Field: "id", Kind: RulePattern}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGrammar(schema, tt.rules); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGrammar_IgnoresRulesOutsideSchema(t *testing.T) {
	g := testGrammar(t, "id", "status", "ip")
	if _, ok := g.Rule("serial"); ok {
		t.Error("serial should not be bound to a three-field schema")
	}
	if r, ok := g.Rule("ip"); !ok || r.Weight != 3 {
		t.Errorf("Rule(ip) = %+v, %v", r, ok)
	}
}

func TestGrammar_Score(t *testing.T) {
	g := testGrammar(t)
	s := g.Schema()

	full := s.NewRecord(map[string]string{
		"id": "A1234567-89AB-CDEF-0123-456789ABCDEF", "ci_code": "ABC-12345678",
		"dns": "d", "hostname": "h", "status": "Планируется", "ip": "10.0.0.1",
		"serial": "SN", "description": "x",
	})
	if got := g.Score(full); got != 0 {
		t.Errorf("full record score = %d, want 0", got)
	}

	noDescription := full
	noDescription.Values = append([]string(nil), full.Values...)
	noDescription.Values[7] = ""
	if got := g.Score(noDescription); got != 0 {
		t.Errorf("zero-weight field changed score to %d", got)
	}

	empty := s.NewRecord(nil)
	if got := g.Score(empty); got != 7+5+4+4+1+3+2 {
		t.Errorf("empty record score = %d, want 26", got)
	}
}
