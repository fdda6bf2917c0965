package core

// grammar.go holds the field grammar: one FieldRule per schema field, kept as
// a declarative table rather than a chain of boolean checks. A rule decides
// whether a raw value is acceptable and carries the completeness weight used
// to rank duplicates.

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
)

// RuleKind is the kind of check a FieldRule performs on a non-empty value.
type RuleKind int

const (
	RuleAny     RuleKind = iota // Free text, any value accepted
	RuleEnum                    // Value must be one of Enum
	RulePattern                 // Value must fully match Pattern
)

// FieldRule is the validation predicate and completeness weight of one field.
type FieldRule struct {
	Field      string         // Schema field name
	Kind       RuleKind       // Check applied to non-empty values
	Pattern    *regexp.Regexp // Full-match pattern for RulePattern
	Enum       []string       // Accepted values for RuleEnum
	AllowEmpty bool           // An empty value is valid
	Weight     int            // Completeness weight, >= 0; 0 never influences scoring
	Expect     string         // Human-readable description of an acceptable value
}

// Matches reports whether value satisfies the rule.
func (r FieldRule) Matches(value string) bool {
	if value == "" {
		return r.AllowEmpty
	}

	switch r.Kind {
	case RuleAny:
		return true
	case RuleEnum:
		return slices.Contains(r.Enum, value)
	case RulePattern:
		return r.Pattern != nil && r.Pattern.MatchString(value)
	default:
		return false
	}
}

// Anchored compiles expr so that it must match a whole value.
func Anchored(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}

// Grammar maps every schema field to exactly one FieldRule.
type Grammar struct {
	schema Schema
	rules  []FieldRule // aligned to schema order
}

// NewGrammar binds rules to schema. Rules for fields outside the schema are
// ignored. Every schema field must have a rule, or a GrammarIncompleteError
// is returned.
func NewGrammar(schema Schema, rules []FieldRule) (*Grammar, error) {
	byField := make(map[string]FieldRule, len(rules))
	for _, r := range rules {
		if _, dup := byField[r.Field]; dup {
			return nil, fmt.Errorf("grammar: duplicate rule for field %q", r.Field)
		}
		if r.Weight < 0 {
			return nil, fmt.Errorf("grammar: negative weight %d for field %q", r.Weight, r.Field)
		}
		if r.Kind == RulePattern && r.Pattern == nil {
			return nil, fmt.Errorf("grammar: pattern rule for field %q has no pattern", r.Field)
		}
		byField[r.Field] = r
	}

	g := &Grammar{
		schema: schema,
		rules:  make([]FieldRule, schema.Len()),
	}

	var missing []string
	for i, f := range schema.fields {
		r, ok := byField[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		g.rules[i] = r
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &GrammarIncompleteError{Missing: missing}
	}

	return g, nil
}

// Schema returns the schema the grammar is bound to.
func (g *Grammar) Schema() Schema {
	return g.schema
}

// Rule returns the rule for field.
func (g *Grammar) Rule(field string) (FieldRule, bool) {
	i, ok := g.schema.Index(field)
	if !ok {
		return FieldRule{}, false
	}
	return g.rules[i], true
}

// Score is the completeness score of r: the summed weights of its empty
// fields. Lower is more complete.
func (g *Grammar) Score(r Record) int {
	score := 0
	for i, rule := range g.rules {
		if i >= len(r.Values) || r.Values[i] == "" {
			score += rule.Weight
		}
	}
	return score
}
