package core

// validation.go applies the field grammar to one record at a time.
//
// Validation never fails: a value that does not match its rule produces an
// Invalid verdict carrying one ValidationError per failing field. Verdicts
// are recomputed on demand and never stored.

import (
	"fmt"
)

// ValidationError describes one field that failed its rule.
type ValidationError struct {
	Field   string // Field name
	Value   string // The rejected value
	Message string // What an acceptable value looks like
}

func (e ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %q %s", e.Field, e.Value, e.Message)
}

// Verdict is the Valid/Invalid classification of a record.
type Verdict struct {
	Valid  bool              // True if every field matched its rule
	Errors []ValidationError // One entry per failing field, in schema order
}

// Reasons returns the verdict's errors as strings.
func (v Verdict) Reasons() []string {
	if len(v.Errors) == 0 {
		return nil
	}
	reasons := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		reasons[i] = e.Error()
	}
	return reasons
}

// RowValidator validates records against a Grammar.
type RowValidator struct {
	grammar *Grammar
}

// NewRowValidator creates a validator for g.
func NewRowValidator(g *Grammar) *RowValidator {
	return &RowValidator{grammar: g}
}

// Validate evaluates every field rule against r.
func (v *RowValidator) Validate(r Record) Verdict {
	verdict := Verdict{Valid: true}

	for i, rule := range v.grammar.rules {
		value := ""
		if i < len(r.Values) {
			value = r.Values[i]
		}
		if rule.Matches(value) {
			continue
		}

		verdict.Valid = false
		verdict.Errors = append(verdict.Errors, ValidationError{
			Field:   rule.Field,
			Value:   value,
			Message: describe(rule, value),
		})
	}

	return verdict
}

// describe builds the message for a value that failed rule.
func describe(rule FieldRule, value string) string {
	if value == "" {
		return "must not be empty"
	}
	if rule.Expect != "" {
		return "is not " + rule.Expect
	}
	switch rule.Kind {
	case RuleEnum:
		return "is not a recognized value"
	default:
		return "does not match the expected format"
	}
}
