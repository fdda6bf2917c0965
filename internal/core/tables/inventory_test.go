package tables

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

func rule(t *testing.T, field string) core.FieldRule {
	t.Helper()
	for _, r := range Rules() {
		if r.Field == field {
			return r
		}
	}
	t.Fatalf("no rule for %q", field)
	return core.FieldRule{}
}

func TestRules_CoverEveryField(t *testing.T) {
	schema := core.MustSchema(Fields...)
	g, err := Grammar(schema)
	if err != nil {
		t.Fatalf("Grammar() error: %v", err)
	}
	for _, f := range Fields {
		r, ok := g.Rule(f)
		if !ok {
			t.Errorf("no rule bound for %q", f)
		}
		if r.Weight < 0 {
			t.Errorf("%s: negative weight %d", f, r.Weight)
		}
	}
	if len(Rules()) != len(Fields) {
		t.Errorf("len(Rules()) = %d, want %d", len(Rules()), len(Fields))
	}
}

func TestRules_ZeroWeightFields(t *testing.T) {
	for _, f := range []string{Description, Model} {
		if w := rule(t, f).Weight; w != 0 {
			t.Errorf("%s weight = %d, want 0", f, w)
		}
	}
	if w := rule(t, ID).Weight; w != 7 {
		t.Errorf("id weight = %d, want 7", w)
	}
}

func TestRules_Matches(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  bool
	}{
		// id: required UUID-like
		{ID, "A1234567-89AB-CDEF-0123-456789ABCDEF", true},
		{ID, "a1234567-89ab-cdef-0123-456789abcdef", true},
		{ID, "", false},
		{ID, "bad-id", false},
		{ID, "G1234567-89AB-CDEF-0123-456789ABCDEF", false},
		{ID, "A1234567-89AB-CDEF-0123-456789ABCDEF-extra", false},

		// status: enum or empty
		{Status, "", true},
		{Status, "Планируется", true},
		{Status, "На обслуживании", true},
		{Status, "Planируется", false},
		{Status, "планируется", false},

		// ci_code
		{CICode, "", true},
		{CICode, "ABC-12345678", true},
		{CICode, "abc 12345678", true},
		{CICode, "AB-12345678", false},
		{CICode, "ABC-1234567", false},
		{CICode, "ABC-123456789", false},

		// hostname and dns
		{Hostname, "", true},
		{Hostname, "msk1-app-srv", true},
		{Hostname, "msk1-app-srv.corp", false},
		{DNS, "msk1-app-srv.corp.local", true},
		{DNS, "msk1-app-srv..", true},
		{DNS, "msk1-app-srv", false},

		// ip: strict dotted quad
		{IP, "", true},
		{IP, "10.0.0.5", true},
		{IP, "255.255.255.255", true},
		{IP, "010.001.000.005", true},
		{IP, "999.1.1.1", false},
		{IP, "1.1.1.256", false},
		{IP, "10.0.0", false},
		{IP, "10.0.0.5 ", false},
		{IP, "10.0.0.5/24", false},

		// numeric
		{CPUCores, "", true},
		{CPUCores, "16", true},
		{CPUCores, "1.5", false},
		{CPUCores, "-4", false},
		{RAM, "65536", true},
		{RAM, "64GB", false},
		{TotalVolume, "1024", true},
		{Category, "3", true},
		{Category, "x", false},
		{CPUFreq, "2.4", true},
		{CPUFreq, "-2.4", true},
		{CPUFreq, "3", true},
		{CPUFreq, "2,4", false},
		{CPUFreq, "2.", false},

		// mount
		{Mount, "", true},
		{Mount, "стойка 12", true},
		{Mount, "Место 3", true},
		{Mount, "СТОЙКА12", true},
		{Mount, "полка 3", false},
		{Mount, "стойка", false},

		// serial: letters only
		{Serial, "", true},
		{Serial, "ABCdef", true},
		{Serial, "SN123", false},

		// free text
		{Name, "", true},
		{Name, "any | thing", true},
		{Description, "multi word text", true},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			if got := rule(t, tt.field).Matches(tt.value); got != tt.want {
				t.Errorf("%s.Matches(%q) = %v, want %v", tt.field, tt.value, got, tt.want)
			}
		})
	}
}

func TestGrammar_ScenarioSchema(t *testing.T) {
	schema := core.MustSchema(ID, Status, IP)
	g, err := Grammar(schema)
	if err != nil {
		t.Fatalf("Grammar() error: %v", err)
	}
	v := core.NewRowValidator(g)

	valid := schema.NewRecord(map[string]string{
		ID:     "A1234567-89AB-CDEF-0123-456789ABCDEF",
		Status: "Планируется",
		IP:     "10.0.0.5",
	})
	if verdict := v.Validate(valid); !verdict.Valid {
		t.Errorf("expected valid, got errors %v", verdict.Reasons())
	}

	invalid := schema.NewRecord(map[string]string{
		ID:     "bad-id",
		Status: "Planируется",
		IP:     "999.1.1.1",
	})
	verdict := v.Validate(invalid)
	if verdict.Valid {
		t.Fatal("expected invalid")
	}
	if len(verdict.Errors) != 3 {
		t.Fatalf("got %d reasons, want 3: %v", len(verdict.Errors), verdict.Reasons())
	}
	for i, want := range []string{ID, Status, IP} {
		if verdict.Errors[i].Field != want {
			t.Errorf("reason %d field = %s, want %s", i, verdict.Errors[i].Field, want)
		}
	}
}

func TestGrammar_UnknownReferenceField(t *testing.T) {
	schema := core.MustSchema(ID, "warranty_end")
	_, err := Grammar(schema)

	var incomplete *core.GrammarIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected GrammarIncompleteError, got %v", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != "warranty_end" {
		t.Errorf("Missing = %v, want [warranty_end]", incomplete.Missing)
	}
}

func TestColumnTypes_AreSchemaFields(t *testing.T) {
	schema := core.MustSchema(Fields...)
	for f := range ColumnTypes {
		if !schema.Has(f) {
			t.Errorf("typed column %q is not an inventory field", f)
		}
	}
}
