package flow

import "testing"

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		left  string
		right string
		want  bool
	}{
		{"equals exact", OpEquals, "Pricing", "Pricing", true},
		{"equals is case-sensitive", OpEquals, "pricing", "Pricing", false},
		{"not_equals", OpNotEquals, "a", "b", true},
		{"not_equals same value", OpNotEquals, "a", "a", false},
		{"contains substring", OpContains, "I want to speak with a human", "human", true},
		{"contains is case-insensitive", OpContains, "Talk to a HUMAN please", "human", true},
		{"contains absent", OpContains, "just browsing", "human", false},
		{"greater_than numeric", OpGreaterThan, "10", "9", true},
		{"greater_than numeric false", OpGreaterThan, "9", "10", false},
		{"greater_than lexicographic fallback", OpGreaterThan, "banana", "apple", true},
		{"greater_than mixed operands fall back to strings", OpGreaterThan, "10", "banana", false},
		{"less_than numeric", OpLessThan, "2.5", "3", true},
		{"less_than equal values", OpLessThan, "3", "3", false},
		{"less_than lexicographic", OpLessThan, "apple", "banana", true},
		{"unknown operator never matches", Operator("matches"), "a", "a", false},
		{"empty left operand", OpEquals, "", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.op, tt.left, tt.right); got != tt.want {
				t.Errorf("EvaluateCondition(%q, %q, %q) = %v, want %v", tt.op, tt.left, tt.right, got, tt.want)
			}
		})
	}
}

func TestFirstMatch(t *testing.T) {
	conditions := []Condition{
		{Variable: "topic", Operator: OpEquals, Value: "Pricing", Action: "pricing"},
		{Variable: "topic", Operator: OpContains, Value: "human", Action: "handoff"},
		{Variable: "topic", Operator: OpNotEquals, Value: "", Action: "catch_all"},
	}

	t.Run("first matching condition wins", func(t *testing.T) {
		// "Pricing" also satisfies the third condition; declaration
		// order decides.
		action, ok := FirstMatch(conditions, Variables{"topic": "Pricing"})
		if !ok || action != "pricing" {
			t.Fatalf("got (%q, %v), want (pricing, true)", action, ok)
		}
	})

	t.Run("free text routes through contains", func(t *testing.T) {
		action, ok := FirstMatch(conditions, Variables{"topic": "I'd like to speak with a human"})
		if !ok || action != "handoff" {
			t.Fatalf("got (%q, %v), want (handoff, true)", action, ok)
		}
	})

	t.Run("later condition catches the rest", func(t *testing.T) {
		action, ok := FirstMatch(conditions, Variables{"topic": "something else"})
		if !ok || action != "catch_all" {
			t.Fatalf("got (%q, %v), want (catch_all, true)", action, ok)
		}
	})

	t.Run("no match", func(t *testing.T) {
		action, ok := FirstMatch(conditions, Variables{})
		if ok {
			t.Fatalf("got (%q, %v), want no match", action, ok)
		}
	})

	t.Run("unset variable evaluates as empty string", func(t *testing.T) {
		cs := []Condition{{Variable: "missing", Operator: OpEquals, Value: "", Action: "empty"}}
		action, ok := FirstMatch(cs, Variables{"other": "set"})
		if !ok || action != "empty" {
			t.Fatalf("got (%q, %v), want (empty, true)", action, ok)
		}
	})
}
