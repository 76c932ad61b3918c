package flow

import (
	"strconv"
	"strings"
)

// Operator selects the comparison a condition applies.
type Operator string

// Condition operators. The string values are the persisted wire names.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// EvaluateCondition applies an operator to a variable value (left) and
// a condition operand (right).
//
// Semantics:
//   - equals / not_equals: case-sensitive exact comparison
//   - contains: case-insensitive substring test
//   - greater_than / less_than: numeric comparison when both sides
//     parse as numbers, lexicographic comparison otherwise
//
// No operator fails: an unknown operator or an unparseable numeric
// operand degrades to a defined result rather than aborting the
// conversation.
func EvaluateCondition(op Operator, left, right string) bool {
	switch op {
	case OpEquals:
		return left == right
	case OpNotEquals:
		return left != right
	case OpContains:
		return strings.Contains(strings.ToLower(left), strings.ToLower(right))
	case OpGreaterThan:
		return compareOrdered(left, right) > 0
	case OpLessThan:
		return compareOrdered(left, right) < 0
	default:
		return false
	}
}

// compareOrdered compares two operands numerically when both parse,
// falling back to lexicographic string order.
func compareOrdered(left, right string) int {
	lf, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rf, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(left, right)
}

// FirstMatch evaluates an ordered condition list against the variable
// store and returns the action of the first condition that matches.
//
// Declaration order is the tie-break priority: the first matching
// condition wins even when later conditions would also match. This
// ordering is a declared contract of the flow model, not an
// implementation accident.
func FirstMatch(conditions []Condition, vars Variables) (action string, ok bool) {
	for _, c := range conditions {
		if EvaluateCondition(c.Operator, vars[c.Variable], c.Value) {
			return c.Action, true
		}
	}
	return "", false
}
