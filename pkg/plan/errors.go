package plan

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema marks plan text that does not match the wire format: bad
	// discriminator tags, wrong-typed values, missing required keys.
	ErrSchema = errors.New("malformed query plan")

	// ErrStructure marks structurally invalid plans, such as a condition
	// group with no children.
	ErrStructure = errors.New("invalid query plan structure")

	// ErrRange marks a date filter whose lower bound is after its upper bound.
	ErrRange = errors.New("invalid date range")
)

func schemaErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
}

// Rule identifies which validation rule a plan violated.
type Rule string

const (
	RuleFieldNotAllowed       Rule = "field_not_allowed"
	RuleDeltaFieldMisuse      Rule = "delta_field_misuse"
	RuleInvalidCountDelta     Rule = "invalid_count_delta"
	RuleFilterFieldNotAllowed Rule = "filter_field_not_allowed"
)

// ValidationError reports a structurally valid but semantically unsafe plan.
type ValidationError struct {
	Rule   Rule
	Entity Entity
	Field  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleFieldNotAllowed:
		return fmt.Sprintf("field %q not allowed for entity %q", e.Field, e.Entity)
	case RuleDeltaFieldMisuse:
		return fmt.Sprintf("delta field %q allowed only for entity %q", e.Field, EntityVideoSnapshots)
	case RuleInvalidCountDelta:
		return fmt.Sprintf("count over delta field %q allowed only as distinct %s", e.Field, snapshotForeignKey)
	case RuleFilterFieldNotAllowed:
		return fmt.Sprintf("filter field %q not allowed for entity %q", e.Field, e.Entity)
	}
	return fmt.Sprintf("validation rule %s violated by field %q", e.Rule, e.Field)
}
