package plan

import "fmt"

// Validate enforces the cross-field rules that make a structurally valid
// plan safe to compile. It is pure and deterministic; the first violated
// rule determines the error.
//
// The delta-scoping check runs before generic catalog membership so that a
// delta field on the wrong entity reports the specific misuse rather than a
// generic not-allowed error.
func Validate(p *Plan) error {
	if IsDeltaField(p.Field) && p.Entity != EntityVideoSnapshots {
		return &ValidationError{Rule: RuleDeltaFieldMisuse, Entity: p.Entity, Field: p.Field}
	}
	if !HasField(p.Entity, p.Field) {
		return &ValidationError{Rule: RuleFieldNotAllowed, Entity: p.Entity, Field: p.Field}
	}

	// Counting delta magnitudes is meaningless; the one permitted idiom is
	// "how many distinct videos had any snapshot".
	if p.Operation == AggCount && IsDeltaField(p.Field) {
		if !(p.Distinct && p.Field == snapshotForeignKey) {
			return &ValidationError{Rule: RuleInvalidCountDelta, Entity: p.Entity, Field: p.Field}
		}
	}

	if p.Join != nil {
		if p.Join.TargetEntity == p.Entity {
			return fmt.Errorf("%w: join target must differ from primary entity", ErrStructure)
		}
		if !HasField(p.Entity, p.Join.SourceField) {
			return &ValidationError{Rule: RuleFieldNotAllowed, Entity: p.Entity, Field: p.Join.SourceField}
		}
		if !HasField(p.Join.TargetEntity, p.Join.TargetField) {
			return &ValidationError{Rule: RuleFieldNotAllowed, Entity: p.Join.TargetEntity, Field: p.Join.TargetField}
		}
	}

	if p.Where != nil {
		return validateFilter(p.Where, p)
	}
	return nil
}

// validateFilter walks the filter tree and checks every leaf field against
// the catalogs it may resolve to: the primary entity always, the join target
// only when a join is present. Without a join there is no cross-entity
// resolution.
func validateFilter(node FilterNode, p *Plan) error {
	switch n := node.(type) {
	case *Condition:
		if HasField(p.Entity, n.Field) {
			return nil
		}
		if p.Join != nil && HasField(p.Join.TargetEntity, n.Field) {
			return nil
		}
		return &ValidationError{Rule: RuleFilterFieldNotAllowed, Entity: p.Entity, Field: n.Field}
	case *ConditionGroup:
		for _, child := range n.Conditions {
			if err := validateFilter(child, p); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown filter node %T", ErrStructure, node)
	}
}
