// Package sqlgen lowers a validated query plan into a backend-neutral
// aggregate query description and renders it as parameterized Postgres SQL.
// Compilation is pure and deterministic; the same plan always yields the
// same query.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vidlake/vidlake/pkg/plan"
)

// ErrUnresolvedField marks a validated plan containing a field the compiler
// cannot resolve against any relation. This is a validator/compiler rule
// mismatch, a defect rather than bad user input; callers log it loudly and
// fail the request.
var ErrUnresolvedField = errors.New("sqlgen: field not resolvable against any relation")

// Column is a fully resolved column reference.
type Column struct {
	Table string
	Name  string
}

// Expr is a node of the lowered predicate tree.
type Expr interface {
	expr()
}

// Compare is an atomic comparison against a literal.
type Compare struct {
	Column Column
	Op     plan.CompareOp
	Value  any
}

func (*Compare) expr() {}

// Logical is a conjunction or disjunction of child expressions. Grouping
// from the source plan is preserved exactly; children are never flattened
// into the parent.
type Logical struct {
	Op       plan.LogicalOp
	Children []Expr
}

func (*Logical) expr() {}

// Aggregate describes the single aggregate the query computes. Distinct is
// meaningful only for count; sum ignores it.
type Aggregate struct {
	Op       plan.Aggregation
	Column   Column
	Distinct bool
}

// JoinClause is a single equi-join hop against a second relation.
type JoinClause struct {
	Table string
	On    [2]Column // primary source field = target field
}

// Query is the backend-neutral executable query description.
type Query struct {
	Relation  string
	Aggregate Aggregate
	Predicate Expr // nil when the plan has no filtering at all
	Join      *JoinClause
}

func tableFor(e plan.Entity) string {
	if e == plan.EntityVideoSnapshots {
		return "video_snapshots"
	}
	return "videos"
}

// Compile lowers a validated plan. It assumes validity: an unresolvable
// field yields ErrUnresolvedField, which indicates a programming error.
func Compile(p *plan.Plan) (*Query, error) {
	primary := tableFor(p.Entity)

	var join *JoinClause
	if p.Join != nil {
		target := tableFor(p.Join.TargetEntity)
		join = &JoinClause{
			Table: target,
			On: [2]Column{
				{Table: primary, Name: p.Join.SourceField},
				{Table: target, Name: p.Join.TargetField},
			},
		}
	}

	resolve := func(name string) (Column, error) {
		if plan.HasField(p.Entity, name) {
			return Column{Table: primary, Name: name}, nil
		}
		if p.Join != nil && plan.HasField(p.Join.TargetEntity, name) {
			return Column{Table: join.Table, Name: name}, nil
		}
		return Column{}, fmt.Errorf("%w: %q", ErrUnresolvedField, name)
	}

	aggCol, err := resolve(p.Field)
	if err != nil {
		return nil, err
	}

	q := &Query{
		Relation: primary,
		Aggregate: Aggregate{
			Op:       p.Operation,
			Column:   aggCol,
			Distinct: p.Distinct && p.Operation == plan.AggCount,
		},
		Join: join,
	}

	var predicate Expr
	if p.Where != nil {
		predicate, err = lowerFilter(p.Where, resolve)
		if err != nil {
			return nil, err
		}
	}

	// Date bounds are always an additional conjunction; the filter tree can
	// never turn them into a disjunction.
	if p.DateFilter != nil {
		dateCol := Column{Table: primary, Name: plan.DateField(p.Entity)}
		bounds := []Expr{
			&Compare{Column: dateCol, Op: plan.OpGte, Value: p.DateFilter.From},
			&Compare{Column: dateCol, Op: plan.OpLte, Value: p.DateFilter.To},
		}
		if predicate != nil {
			predicate = &Logical{Op: plan.OpAnd, Children: append([]Expr{predicate}, bounds...)}
		} else {
			predicate = &Logical{Op: plan.OpAnd, Children: bounds}
		}
	}

	q.Predicate = predicate
	return q, nil
}

func lowerFilter(node plan.FilterNode, resolve func(string) (Column, error)) (Expr, error) {
	switch n := node.(type) {
	case *plan.Condition:
		col, err := resolve(n.Field)
		if err != nil {
			return nil, err
		}
		return &Compare{Column: col, Op: n.Operator, Value: n.Value}, nil
	case *plan.ConditionGroup:
		children := make([]Expr, 0, len(n.Conditions))
		for _, child := range n.Conditions {
			lowered, err := lowerFilter(child, resolve)
			if err != nil {
				return nil, err
			}
			children = append(children, lowered)
		}
		return &Logical{Op: n.Op, Children: children}, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter node %T", ErrUnresolvedField, node)
	}
}

// SQL renders the query as a single parameterized SELECT returning exactly
// one scalar. Columns are table-qualified only when a join makes the
// reference ambiguous.
func (q *Query) SQL() (string, []any) {
	qualify := q.Join != nil

	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	agg := columnRef(q.Aggregate.Column, qualify)
	switch {
	case q.Aggregate.Op == plan.AggSum:
		// Empty result sets report 0, never NULL: the bot always promises
		// exactly one number back.
		fmt.Fprintf(&sb, "COALESCE(SUM(%s), 0)", agg)
	case q.Aggregate.Distinct:
		fmt.Fprintf(&sb, "COUNT(DISTINCT %s)", agg)
	default:
		fmt.Fprintf(&sb, "COUNT(%s)", agg)
	}

	sb.WriteString(" FROM ")
	sb.WriteString(q.Relation)

	if q.Join != nil {
		fmt.Fprintf(&sb, " JOIN %s ON %s = %s",
			q.Join.Table,
			columnRef(q.Join.On[0], true),
			columnRef(q.Join.On[1], true),
		)
	}

	if q.Predicate != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(renderExpr(q.Predicate, qualify, &args))
	}

	return sb.String(), args
}

func columnRef(c Column, qualify bool) string {
	if qualify {
		return c.Table + "." + c.Name
	}
	return c.Name
}

func renderExpr(e Expr, qualify bool, args *[]any) string {
	switch n := e.(type) {
	case *Compare:
		*args = append(*args, n.Value)
		return fmt.Sprintf("%s %s $%d", columnRef(n.Column, qualify), n.Op, len(*args))
	case *Logical:
		sep := " AND "
		if n.Op == plan.OpOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			rendered := renderExpr(child, qualify, args)
			// Parenthesize nested groups so mixed and/or keeps its grouping.
			if _, nested := child.(*Logical); nested {
				rendered = "(" + rendered + ")"
			}
			parts = append(parts, rendered)
		}
		return strings.Join(parts, sep)
	}
	return ""
}
