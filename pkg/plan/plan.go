// Package plan defines the query plan produced by the language model for a
// single analytics question, and the rules that make a plan safe to compile.
//
// A plan targets one of two fixed relations, aggregates exactly one field
// (count or sum), and may carry a boolean filter tree, an inclusive date
// range and at most one equi-join hop. Parsing and validation are a single
// operation: an invalid plan never exists as a value.
package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entity selects which relation a plan targets.
type Entity string

const (
	EntityVideo          Entity = "video"
	EntityVideoSnapshots Entity = "video_snapshots"
)

func (e Entity) valid() bool {
	return e == EntityVideo || e == EntityVideoSnapshots
}

// Aggregation is the aggregate operation applied to the plan's field.
type Aggregation string

const (
	AggCount Aggregation = "count"
	AggSum   Aggregation = "sum"
)

func (a Aggregation) valid() bool {
	return a == AggCount || a == AggSum
}

// LogicalOp combines the children of a condition group.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

func (op LogicalOp) valid() bool {
	return op == OpAnd || op == OpOr
}

// CompareOp is the comparison operator of a condition leaf.
type CompareOp string

const (
	OpEq  CompareOp = "="
	OpNe  CompareOp = "!="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
)

func (op CompareOp) valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// FilterNode is one node of the boolean filter tree: either a Condition leaf
// or a ConditionGroup combining nested nodes. The interface is sealed.
type FilterNode interface {
	filterNode()
}

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator CompareOp
	// Value is the comparison literal, an int64 or a string.
	Value any
}

func (*Condition) filterNode() {}

// ConditionGroup combines one or more child nodes under and/or. Groups nest
// to arbitrary depth; the declared grouping is preserved through compilation.
type ConditionGroup struct {
	Op         LogicalOp
	Conditions []FilterNode
}

func (*ConditionGroup) filterNode() {}

// DateFilter is an inclusive [From, To] bound on the entity's date column.
type DateFilter struct {
	From time.Time
	To   time.Time
}

// JoinSpec is a single equi-join hop from the plan's primary entity to a
// second entity, used to filter on fields the primary relation lacks.
type JoinSpec struct {
	SourceField  string `json:"source_field"`
	TargetEntity Entity `json:"target_entity"`
	TargetField  string `json:"target_field"`
}

// Plan is the validated representation of one analytics question.
type Plan struct {
	Entity     Entity
	Operation  Aggregation
	Field      string
	Distinct   bool
	Where      FilterNode
	DateFilter *DateFilter
	Join       *JoinSpec
}

// Parse decodes raw JSON into a Plan and validates it as a whole. Any
// structural or semantic defect yields an error and no Plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, wireErr(err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// maxFilterDepth caps filter tree nesting. Model output is untrusted input;
// anything deeper is pathological.
const maxFilterDepth = 32

type planWire struct {
	Entity     string          `json:"entity"`
	Operation  string          `json:"operation"`
	Field      string          `json:"field"`
	Distinct   *bool           `json:"distinct"`
	Where      json.RawMessage `json:"where"`
	DateFilter *DateFilter     `json:"date_filter"`
	Join       *JoinSpec       `json:"join"`
}

// wireErr classifies a decode error: our own sentinels pass through, anything
// from encoding/json itself becomes a schema error.
func wireErr(err error) error {
	if errors.Is(err, ErrSchema) || errors.Is(err, ErrStructure) || errors.Is(err, ErrRange) {
		return err
	}
	return schemaErrf("decode plan: %v", err)
}

func (p *Plan) UnmarshalJSON(data []byte) error {
	var w planWire
	if err := json.Unmarshal(data, &w); err != nil {
		return wireErr(err)
	}
	if !Entity(w.Entity).valid() {
		return schemaErrf("unknown entity %q", w.Entity)
	}
	if !Aggregation(w.Operation).valid() {
		return schemaErrf("unknown operation %q", w.Operation)
	}
	if w.Field == "" {
		return schemaErrf("missing field")
	}
	if w.Distinct == nil {
		return schemaErrf("missing distinct")
	}
	p.Entity = Entity(w.Entity)
	p.Operation = Aggregation(w.Operation)
	p.Field = w.Field
	p.Distinct = *w.Distinct
	p.DateFilter = w.DateFilter

	if len(w.Where) > 0 && !bytes.Equal(w.Where, []byte("null")) {
		node, err := decodeFilterNode(w.Where, 0)
		if err != nil {
			return err
		}
		p.Where = node
	}

	if w.Join != nil {
		if w.Join.SourceField == "" || w.Join.TargetField == "" {
			return schemaErrf("join requires source_field and target_field")
		}
		if !w.Join.TargetEntity.valid() {
			return schemaErrf("unknown join target entity %q", w.Join.TargetEntity)
		}
		p.Join = w.Join
	}
	return nil
}

func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entity     Entity      `json:"entity"`
		Operation  Aggregation `json:"operation"`
		Field      string      `json:"field"`
		Distinct   bool        `json:"distinct"`
		Where      FilterNode  `json:"where"`
		DateFilter *DateFilter `json:"date_filter"`
		Join       *JoinSpec   `json:"join,omitempty"`
	}{p.Entity, p.Operation, p.Field, p.Distinct, p.Where, p.DateFilter, p.Join})
}

// decodeFilterNode decodes one node of the tagged filter-tree union. The
// "type" discriminator selects between condition leaves and group nodes.
func decodeFilterNode(raw json.RawMessage, depth int) (FilterNode, error) {
	if depth >= maxFilterDepth {
		return nil, schemaErrf("filter tree deeper than %d levels", maxFilterDepth)
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, schemaErrf("decode filter node: %v", err)
	}
	switch tag.Type {
	case "condition":
		return decodeCondition(raw)
	case "group":
		return decodeGroup(raw, depth)
	default:
		return nil, schemaErrf("unknown filter node type %q", tag.Type)
	}
}

func decodeCondition(raw json.RawMessage) (*Condition, error) {
	var w struct {
		Field    string          `json:"field"`
		Operator string          `json:"operator"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, schemaErrf("decode condition: %v", err)
	}
	if w.Field == "" {
		return nil, schemaErrf("condition missing field")
	}
	if !CompareOp(w.Operator).valid() {
		return nil, schemaErrf("unknown operator %q", w.Operator)
	}
	value, err := decodeValue(w.Value)
	if err != nil {
		return nil, err
	}
	return &Condition{Field: w.Field, Operator: CompareOp(w.Operator), Value: value}, nil
}

// decodeValue accepts integers and strings only; the catalogs hold no float
// or boolean columns worth comparing against.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, schemaErrf("condition missing value")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, schemaErrf("decode condition value: %v", err)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, schemaErrf("condition value %s is not an integer", val)
		}
		return n, nil
	default:
		return nil, schemaErrf("condition value must be an integer or a string, got %T", v)
	}
}

func decodeGroup(raw json.RawMessage, depth int) (*ConditionGroup, error) {
	var w struct {
		Op         string            `json:"op"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, schemaErrf("decode group: %v", err)
	}
	if !LogicalOp(w.Op).valid() {
		return nil, schemaErrf("unknown logical op %q", w.Op)
	}
	if len(w.Conditions) == 0 {
		return nil, fmt.Errorf("%w: group with empty conditions", ErrStructure)
	}
	g := &ConditionGroup{Op: LogicalOp(w.Op), Conditions: make([]FilterNode, 0, len(w.Conditions))}
	for _, child := range w.Conditions {
		node, err := decodeFilterNode(child, depth+1)
		if err != nil {
			return nil, err
		}
		g.Conditions = append(g.Conditions, node)
	}
	return g, nil
}

func (c *Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string    `json:"type"`
		Field    string    `json:"field"`
		Operator CompareOp `json:"operator"`
		Value    any       `json:"value"`
	}{"condition", c.Field, c.Operator, c.Value})
}

func (g *ConditionGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string       `json:"type"`
		Op         LogicalOp    `json:"op"`
		Conditions []FilterNode `json:"conditions"`
	}{"group", g.Op, g.Conditions})
}

// timestampLayouts accepted on the wire. The model emits bare local
// timestamps; loaders and round-trips use RFC 3339.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// ParseTimestamp parses a wire timestamp in any accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, schemaErrf("invalid timestamp %q", s)
}

func (d *DateFilter) UnmarshalJSON(data []byte) error {
	var w struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return schemaErrf("decode date_filter: %v", err)
	}
	if w.From == nil || w.To == nil {
		return schemaErrf("date_filter requires from and to")
	}
	from, err := ParseTimestamp(*w.From)
	if err != nil {
		return err
	}
	to, err := ParseTimestamp(*w.To)
	if err != nil {
		return err
	}
	if from.After(to) {
		return fmt.Errorf("%w: from %s is after to %s", ErrRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	d.From = from
	d.To = to
	return nil
}

func (d *DateFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{d.From.Format(time.RFC3339), d.To.Format(time.RFC3339)})
}
