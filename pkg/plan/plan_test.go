package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_CountDistinctVideos(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{
		"entity": "video",
		"operation": "count",
		"field": "id",
		"distinct": true,
		"where": null,
		"date_filter": null
	}`))
	require.NoError(t, err)
	require.Equal(t, EntityVideo, p.Entity)
	require.Equal(t, AggCount, p.Operation)
	require.Equal(t, "id", p.Field)
	require.True(t, p.Distinct)
	require.Nil(t, p.Where)
	require.Nil(t, p.DateFilter)
	require.Nil(t, p.Join)
}

func TestParse_FilterTree(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{
		"entity": "video",
		"operation": "count",
		"field": "id",
		"distinct": false,
		"where": {
			"type": "group",
			"op": "and",
			"conditions": [
				{"type": "condition", "field": "views_count", "operator": ">", "value": 100},
				{"type": "group", "op": "or", "conditions": [
					{"type": "condition", "field": "likes_count", "operator": ">=", "value": 10},
					{"type": "condition", "field": "creator_id", "operator": "=", "value": "42"}
				]}
			]
		}
	}`))
	require.NoError(t, err)

	group, ok := p.Where.(*ConditionGroup)
	require.True(t, ok)
	require.Equal(t, OpAnd, group.Op)
	require.Len(t, group.Conditions, 2)

	leaf, ok := group.Conditions[0].(*Condition)
	require.True(t, ok)
	require.Equal(t, "views_count", leaf.Field)
	require.Equal(t, OpGt, leaf.Operator)
	require.Equal(t, int64(100), leaf.Value)

	nested, ok := group.Conditions[1].(*ConditionGroup)
	require.True(t, ok)
	require.Equal(t, OpOr, nested.Op)
	require.Len(t, nested.Conditions, 2)
	require.Equal(t, "42", nested.Conditions[1].(*Condition).Value)
}

func TestParse_BareConditionRoot(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{
		"entity": "video",
		"operation": "sum",
		"field": "views_count",
		"distinct": false,
		"where": {"type": "condition", "field": "creator_id", "operator": "=", "value": "7"}
	}`))
	require.NoError(t, err)
	_, ok := p.Where.(*Condition)
	require.True(t, ok)
}

func TestParse_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
	}{
		{
			name: "not json",
			json: `count all videos please`,
		},
		{
			name: "unknown entity",
			json: `{"entity": "creators", "operation": "count", "field": "id", "distinct": true}`,
		},
		{
			name: "unknown operation",
			json: `{"entity": "video", "operation": "avg", "field": "id", "distinct": true}`,
		},
		{
			name: "missing field",
			json: `{"entity": "video", "operation": "count", "distinct": true}`,
		},
		{
			name: "missing distinct",
			json: `{"entity": "video", "operation": "count", "field": "id"}`,
		},
		{
			name: "unknown filter node type",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"where": {"type": "predicate", "field": "id", "operator": "=", "value": 1}}`,
		},
		{
			name: "unknown operator",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"where": {"type": "condition", "field": "id", "operator": "~", "value": 1}}`,
		},
		{
			name: "float condition value",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"where": {"type": "condition", "field": "views_count", "operator": ">", "value": 1.5}}`,
		},
		{
			name: "boolean condition value",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"where": {"type": "condition", "field": "views_count", "operator": ">", "value": true}}`,
		},
		{
			name: "malformed timestamp",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"date_filter": {"from": "yesterday", "to": "2025-11-05T00:00:00"}}`,
		},
		{
			name: "date filter missing to",
			json: `{"entity": "video", "operation": "count", "field": "id", "distinct": true,
				"date_filter": {"from": "2025-11-01T00:00:00"}}`,
		},
		{
			name: "join missing target field",
			json: `{"entity": "video_snapshots", "operation": "count", "field": "id", "distinct": false,
				"join": {"source_field": "video_id", "target_entity": "video"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.json))
			require.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestParse_EmptyGroup(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{
		"entity": "video", "operation": "count", "field": "id", "distinct": true,
		"where": {"type": "group", "op": "and", "conditions": []}
	}`))
	require.ErrorIs(t, err, ErrStructure)
}

func TestParse_DateRange(t *testing.T) {
	t.Parallel()

	// Inverted range is rejected.
	_, err := Parse([]byte(`{
		"entity": "video", "operation": "count", "field": "id", "distinct": true,
		"date_filter": {"from": "2025-11-05T00:00:00", "to": "2025-11-01T00:00:00"}
	}`))
	require.ErrorIs(t, err, ErrRange)

	// A degenerate single-instant range is fine.
	p, err := Parse([]byte(`{
		"entity": "video", "operation": "count", "field": "id", "distinct": true,
		"date_filter": {"from": "2025-11-01T00:00:00", "to": "2025-11-01T00:00:00"}
	}`))
	require.NoError(t, err)
	require.True(t, p.DateFilter.From.Equal(p.DateFilter.To))

	// RFC 3339 timestamps are accepted too.
	p, err = Parse([]byte(`{
		"entity": "video_snapshots", "operation": "sum", "field": "delta_views_count", "distinct": false,
		"date_filter": {"from": "2025-11-01T00:00:00Z", "to": "2025-11-05T23:59:59Z"}
	}`))
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 11, 5, 23, 59, 59, 0, time.UTC), p.DateFilter.To)
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{
		"entity": "video", "operation": "count", "field": "id", "distinct": true,
		"confidence": 0.9, "explanation": "counting all videos"
	}`))
	require.NoError(t, err)
}

func TestParse_DepthCap(t *testing.T) {
	t.Parallel()

	leaf := `{"type": "condition", "field": "views_count", "operator": ">", "value": 0}`
	node := leaf
	for i := 0; i < 40; i++ {
		node = fmt.Sprintf(`{"type": "group", "op": "and", "conditions": [%s]}`, node)
	}
	doc := fmt.Sprintf(`{"entity": "video", "operation": "count", "field": "id", "distinct": true, "where": %s}`, node)

	_, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrSchema)
	require.Contains(t, err.Error(), "deeper")
}

func TestPlan_RoundTrip(t *testing.T) {
	t.Parallel()

	docs := []string{
		`{
			"entity": "video_snapshots",
			"operation": "count",
			"field": "video_id",
			"distinct": true,
			"where": {"type": "group", "op": "and", "conditions": [
				{"type": "condition", "field": "delta_views_count", "operator": ">", "value": 0}
			]},
			"date_filter": {"from": "2025-11-27T00:00:00Z", "to": "2025-11-27T23:59:59Z"}
		}`,
		`{
			"entity": "video_snapshots",
			"operation": "count",
			"field": "id",
			"distinct": false,
			"where": {"type": "condition", "field": "creator_id", "operator": "=", "value": "7"},
			"join": {"source_field": "video_id", "target_entity": "video", "target_field": "id"}
		}`,
	}

	for _, doc := range docs {
		original, err := Parse([]byte(doc))
		require.NoError(t, err)

		encoded, err := json.Marshal(original)
		require.NoError(t, err)

		decoded, err := Parse(encoded)
		require.NoError(t, err)
		require.Equal(t, original, decoded)
	}
}

func TestStructureErrorIsNotValidationError(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{
		"entity": "video", "operation": "count", "field": "id", "distinct": true,
		"where": {"type": "group", "op": "and", "conditions": []}
	}`))
	var verr *ValidationError
	require.False(t, errors.As(err, &verr))
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	got, err := ParseTimestamp("2025-11-28T13:00:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 11, 28, 13, 0, 0, 0, time.UTC), got)

	_, err = ParseTimestamp("28.11.2025")
	require.ErrorIs(t, err, ErrSchema)
	require.False(t, strings.Contains(err.Error(), "panic"))
}
