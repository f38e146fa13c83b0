package table

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cols := []ColumnDefinition{
		column(1, DirectionOut, Ptr[PredicateID](10)),
		column(2, DirectionIn, Ptr[PredicateID](11)),
		column(3, DirectionAny, Ptr[PredicateID](12)),
		column(4, DirectionOut, Ptr[PredicateID](10)),
		column(5, DirectionOut, Ptr[PredicateID](13)),
		column(6, DirectionIn, nil),
	}

	b := Classify(cols)
	assert.Equal(t, []PredicateID{10, 13}, b.Out)
	assert.Equal(t, []PredicateID{11}, b.In)
	assert.Equal(t, []PredicateID{12}, b.Any)

	reqs := b.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, DirectionOut, reqs[0].Direction)
	assert.Equal(t, DirectionIn, reqs[1].Direction)
	assert.Equal(t, DirectionAny, reqs[2].Direction)
}

func TestClassify_EmptyBucketsIssueNoRequests(t *testing.T) {
	b := Classify([]ColumnDefinition{column(1, DirectionIn, Ptr[PredicateID](7))})
	assert.Nil(t, b.Out)
	assert.Nil(t, b.Any)
	assert.Equal(t, []TraversalRequest{{Direction: DirectionIn, Predicates: []PredicateID{7}}}, b.Requests())

	assert.True(t, Classify(nil).Empty())
	assert.Empty(t, Classify(nil).Requests())
}

func TestFetchRelations_OnlyNonEmptyBuckets(t *testing.T) {
	g := likesGraph()
	b := Buckets{In: []PredicateID{10}}

	rels, err := FetchRelations(context.Background(), g, []NodeID{2, 3}, b)
	require.NoError(t, err)
	require.Len(t, g.fetches, 1)
	assert.Equal(t, DirectionIn, g.fetches[0].Direction)
	assert.ElementsMatch(t, []Relation{
		{Anchor: 2, Neighbor: 1, Predicate: 10, Direction: DirectionIn},
		{Anchor: 3, Neighbor: 1, Predicate: 10, Direction: DirectionIn},
	}, rels)
}

func TestFetchRelations_MergeOrder(t *testing.T) {
	g := likesGraph()
	b := Buckets{Any: []PredicateID{10}, Out: []PredicateID{10}}

	rels, err := FetchRelations(context.Background(), g, []NodeID{1}, b)
	require.NoError(t, err)
	require.Len(t, rels, 4)
	assert.Equal(t, DirectionOut, rels[0].Direction)
	assert.Equal(t, DirectionOut, rels[1].Direction)
	assert.Equal(t, DirectionAny, rels[2].Direction)
	assert.Equal(t, DirectionAny, rels[3].Direction)
}

func TestFetchRelations_NoAnchors(t *testing.T) {
	g := likesGraph()
	rels, err := FetchRelations(context.Background(), g, nil, Buckets{Out: []PredicateID{10}})
	require.NoError(t, err)
	assert.Empty(t, rels)
	assert.Empty(t, g.fetches)
}

func TestAssembleRows_IgnoresForeignAnchors(t *testing.T) {
	rows := AssembleRows(
		[]NodeID{5},
		[]ColumnDefinition{column(1, DirectionAny, nil)},
		[]Relation{
			{Anchor: 6, Neighbor: 1, Predicate: 1, Direction: DirectionOut},
			{Anchor: 5, Neighbor: 9, Predicate: 1, Direction: DirectionIn},
			{Anchor: 5, Neighbor: 4, Predicate: 2, Direction: DirectionOut},
		},
	)
	assert.Equal(t, []RowResponse{
		{NodeID: 5, Columns: []CellResponse{{ID: 1, Values: []NodeID{4, 9}}}},
	}, rows)
}

func TestDirectionJSON(t *testing.T) {
	var f ColumnFilter
	require.NoError(t, json.Unmarshal([]byte(`{"direction":"OUT","predicate_id":3}`), &f))
	assert.Equal(t, DirectionOut, f.Direction)
	assert.Equal(t, PredicateID(3), *f.PredicateID)

	var unset ColumnFilter
	require.NoError(t, json.Unmarshal([]byte(`{"direction":null}`), &unset))
	assert.Equal(t, DirectionAny, unset.Direction)
	assert.Nil(t, unset.PredicateID)

	var bad ColumnFilter
	assert.Error(t, json.Unmarshal([]byte(`{"direction":"sideways"}`), &bad))

	out, err := json.Marshal(ColumnFilter{Direction: DirectionIn})
	require.NoError(t, err)
	assert.JSONEq(t, `{"direction":"in"}`, string(out))

	out, err = json.Marshal(CellResponse{ID: 1, Values: []NodeID{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"values":[]}`, string(out))
}

func TestTableDefinition_Validate(t *testing.T) {
	ok := TableDefinition{Columns: []ColumnDefinition{{ID: 1}, {ID: 2}}}
	assert.NoError(t, ok.Validate())

	dup := TableDefinition{Columns: []ColumnDefinition{{ID: 1}, {ID: 1}}}
	assert.Error(t, dup.Validate())
}
