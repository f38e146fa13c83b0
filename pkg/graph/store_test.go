package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/GoliasVictor/grpg/pkg/graph/store"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedLikes builds nodes 1:A 2:B 3:C, predicate 1:likes and triples
// A-likes->B, A-likes->C.
func seedLikes(t *testing.T, s *Store) table.PredicateID {
	t.Helper()
	for _, label := range []string{"A", "B", "C"} {
		_, err := s.CreateNode(label)
		require.NoError(t, err)
	}
	likes, err := s.CreatePredicate("likes")
	require.NoError(t, err)
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: likes.ID, ObjectID: 2}))
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: likes.ID, ObjectID: 3}))
	return likes.ID
}

func compute(t *testing.T, s *Store, def table.TableDefinition) []table.RowResponse {
	t.Helper()
	sess, err := s.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	rows, err := table.Compute(context.Background(), sess, def)
	require.NoError(t, err)
	return rows
}

func TestStore_NodeLifecycle(t *testing.T) {
	s := newTestStore(t)

	a, err := s.CreateNode("Alice")
	require.NoError(t, err)
	b, err := s.CreateNode("Bob")
	require.NoError(t, err)
	assert.Equal(t, table.NodeID(1), a.ID)
	assert.Equal(t, table.NodeID(2), b.ID)

	_, err = s.CreateNode("   ")
	assert.ErrorIs(t, err, ErrInvalidLabel)

	got, err := s.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Label)

	_, err = s.UpdateNode(2, "Robert")
	require.NoError(t, err)
	got, _ = s.GetNode(2)
	assert.Equal(t, "Robert", got.Label)

	_, err = s.UpdateNode(9, "x")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	require.NoError(t, s.DeleteNode(1))
	_, err = s.GetNode(1)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ErrorIs(t, s.DeleteNode(1), ErrNodeNotFound)

	c, err := s.CreateNode("Carol")
	require.NoError(t, err)
	assert.Equal(t, table.NodeID(3), c.ID, "ids are not reused")

	nodes, err := s.ListNodes()
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: 2, Label: "Robert"}, {ID: 3, Label: "Carol"}}, nodes)
}

func TestStore_Triples(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)
	assert.Equal(t, uint64(2), s.Count())

	// identical re-creation is a no-op
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: likes, ObjectID: 2}))
	assert.Equal(t, uint64(2), s.Count())

	err := s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: likes, ObjectID: 99})
	assert.ErrorIs(t, err, ErrNodeNotFound)
	err = s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: 42, ObjectID: 2})
	assert.ErrorIs(t, err, ErrPredicateNotFound)
	err = s.CreateTriple(table.Triple{SubjectID: 0, PredicateID: likes, ObjectID: 2})
	assert.ErrorIs(t, err, ErrInvalidTriple)

	triples, err := s.ListTriples()
	require.NoError(t, err)
	assert.Equal(t, []table.Triple{
		{SubjectID: 1, PredicateID: likes, ObjectID: 2},
		{SubjectID: 1, PredicateID: likes, ObjectID: 3},
	}, triples)

	require.NoError(t, s.DeleteTriple(table.Triple{SubjectID: 1, PredicateID: likes, ObjectID: 3}))
	require.NoError(t, s.DeleteTriple(table.Triple{SubjectID: 1, PredicateID: likes, ObjectID: 3}))
	assert.Equal(t, uint64(1), s.Count())
}

func TestStore_DeleteNodeDetachesTriples(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 3, PredicateID: likes, ObjectID: 1}))
	require.Equal(t, uint64(3), s.Count())

	require.NoError(t, s.DeleteNode(1))
	assert.Equal(t, uint64(0), s.Count())

	triples, err := s.ListTriples()
	require.NoError(t, err)
	assert.Empty(t, triples)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Nodes: 2, Predicates: 1, Triples: 0}, st)
}

func TestStore_Predicates(t *testing.T) {
	s := newTestStore(t)
	p1, err := s.CreatePredicate("likes")
	require.NoError(t, err)
	p2, err := s.CreatePredicate("knows")
	require.NoError(t, err)

	preds, err := s.ListPredicates()
	require.NoError(t, err)
	assert.Equal(t, []Predicate{p1, p2}, preds)

	_, err = s.GetPredicate(77)
	assert.ErrorIs(t, err, ErrPredicateNotFound)
}

func TestStore_ReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	rw, err := NewStore(store.DefaultConfig(dir))
	require.NoError(t, err)
	seedLikes(t, rw)
	require.NoError(t, rw.Close())

	cfg := store.DefaultConfig(dir)
	cfg.ReadOnly = true
	ro, err := NewStore(cfg)
	require.NoError(t, err)
	defer ro.Close()

	assert.Equal(t, uint64(2), ro.Count())
	_, err = ro.CreateNode("D")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestSession_AllNodesWithOutColumn(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)

	rows := compute(t, s, table.TableDefinition{
		Columns: []table.ColumnDefinition{{ID: 1, Filter: table.ColumnFilter{Direction: table.DirectionOut, PredicateID: &likes}}},
	})
	assert.Equal(t, []table.RowResponse{
		{NodeID: 1, Columns: []table.CellResponse{{ID: 1, Values: []table.NodeID{2, 3}}}},
		{NodeID: 2, Columns: []table.CellResponse{{ID: 1, Values: []table.NodeID{}}}},
		{NodeID: 3, Columns: []table.CellResponse{{ID: 1, Values: []table.NodeID{}}}},
	}, rows)
}

func TestSession_OutHopFromNode(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)

	rows := compute(t, s, table.TableDefinition{
		Filter: table.Filter{NodeID: table.Ptr[table.NodeID](1), Predicate: &likes, Direction: table.DirectionOut},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, table.NodeID(2), rows[0].NodeID)
	assert.Equal(t, table.NodeID(3), rows[1].NodeID)
}

func TestSession_ResolveNodes(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)
	sess, err := s.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	ctx := context.Background()

	cases := []struct {
		name   string
		filter table.Filter
		want   []table.NodeID
	}{
		{"subjects of likes", table.Filter{Predicate: &likes, Direction: table.DirectionOut}, []table.NodeID{1}},
		{"objects of likes", table.Filter{Predicate: &likes, Direction: table.DirectionIn}, []table.NodeID{2, 3}},
		{"either end of likes", table.Filter{Predicate: &likes}, []table.NodeID{1, 2, 3}},
		{"who likes C", table.Filter{NodeID: table.Ptr[table.NodeID](3), Direction: table.DirectionIn}, []table.NodeID{1}},
		{"neighbors of B", table.Filter{NodeID: table.Ptr[table.NodeID](2), Predicate: &likes}, []table.NodeID{1}},
		{"dangling predicate", table.Filter{Predicate: table.Ptr[table.PredicateID](50)}, []table.NodeID{}},
		{"zero predicate", table.Filter{Predicate: table.Ptr[table.PredicateID](0)}, []table.NodeID{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sess.ResolveNodes(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSession_FetchEdges(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 2, PredicateID: likes, ObjectID: 2}))
	sess, err := s.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	ctx := context.Background()

	none, err := sess.FetchEdges(ctx, []table.NodeID{1, 2, 3}, table.TraversalRequest{Direction: table.DirectionAny})
	require.NoError(t, err)
	assert.Empty(t, none, "empty predicate set matches nothing")

	in, err := sess.FetchEdges(ctx, []table.NodeID{3}, table.TraversalRequest{Direction: table.DirectionIn, Predicates: []table.PredicateID{likes}})
	require.NoError(t, err)
	assert.Equal(t, []table.Relation{{Anchor: 3, Neighbor: 1, Predicate: likes, Direction: table.DirectionIn}}, in)

	loop, err := sess.FetchEdges(ctx, []table.NodeID{2}, table.TraversalRequest{Direction: table.DirectionAny, Predicates: []table.PredicateID{likes}})
	require.NoError(t, err)
	assert.Equal(t, []table.Relation{
		{Anchor: 2, Neighbor: 2, Predicate: likes, Direction: table.DirectionAny},
		{Anchor: 2, Neighbor: 1, Predicate: likes, Direction: table.DirectionAny},
		{Anchor: 2, Neighbor: 2, Predicate: likes, Direction: table.DirectionAny},
	}, loop)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = sess.FetchEdges(cancelled, []table.NodeID{1}, table.TraversalRequest{Direction: table.DirectionOut, Predicates: []table.PredicateID{likes}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_SnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)

	sess, err := s.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	_, err = s.CreateNode("D")
	require.NoError(t, err)
	require.NoError(t, s.CreateTriple(table.Triple{SubjectID: 1, PredicateID: likes, ObjectID: 4}))

	rows, err := table.Compute(context.Background(), sess, table.TableDefinition{
		Columns: []table.ColumnDefinition{{ID: 1, Filter: table.ColumnFilter{Direction: table.DirectionOut, PredicateID: &likes}}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []table.NodeID{2, 3}, rows[0].Columns[0].Values)
}

func TestSession_ConcurrentComputations(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)
	def := table.TableDefinition{Columns: []table.ColumnDefinition{
		{ID: 1, Filter: table.ColumnFilter{Direction: table.DirectionOut, PredicateID: &likes}},
		{ID: 2, Filter: table.ColumnFilter{Direction: table.DirectionIn, PredicateID: &likes}},
		{ID: 3, Filter: table.ColumnFilter{PredicateID: &likes}},
	}}
	want := compute(t, s, def)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := s.NewSession()
			if !assert.NoError(t, err) {
				return
			}
			defer sess.Close()
			got, err := table.Compute(context.Background(), sess, def)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestStore_SearchNodes(t *testing.T) {
	s := newTestStore(t)
	for _, label := range []string{"Alice Smith", "Bob", "Alicia", "Charlie"} {
		_, err := s.CreateNode(label)
		require.NoError(t, err)
	}

	matches, err := s.SearchNodes("alice", 0)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Alice Smith", matches[0].Label)
	assert.Equal(t, 0.95, matches[0].Score)

	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, m.Label)
	}
	assert.Contains(t, labels, "Alicia")
	assert.NotContains(t, labels, "Bob")

	top, err := s.SearchNodes("alice", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	empty, err := s.SearchNodes("  ", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_CloseWaitsForOpenSession(t *testing.T) {
	s := newTestStore(t)
	likes := seedLikes(t, s)

	sess, err := s.NewSession()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, s.Closed(), "an open session keeps the database open")

	rows, err := table.Compute(context.Background(), sess, table.TableDefinition{
		Filter:  table.Filter{NodeID: table.Ptr[table.NodeID](1)},
		Columns: []table.ColumnDefinition{{ID: 1, Filter: table.ColumnFilter{PredicateID: &likes}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.NodeID{2, 3}, rows[0].Columns[0].Values)

	sess.Close()
	assert.True(t, s.Closed())

	_, err = s.NewSession()
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.ListNodes()
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.CreateNode("late")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_ReopenCancelsPendingClose(t *testing.T) {
	s := newTestStore(t)
	seedLikes(t, s)

	require.True(t, s.Acquire())
	require.NoError(t, s.Close())
	require.True(t, s.Reopen())
	s.Release()
	assert.False(t, s.Closed())

	nodes, err := s.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}
