package graph

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/GoliasVictor/grpg/pkg/graph/store"
	"github.com/GoliasVictor/grpg/pkg/table"
)

// buildRandomGraph creates n nodes and 3 predicates with about 4 outgoing
// edges per node. The seed is fixed so runs are comparable.
func buildRandomGraph(b *testing.B, n int) (*Store, []table.PredicateID) {
	b.Helper()
	s, err := NewStore(store.InMemoryConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { s.Close() })

	for i := 0; i < n; i++ {
		if _, err := s.CreateNode(fmt.Sprintf("node_%d", i)); err != nil {
			b.Fatal(err)
		}
	}
	preds := make([]table.PredicateID, 0, 3)
	for _, l := range []string{"calls", "imports", "defines"} {
		p, err := s.CreatePredicate(l)
		if err != nil {
			b.Fatal(err)
		}
		preds = append(preds, p.ID)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 1; i <= n; i++ {
		for j := 0; j < 4; j++ {
			t := table.Triple{
				SubjectID:   table.NodeID(i),
				PredicateID: preds[rng.IntN(len(preds))],
				ObjectID:    table.NodeID(rng.IntN(n) + 1),
			}
			if err := s.CreateTriple(t); err != nil {
				b.Fatal(err)
			}
		}
	}
	return s, preds
}

func BenchmarkCompute(b *testing.B) {
	for _, n := range []int{100, 1000} {
		b.Run(fmt.Sprintf("nodes=%d", n), func(b *testing.B) {
			s, preds := buildRandomGraph(b, n)
			def := table.TableDefinition{
				Columns: []table.ColumnDefinition{
					{ID: 1, Filter: table.ColumnFilter{Direction: table.DirectionOut, PredicateID: &preds[0]}},
					{ID: 2, Filter: table.ColumnFilter{Direction: table.DirectionIn, PredicateID: &preds[1]}},
					{ID: 3, Filter: table.ColumnFilter{PredicateID: &preds[2]}},
				},
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sess, err := s.NewSession()
				if err != nil {
					b.Fatal(err)
				}
				rows, err := table.Compute(ctx, sess, def)
				sess.Close()
				if err != nil {
					b.Fatal(err)
				}
				if len(rows) != n {
					b.Fatalf("got %d rows, want %d", len(rows), n)
				}
			}
		})
	}
}
