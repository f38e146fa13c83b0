package table

// Buckets partitions the predicate ids referenced by a table's columns by
// traversal direction. Each bucket keeps first-seen order without repeats.
type Buckets struct {
	Out []PredicateID
	In  []PredicateID
	Any []PredicateID
}

// Classify sorts every column that names a predicate into exactly one
// bucket. Columns without a predicate fetch nothing of their own; they only
// see what the other columns bring in. Their cells are therefore not always
// empty: an unset predicate matches any relation fetched for the anchor, and
// that is the intended behaviour.
func Classify(columns []ColumnDefinition) Buckets {
	var b Buckets
	seen := map[Direction]map[PredicateID]struct{}{
		DirectionOut: {},
		DirectionIn:  {},
		DirectionAny: {},
	}

	for _, col := range columns {
		if col.Filter.PredicateID == nil {
			continue
		}
		dir := col.Filter.Direction
		pid := *col.Filter.PredicateID
		if _, dup := seen[dir][pid]; dup {
			continue
		}
		seen[dir][pid] = struct{}{}

		switch dir {
		case DirectionOut:
			b.Out = append(b.Out, pid)
		case DirectionIn:
			b.In = append(b.In, pid)
		case DirectionAny:
			b.Any = append(b.Any, pid)
		}
	}
	return b
}

// Empty reports whether no bucket has members.
func (b Buckets) Empty() bool {
	return len(b.Out) == 0 && len(b.In) == 0 && len(b.Any) == 0
}

// Requests returns one traversal per non-empty bucket, in the order
// OUT, IN, ANY. Empty buckets produce no request at all.
func (b Buckets) Requests() []TraversalRequest {
	reqs := make([]TraversalRequest, 0, 3)
	for _, r := range []TraversalRequest{
		{Direction: DirectionOut, Predicates: b.Out},
		{Direction: DirectionIn, Predicates: b.In},
		{Direction: DirectionAny, Predicates: b.Any},
	} {
		if len(r.Predicates) > 0 {
			reqs = append(reqs, r)
		}
	}
	return reqs
}
