package table

import "context"

// NodeResolver resolves a root filter against the graph.
//
// Implementations may return ids in any order and with repetitions;
// ResolveAnchors normalizes the result.
type NodeResolver interface {
	ResolveNodes(ctx context.Context, filter Filter) ([]NodeID, error)
}

// TraversalRequest is one bulk one-hop traversal: every edge of the given
// direction, labeled with one of Predicates, incident to any anchor.
type TraversalRequest struct {
	Direction  Direction
	Predicates []PredicateID
}

// Relation is one traversed edge seen from its anchor.
// Direction carries the tag of the request that produced it.
type Relation struct {
	Anchor    NodeID
	Neighbor  NodeID
	Predicate PredicateID
	Direction Direction
}

// EdgeSource executes bulk one-hop traversals.
//
// FetchEdges must return no relations when req.Predicates or anchors is
// empty; an empty list never means "no restriction".
type EdgeSource interface {
	FetchEdges(ctx context.Context, anchors []NodeID, req TraversalRequest) ([]Relation, error)
}

// Session is a read view of one workspace graph, valid for one computation.
type Session interface {
	NodeResolver
	EdgeSource
}
