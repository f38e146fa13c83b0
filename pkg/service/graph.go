package service

import (
	"context"

	"github.com/GoliasVictor/grpg/pkg/graph"
	"github.com/GoliasVictor/grpg/pkg/table"
)

// GraphService edits the nodes, predicates and triples of a workspace.
type GraphService struct {
	backend
}

// NewGraphService creates a new GraphService.
func NewGraphService(stores StoreManager, meta Metastore) *GraphService {
	return &GraphService{backend{stores: stores, meta: meta}}
}

func (s *GraphService) ListNodes(ctx context.Context, ws int64) ([]graph.Node, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	nodes, err := g.ListNodes()
	return nodes, mapError(err)
}

func (s *GraphService) GetNode(ctx context.Context, ws int64, id table.NodeID) (graph.Node, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return graph.Node{}, err
	}
	defer g.Release()
	n, err := g.GetNode(id)
	return n, mapError(err)
}

func (s *GraphService) CreateNode(ctx context.Context, ws int64, label string) (graph.Node, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return graph.Node{}, err
	}
	defer g.Release()
	n, err := g.CreateNode(label)
	return n, mapError(err)
}

func (s *GraphService) UpdateNode(ctx context.Context, ws int64, id table.NodeID, label string) (graph.Node, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return graph.Node{}, err
	}
	defer g.Release()
	n, err := g.UpdateNode(id, label)
	return n, mapError(err)
}

// DeleteNode removes a node and every triple touching it.
func (s *GraphService) DeleteNode(ctx context.Context, ws int64, id table.NodeID) error {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return err
	}
	defer g.Release()
	return mapError(g.DeleteNode(id))
}

func (s *GraphService) SearchNodes(ctx context.Context, ws int64, query string, limit int) ([]graph.NodeMatch, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	matches, err := g.SearchNodes(query, limit)
	return matches, mapError(err)
}

func (s *GraphService) ListPredicates(ctx context.Context, ws int64) ([]graph.Predicate, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	preds, err := g.ListPredicates()
	return preds, mapError(err)
}

func (s *GraphService) CreatePredicate(ctx context.Context, ws int64, label string) (graph.Predicate, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return graph.Predicate{}, err
	}
	defer g.Release()
	p, err := g.CreatePredicate(label)
	return p, mapError(err)
}

func (s *GraphService) ListTriples(ctx context.Context, ws int64) ([]table.Triple, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	triples, err := g.ListTriples()
	return triples, mapError(err)
}

func (s *GraphService) CreateTriple(ctx context.Context, ws int64, t table.Triple) error {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return err
	}
	defer g.Release()
	return mapError(g.CreateTriple(t))
}

func (s *GraphService) DeleteTriple(ctx context.Context, ws int64, t table.Triple) error {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return err
	}
	defer g.Release()
	return mapError(g.DeleteTriple(t))
}

func (s *GraphService) Stats(ctx context.Context, ws int64) (graph.Stats, error) {
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return graph.Stats{}, err
	}
	defer g.Release()
	st, err := g.Stats()
	return st, mapError(err)
}
