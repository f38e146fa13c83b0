package table

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FetchRelations runs one bulk traversal per non-empty bucket and merges the
// results in OUT, IN, ANY order. Traversals run concurrently; the first
// failure cancels the rest and aborts the fetch.
//
// Relations are concatenated as returned. Nothing is deduplicated across
// buckets, so an edge reached by two requests appears twice.
func FetchRelations(ctx context.Context, src EdgeSource, anchors []NodeID, b Buckets) ([]Relation, error) {
	reqs := b.Requests()
	if len(anchors) == 0 || len(reqs) == 0 {
		return nil, nil
	}

	results := make([][]Relation, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			rels, err := src.FetchEdges(gctx, anchors, req)
			if err != nil {
				return &ResolutionError{Op: fmt.Sprintf("fetch %s edges", req.Direction), Err: err}
			}
			results[i] = rels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rels := range results {
		total += len(rels)
	}
	merged := make([]Relation, 0, total)
	for _, rels := range results {
		merged = append(merged, rels...)
	}
	return merged, nil
}
