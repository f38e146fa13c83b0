package table

import (
	"context"
	"slices"
)

// ResolveAnchors evaluates the root filter of a table.
//
// A filter naming only a node resolves to that node without consulting the
// resolver, so a dangling id still yields one (empty) row. Every other shape
// is delegated to r. The result is always deduplicated and ascending.
func ResolveAnchors(ctx context.Context, r NodeResolver, f Filter) ([]NodeID, error) {
	if f.IsSingleton() {
		return []NodeID{*f.NodeID}, nil
	}

	ids, err := r.ResolveNodes(ctx, f)
	if err != nil {
		return nil, &ResolutionError{Op: "resolve anchors", Err: err}
	}
	return normalizeIDs(ids), nil
}

// normalizeIDs sorts ids ascending and drops repeats in place.
func normalizeIDs(ids []NodeID) []NodeID {
	if len(ids) == 0 {
		return []NodeID{}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
