package graph

import (
	"slices"

	"github.com/GoliasVictor/grpg/pkg/table"
)

type idSet map[table.NodeID]struct{}

func newIDSet() idSet { return idSet{} }

func (s idSet) add(id table.NodeID) { s[id] = struct{}{} }

func (s idSet) sorted() []table.NodeID {
	out := make([]table.NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
