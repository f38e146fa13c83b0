package table

import "slices"

// AssembleRows projects fetched relations onto the declared columns.
//
// Relations are grouped by anchor once. Each anchor then yields one row with
// one cell per column, in declared order, holding the ascending neighbor ids
// of the anchor's relations accepted by that column. Duplicates are kept.
// Rows follow the order of anchors.
func AssembleRows(anchors []NodeID, columns []ColumnDefinition, relations []Relation) []RowResponse {
	byAnchor := make(map[NodeID][]Relation, len(anchors))
	for _, rel := range relations {
		byAnchor[rel.Anchor] = append(byAnchor[rel.Anchor], rel)
	}

	rows := make([]RowResponse, 0, len(anchors))
	for _, anchor := range anchors {
		rows = append(rows, assembleRow(anchor, columns, byAnchor[anchor]))
	}
	return rows
}

func assembleRow(anchor NodeID, columns []ColumnDefinition, rels []Relation) RowResponse {
	cells := make([]CellResponse, 0, len(columns))
	for _, col := range columns {
		values := make([]NodeID, 0)
		for _, rel := range rels {
			if col.Filter.Accepts(rel) {
				values = append(values, rel.Neighbor)
			}
		}
		slices.Sort(values)
		cells = append(cells, CellResponse{ID: col.ID, Values: values})
	}
	return RowResponse{NodeID: anchor, Columns: cells}
}
