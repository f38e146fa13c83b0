// Package table projects a labeled directed graph into a relational view.
//
// A TableDefinition selects a set of anchor nodes through its root Filter and
// declares an ordered list of columns. Every column names one relation (an
// edge predicate plus a direction); the cell of an anchor under that column
// holds the ids of the neighbors reachable through that relation.
//
// Computation is a fixed pipeline:
//
//	Filter -> ResolveAnchors -> Classify -> FetchRelations -> AssembleRows
//
// The graph itself is reached only through the Session interface, one
// session per computation, so concurrent computations never share state.
package table

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeID identifies a node inside a workspace.
type NodeID int64

// PredicateID identifies an edge label inside a workspace.
type PredicateID int64

// Direction is the orientation of an edge relative to an anchor.
// The zero value, DirectionAny, stands for an unset direction.
type Direction uint8

const (
	DirectionAny Direction = iota
	DirectionOut
	DirectionIn
)

// String returns the lowercase tag used on the wire.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionIn:
		return "in"
	default:
		return "any"
	}
}

// ParseDirection parses a direction tag case-insensitively.
// The empty string parses as DirectionAny.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return DirectionAny, nil
	case "out":
		return DirectionOut, nil
	case "in":
		return DirectionIn, nil
	}
	return DirectionAny, fmt.Errorf("invalid direction %q", s)
}

// Matches reports whether a relation tagged with tag satisfies d.
// DirectionAny matches every tag.
func (d Direction) Matches(tag Direction) bool {
	return d == DirectionAny || d == tag
}

// MarshalJSON encodes DirectionAny as null.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d == DirectionAny {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "in", "out" or "any" in any letter case.
func (d *Direction) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DirectionAny
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("direction must be a string: %w", err)
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Triple is a directed, predicate-labeled edge.
type Triple struct {
	SubjectID   NodeID      `json:"subject_id"`
	PredicateID PredicateID `json:"predicate_id"`
	ObjectID    NodeID      `json:"object_id"`
}

// Filter selects the anchor set of a table. Every field is optional.
type Filter struct {
	NodeID    *NodeID      `json:"node_id,omitempty"`
	Predicate *PredicateID `json:"predicate,omitempty"`
	Direction Direction    `json:"direction,omitempty"`
}

// IsUnconstrained reports whether the filter selects every node.
func (f Filter) IsUnconstrained() bool {
	return f.NodeID == nil && f.Predicate == nil && f.Direction == DirectionAny
}

// IsSingleton reports whether the filter names one node and nothing else.
func (f Filter) IsSingleton() bool {
	return f.NodeID != nil && f.Predicate == nil && f.Direction == DirectionAny
}

// ColumnFilter selects the relation projected by a column.
type ColumnFilter struct {
	Direction   Direction    `json:"direction,omitempty"`
	PredicateID *PredicateID `json:"predicate_id,omitempty"`
}

// Accepts reports whether rel belongs to a column with this filter.
// An unset predicate accepts every predicate; an unset direction every tag.
func (f ColumnFilter) Accepts(rel Relation) bool {
	if f.PredicateID != nil && *f.PredicateID != rel.Predicate {
		return false
	}
	return f.Direction.Matches(rel.Direction)
}

// ColumnDefinition is one declared column. ID is assigned by the client and
// must be unique within its table.
type ColumnDefinition struct {
	ID     int64        `json:"id"`
	Filter ColumnFilter `json:"filter"`
}

// TableDefinition is the declarative description of a table.
type TableDefinition struct {
	Label   string             `json:"label"`
	Filter  Filter             `json:"filter"`
	Columns []ColumnDefinition `json:"columns"`
}

// Validate checks the constraints the engine relies on callers to enforce.
func (d TableDefinition) Validate() error {
	seen := make(map[int64]struct{}, len(d.Columns))
	for i, col := range d.Columns {
		if _, dup := seen[col.ID]; dup {
			return fmt.Errorf("column %d: duplicate column id %d", i, col.ID)
		}
		seen[col.ID] = struct{}{}
	}
	return nil
}

// CellResponse holds the neighbor ids of one anchor under one column.
// Values are ascending and may repeat.
type CellResponse struct {
	ID     int64    `json:"id"`
	Values []NodeID `json:"values"`
}

// RowResponse is one anchor with one cell per declared column.
type RowResponse struct {
	NodeID  NodeID         `json:"node_id"`
	Columns []CellResponse `json:"columns"`
}

// Ptr returns a pointer to v. It keeps optional filter fields terse.
func Ptr[T any](v T) *T {
	return &v
}
