package ingest

import (
	"context"

	"github.com/GoliasVictor/grpg/pkg/graph"
	"github.com/GoliasVictor/grpg/pkg/service"
	"github.com/GoliasVictor/grpg/pkg/table"
)

// GraphFile is the YAML document accepted by Run. Triples and tables refer
// to nodes and predicates by label.
//
//	nodes: [A, B, C]
//	predicates: [likes]
//	triples:
//	  - [A, likes, B]
//	tables:
//	  - label: who likes what
//	    filter: {predicate: likes, direction: out}
//	    columns:
//	      - {id: 1, direction: out, predicate: likes}
type GraphFile struct {
	Nodes      []string    `yaml:"nodes"`
	Predicates []string    `yaml:"predicates"`
	Triples    [][]string  `yaml:"triples"`
	Tables     []TableSpec `yaml:"tables"`
}

// TableSpec is a table definition with label references.
type TableSpec struct {
	Label   string       `yaml:"label"`
	Filter  FilterSpec   `yaml:"filter"`
	Columns []ColumnSpec `yaml:"columns"`
}

// FilterSpec is a root filter with label references.
type FilterSpec struct {
	Node      string `yaml:"node"`
	Predicate string `yaml:"predicate"`
	Direction string `yaml:"direction"`
}

// ColumnSpec is a column with a label reference.
type ColumnSpec struct {
	ID        int64  `yaml:"id"`
	Direction string `yaml:"direction"`
	Predicate string `yaml:"predicate"`
}

// Summary counts what an import created. Reused labels are not counted.
type Summary struct {
	Nodes      int `json:"nodes"`
	Predicates int `json:"predicates"`
	Triples    int `json:"triples"`
	Tables     int `json:"tables"`
}

// GraphWriter is the part of the graph service an import needs.
type GraphWriter interface {
	ListNodes(ctx context.Context, ws int64) ([]graph.Node, error)
	CreateNode(ctx context.Context, ws int64, label string) (graph.Node, error)
	ListPredicates(ctx context.Context, ws int64) ([]graph.Predicate, error)
	CreatePredicate(ctx context.Context, ws int64, label string) (graph.Predicate, error)
	CreateTriple(ctx context.Context, ws int64, t table.Triple) error
}

// TableWriter saves table definitions.
type TableWriter interface {
	CreateTable(ctx context.Context, ws int64, def table.TableDefinition) (service.Table, error)
}
