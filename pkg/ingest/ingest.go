package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GoliasVictor/grpg/pkg/table"
	"gopkg.in/yaml.v3"
)

// ErrUnknownLabel is returned when a triple or table refers to a label that
// is neither declared in the file nor present in the workspace.
var ErrUnknownLabel = errors.New("unknown label")

// ParseGraphFile decodes a YAML graph document.
func ParseGraphFile(r io.Reader) (*GraphFile, error) {
	var gf GraphFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&gf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode graph file: %w", err)
	}
	for i, t := range gf.Triples {
		if len(t) != 3 {
			return nil, fmt.Errorf("triple %d: want [subject, predicate, object], got %d items", i, len(t))
		}
	}
	return &gf, nil
}

// RunFile imports the graph file at path into workspace ws.
func RunFile(ctx context.Context, gw GraphWriter, tw TableWriter, ws int64, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	gf, err := ParseGraphFile(f)
	if err != nil {
		return Summary{}, err
	}
	return Run(ctx, gw, tw, ws, gf)
}

// Run imports gf into workspace ws. Labels already present in the workspace
// are reused, so running the same file twice creates nothing new except
// tables.
func Run(ctx context.Context, gw GraphWriter, tw TableWriter, ws int64, gf *GraphFile) (Summary, error) {
	var sum Summary

	// Pass 1: label tables
	nodeIDs, predIDs, err := existingLabels(ctx, gw, ws)
	if err != nil {
		return sum, err
	}
	for _, label := range gf.Nodes {
		if _, ok := nodeIDs[label]; ok {
			continue
		}
		n, err := gw.CreateNode(ctx, ws, label)
		if err != nil {
			return sum, fmt.Errorf("create node %q: %w", label, err)
		}
		nodeIDs[label] = n.ID
		sum.Nodes++
	}
	for _, label := range gf.Predicates {
		if _, ok := predIDs[label]; ok {
			continue
		}
		p, err := gw.CreatePredicate(ctx, ws, label)
		if err != nil {
			return sum, fmt.Errorf("create predicate %q: %w", label, err)
		}
		predIDs[label] = p.ID
		sum.Predicates++
	}
	slog.Info("ingest: labels ready", "workspace", ws, "nodes", len(nodeIDs), "predicates", len(predIDs))

	r := resolver{nodes: nodeIDs, preds: predIDs}

	// Pass 2: triples
	for i, raw := range gf.Triples {
		t, err := r.triple(raw)
		if err != nil {
			return sum, fmt.Errorf("triple %d: %w", i, err)
		}
		if err := gw.CreateTriple(ctx, ws, t); err != nil {
			return sum, fmt.Errorf("triple %d: %w", i, err)
		}
		sum.Triples++
	}

	for i, spec := range gf.Tables {
		def, err := r.definition(spec)
		if err != nil {
			return sum, fmt.Errorf("table %d (%s): %w", i, spec.Label, err)
		}
		if _, err := tw.CreateTable(ctx, ws, def); err != nil {
			return sum, fmt.Errorf("table %d (%s): %w", i, spec.Label, err)
		}
		sum.Tables++
	}

	slog.Info("ingest: done", "workspace", ws,
		"nodes", sum.Nodes, "predicates", sum.Predicates, "triples", sum.Triples, "tables", sum.Tables)
	return sum, nil
}

// existingLabels maps workspace labels to ids. For duplicate labels the
// lowest id wins.
func existingLabels(ctx context.Context, gw GraphWriter, ws int64) (map[string]table.NodeID, map[string]table.PredicateID, error) {
	nodes, err := gw.ListNodes(ctx, ws)
	if err != nil {
		return nil, nil, err
	}
	preds, err := gw.ListPredicates(ctx, ws)
	if err != nil {
		return nil, nil, err
	}

	nodeIDs := make(map[string]table.NodeID, len(nodes))
	for _, n := range nodes {
		if _, ok := nodeIDs[n.Label]; !ok {
			nodeIDs[n.Label] = n.ID
		}
	}
	predIDs := make(map[string]table.PredicateID, len(preds))
	for _, p := range preds {
		if _, ok := predIDs[p.Label]; !ok {
			predIDs[p.Label] = p.ID
		}
	}
	return nodeIDs, predIDs, nil
}

type resolver struct {
	nodes map[string]table.NodeID
	preds map[string]table.PredicateID
}

func (r resolver) node(label string) (table.NodeID, error) {
	id, ok := r.nodes[label]
	if !ok {
		return 0, fmt.Errorf("%w: node %q", ErrUnknownLabel, label)
	}
	return id, nil
}

func (r resolver) predicate(label string) (table.PredicateID, error) {
	id, ok := r.preds[label]
	if !ok {
		return 0, fmt.Errorf("%w: predicate %q", ErrUnknownLabel, label)
	}
	return id, nil
}

func (r resolver) triple(raw []string) (table.Triple, error) {
	s, err := r.node(raw[0])
	if err != nil {
		return table.Triple{}, err
	}
	p, err := r.predicate(raw[1])
	if err != nil {
		return table.Triple{}, err
	}
	o, err := r.node(raw[2])
	if err != nil {
		return table.Triple{}, err
	}
	return table.Triple{SubjectID: s, PredicateID: p, ObjectID: o}, nil
}

func (r resolver) definition(spec TableSpec) (table.TableDefinition, error) {
	def := table.TableDefinition{Label: spec.Label, Columns: make([]table.ColumnDefinition, 0, len(spec.Columns))}

	dir, err := table.ParseDirection(spec.Filter.Direction)
	if err != nil {
		return def, err
	}
	def.Filter.Direction = dir
	if spec.Filter.Node != "" {
		id, err := r.node(spec.Filter.Node)
		if err != nil {
			return def, err
		}
		def.Filter.NodeID = &id
	}
	if spec.Filter.Predicate != "" {
		id, err := r.predicate(spec.Filter.Predicate)
		if err != nil {
			return def, err
		}
		def.Filter.Predicate = &id
	}

	for _, c := range spec.Columns {
		dir, err := table.ParseDirection(c.Direction)
		if err != nil {
			return def, fmt.Errorf("column %d: %w", c.ID, err)
		}
		col := table.ColumnDefinition{ID: c.ID, Filter: table.ColumnFilter{Direction: dir}}
		if c.Predicate != "" {
			id, err := r.predicate(c.Predicate)
			if err != nil {
				return def, fmt.Errorf("column %d: %w", c.ID, err)
			}
			col.Filter.PredicateID = &id
		}
		def.Columns = append(def.Columns, col)
	}
	return def, nil
}
