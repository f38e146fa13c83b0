package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoliasVictor/grpg/pkg/common/errors"
	"github.com/GoliasVictor/grpg/pkg/metrics"
	"github.com/GoliasVictor/grpg/pkg/table"
)

// Table is a saved definition together with freshly computed rows.
type Table struct {
	ID   int64                 `json:"id"`
	Def  table.TableDefinition `json:"def"`
	Rows []table.RowResponse   `json:"rows"`
}

// TableService computes tables and manages saved definitions. Rows are never
// stored; every read recomputes them from the current graph.
type TableService struct {
	backend
	engine *table.Engine
}

// NewTableService creates a new TableService.
func NewTableService(stores StoreManager, meta Metastore) *TableService {
	return &TableService{
		backend: backend{stores: stores, meta: meta},
		engine: table.NewEngine(
			table.WithLogger(slog.Default().With("component", "table")),
			table.WithObserver(metrics.ObserveTable),
		),
	}
}

// Compute evaluates def against the current graph of a workspace without
// saving it.
func (s *TableService) Compute(ctx context.Context, ws int64, def table.TableDefinition) ([]table.RowResponse, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	sess, err := g.NewSession()
	if err != nil {
		return nil, mapError(err)
	}
	defer sess.Close()

	rows, err := s.engine.Compute(ctx, sess, def)
	if err != nil {
		slog.Error("table computation failed", "workspace", ws, "label", def.Label, "error", err)
		return nil, mapError(err)
	}
	return rows, nil
}

// ComputeForNodes evaluates columns for an explicit list of anchor nodes.
func (s *TableService) ComputeForNodes(ctx context.Context, ws int64, nodes []table.NodeID, columns []table.ColumnDefinition) ([]table.RowResponse, error) {
	if err := (table.TableDefinition{Columns: columns}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	sess, err := g.NewSession()
	if err != nil {
		return nil, mapError(err)
	}
	defer sess.Close()

	rows, err := s.engine.ComputeForNodes(ctx, sess, nodes, columns)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// CreateTable saves def and returns it with its rows.
func (s *TableService) CreateTable(ctx context.Context, ws int64, def table.TableDefinition) (Table, error) {
	rows, err := s.Compute(ctx, ws, def)
	if err != nil {
		return Table{}, err
	}
	id, err := s.meta.AddTable(ctx, ws, def)
	if err != nil {
		return Table{}, mapError(err)
	}
	return Table{ID: id, Def: def, Rows: rows}, nil
}

// PutTable replaces (or creates) the definition stored under id.
func (s *TableService) PutTable(ctx context.Context, ws, id int64, def table.TableDefinition) (Table, error) {
	if id <= 0 {
		return Table{}, fmt.Errorf("%w: invalid table id %d", errors.ErrInvalidInput, id)
	}
	rows, err := s.Compute(ctx, ws, def)
	if err != nil {
		return Table{}, err
	}
	if err := s.meta.SetTable(ctx, ws, id, def); err != nil {
		return Table{}, mapError(err)
	}
	return Table{ID: id, Def: def, Rows: rows}, nil
}

// GetTable loads a saved definition and computes its rows.
func (s *TableService) GetTable(ctx context.Context, ws, id int64) (Table, error) {
	def, err := s.meta.GetTable(ctx, ws, id)
	if err != nil {
		return Table{}, mapError(err)
	}
	rows, err := s.Compute(ctx, ws, def)
	if err != nil {
		return Table{}, err
	}
	return Table{ID: id, Def: def, Rows: rows}, nil
}

// ListTables returns every saved table of a workspace with its rows, by id.
// All tables are computed against one snapshot.
func (s *TableService) ListTables(ctx context.Context, ws int64) ([]Table, error) {
	stored, err := s.meta.ListTables(ctx, ws)
	if err != nil {
		return nil, mapError(err)
	}
	g, err := s.graphFor(ctx, ws)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	sess, err := g.NewSession()
	if err != nil {
		return nil, mapError(err)
	}
	defer sess.Close()

	tables := make([]Table, 0, len(stored))
	for _, st := range stored {
		rows, err := s.engine.Compute(ctx, sess, st.Definition)
		if err != nil {
			return nil, mapError(err)
		}
		tables = append(tables, Table{ID: st.ID, Def: st.Definition, Rows: rows})
	}
	return tables, nil
}

// DeleteTable removes a saved table.
func (s *TableService) DeleteTable(ctx context.Context, ws, id int64) error {
	_, err := s.meta.RemoveTable(ctx, ws, id)
	return mapError(err)
}
