package table

import (
	"context"
	"log/slog"
	"time"
)

// Stats describes one finished computation.
type Stats struct {
	Anchors   int
	Requests  int
	Relations int
	Duration  time.Duration
}

// Observer receives the Stats of every successful computation.
type Observer func(Stats)

// Engine computes tables. It holds no graph state; the graph is supplied per
// call through a Session, so one Engine serves any number of workspaces
// concurrently.
type Engine struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers a callback fed after each computation.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute evaluates def against the graph behind s.
//
// The result has one row per anchor, in anchor order, each with one cell per
// declared column. Either the whole table is returned or an error; a failed
// traversal surfaces as *ResolutionError.
func (e *Engine) Compute(ctx context.Context, s Session, def TableDefinition) ([]RowResponse, error) {
	start := time.Now()

	anchors, err := ResolveAnchors(ctx, s, def.Filter)
	if err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		e.finish(Stats{Duration: time.Since(start)}, def)
		return []RowResponse{}, nil
	}

	return e.project(ctx, s, anchors, def, start)
}

// ComputeForNodes projects columns onto caller-chosen anchors instead of a
// root filter. Rows follow the first occurrence of each node in nodes.
func (e *Engine) ComputeForNodes(ctx context.Context, s EdgeSource, nodes []NodeID, columns []ColumnDefinition) ([]RowResponse, error) {
	start := time.Now()
	def := TableDefinition{Columns: columns}

	anchors := make([]NodeID, 0, len(nodes))
	seen := make(map[NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		anchors = append(anchors, n)
	}
	if len(anchors) == 0 {
		e.finish(Stats{Duration: time.Since(start)}, def)
		return []RowResponse{}, nil
	}
	return e.project(ctx, s, anchors, def, start)
}

func (e *Engine) project(ctx context.Context, s EdgeSource, anchors []NodeID, def TableDefinition, start time.Time) ([]RowResponse, error) {
	buckets := Classify(def.Columns)
	relations, err := FetchRelations(ctx, s, anchors, buckets)
	if err != nil {
		return nil, err
	}

	rows := AssembleRows(anchors, def.Columns, relations)
	e.finish(Stats{
		Anchors:   len(anchors),
		Requests:  len(buckets.Requests()),
		Relations: len(relations),
		Duration:  time.Since(start),
	}, def)
	return rows, nil
}

func (e *Engine) finish(st Stats, def TableDefinition) {
	e.logger.Debug("table computed",
		"label", def.Label,
		"columns", len(def.Columns),
		"anchors", st.Anchors,
		"requests", st.Requests,
		"relations", st.Relations,
		"duration", st.Duration)
	if e.observer != nil {
		e.observer(st)
	}
}

// Compute evaluates def with a default Engine.
func Compute(ctx context.Context, s Session, def TableDefinition) ([]RowResponse, error) {
	return NewEngine().Compute(ctx, s, def)
}
