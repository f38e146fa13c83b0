package graph

import (
	"context"
	"fmt"

	"github.com/GoliasVictor/grpg/pkg/graph/keys"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/dgraph-io/badger/v4"
)

// ctxCheckInterval is how many keys a scan visits between context checks.
const ctxCheckInterval = 256

// Session is a consistent read snapshot of a Store. It implements
// table.Session and is safe for concurrent use by the traversals of one
// computation. Close must be called once the computation is over.
type Session struct {
	store *Store
	txn   *badger.Txn
}

var _ table.Session = (*Session)(nil)

// NewSession opens a read snapshot. The session holds a lease on the store,
// so the database stays open until Close even if the store is closed first.
func (s *Store) NewSession() (*Session, error) {
	if !s.Acquire() {
		return nil, ErrStoreClosed
	}
	return &Session{store: s, txn: s.db.NewTransaction(false)}, nil
}

// Close discards the snapshot and drops its lease.
func (s *Session) Close() {
	s.txn.Discard()
	s.store.Release()
}

// ResolveNodes answers a root filter with prefix scans.
//
// Without a node, direction picks the role of the returned nodes: subjects
// for out, objects for in, both when unset. With a node, the filter is a hop
// from that node: out returns the objects of its out-edges, in the subjects
// of its in-edges. Ids are returned ascending and unique.
func (s *Session) ResolveNodes(ctx context.Context, f table.Filter) ([]table.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.IsUnconstrained() {
		return s.allNodes(ctx)
	}
	if f.IsSingleton() {
		return []table.NodeID{*f.NodeID}, nil
	}

	var pid uint64
	if f.Predicate != nil {
		if *f.Predicate <= 0 {
			return []table.NodeID{}, nil
		}
		pid = uint64(*f.Predicate)
	}

	set := newIDSet()
	var err error
	if f.NodeID != nil {
		if *f.NodeID <= 0 {
			return []table.NodeID{}, nil
		}
		node := uint64(*f.NodeID)
		if f.Direction.Matches(table.DirectionOut) {
			err = s.scan(ctx, keys.EncodeSPOPrefix(node, pid), func(t table.Triple) { set.add(t.ObjectID) })
		}
		if err == nil && f.Direction.Matches(table.DirectionIn) {
			err = s.scan(ctx, keys.EncodeOPSPrefix(node, pid), func(t table.Triple) { set.add(t.SubjectID) })
		}
	} else {
		prefix := keys.EncodeSPOPrefix(0, 0)
		if pid != 0 {
			prefix = keys.EncodePSOPrefix(pid, 0)
		}
		err = s.scan(ctx, prefix, func(t table.Triple) {
			if f.Direction.Matches(table.DirectionOut) {
				set.add(t.SubjectID)
			}
			if f.Direction.Matches(table.DirectionIn) {
				set.add(t.ObjectID)
			}
		})
	}
	if err != nil {
		return nil, err
	}
	return set.sorted(), nil
}

// FetchEdges runs one bulk traversal for a single direction bucket.
// OUT reads the SPO index, IN the OPS index and ANY both, so a self-loop
// shows up once per incidence under ANY.
func (s *Session) FetchEdges(ctx context.Context, anchors []table.NodeID, req table.TraversalRequest) ([]table.Relation, error) {
	if len(anchors) == 0 || len(req.Predicates) == 0 {
		return nil, nil
	}

	var indexes []byte
	switch req.Direction {
	case table.DirectionOut:
		indexes = []byte{keys.SPOPrefix}
	case table.DirectionIn:
		indexes = []byte{keys.OPSPrefix}
	case table.DirectionAny:
		indexes = []byte{keys.SPOPrefix, keys.OPSPrefix}
	default:
		return nil, fmt.Errorf("unknown direction %d", req.Direction)
	}

	var rels []table.Relation
	for _, index := range indexes {
		var err error
		rels, err = s.fetchIndex(ctx, index, anchors, req, rels)
		if err != nil {
			return nil, err
		}
	}
	return rels, nil
}

func (s *Session) fetchIndex(ctx context.Context, index byte, anchors []table.NodeID, req table.TraversalRequest, rels []table.Relation) ([]table.Relation, error) {
	it := s.txn.NewIterator(keyOnlyOptions([]byte{index}))
	defer it.Close()

	for _, anchor := range anchors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if anchor <= 0 {
			continue
		}
		for _, pid := range req.Predicates {
			if pid <= 0 {
				continue
			}
			var prefix []byte
			if index == keys.SPOPrefix {
				prefix = keys.EncodeSPOPrefix(uint64(anchor), uint64(pid))
			} else {
				prefix = keys.EncodeOPSPrefix(uint64(anchor), uint64(pid))
			}
			scanWith(it, prefix, func(t table.Triple) bool {
				neighbor := t.ObjectID
				if index == keys.OPSPrefix {
					neighbor = t.SubjectID
				}
				rels = append(rels, table.Relation{
					Anchor:    anchor,
					Neighbor:  neighbor,
					Predicate: pid,
					Direction: req.Direction,
				})
				return true
			})
		}
	}
	return rels, nil
}

func (s *Session) allNodes(ctx context.Context) ([]table.NodeID, error) {
	prefix := []byte{keys.NodePrefix}
	it := s.txn.NewIterator(keyOnlyOptions(prefix))
	defer it.Close()

	ids := []table.NodeID{}
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		if len(ids)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if id, ok := keys.DecodeEntityKey(it.Item().Key()); ok {
			ids = append(ids, table.NodeID(id))
		}
	}
	return ids, nil
}

// scan visits every triple under prefix, checking ctx as it goes.
func (s *Session) scan(ctx context.Context, prefix []byte, fn func(table.Triple)) error {
	var (
		n   int
		err error
	)
	scanTriples(s.txn, prefix, func(t table.Triple) bool {
		n++
		if n%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		fn(t)
		return true
	})
	return err
}
