// Package graph implements the per-workspace triple store on BadgerDB.
//
// Every triple is written under three indexes (SPO, OPS, PSO) so that any
// one-hop pattern is answered by a single prefix scan. Node and predicate
// labels live in their own key spaces with monotonically allocated ids.
//
// Example usage:
//
//	s, err := graph.NewStore(store.DefaultConfig("./data/1"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	a, _ := s.CreateNode("Alice")
//	b, _ := s.CreateNode("Bob")
//	knows, _ := s.CreatePredicate("knows")
//	_ = s.CreateTriple(table.Triple{SubjectID: a.ID, PredicateID: knows.ID, ObjectID: b.ID})
//
//	sess, err := s.NewSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//	rows, err := table.Compute(ctx, sess, def)
package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/GoliasVictor/grpg/pkg/graph/keys"
	"github.com/GoliasVictor/grpg/pkg/graph/store"
	"github.com/dgraph-io/badger/v4"
)

// Store is one workspace graph.
type Store struct {
	db     *badger.DB
	config *store.Config

	// mu serializes writers: id allocation and the existence checks that
	// guard triple creation must see each other's effects.
	mu sync.Mutex

	// numTriples is rebuilt from the SPO index on open.
	numTriples atomic.Uint64

	// life guards the lease count. Close only retires the store while
	// leases are out; the last Release closes the database.
	life    sync.Mutex
	refs    int
	retired bool
	closed  bool
}

// Stats summarizes the contents of a store.
type Stats struct {
	Nodes      int    `json:"nodes"`
	Predicates int    `json:"predicates"`
	Triples    uint64 `json:"triples"`
}

// NewStore opens the store described by cfg.
func NewStore(cfg *store.Config) (*Store, error) {
	slog.Info("opening graph store",
		"dataDir", cfg.DataDir,
		"inMemory", cfg.InMemory,
		"profile", cfg.Profile,
		"readOnly", cfg.ReadOnly,
	)

	db, err := store.OpenBadgerDB(cfg)
	if err != nil {
		slog.Error("failed to open BadgerDB", "dataDir", cfg.DataDir, "error", err)
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	s := &Store{db: db, config: cfg}
	if err := s.recalculateStats(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return s, nil
}

// Close retires the store. The database is closed at once when no lease is
// held, otherwise by the Release that drops the last one.
func (s *Store) Close() error {
	s.life.Lock()
	defer s.life.Unlock()
	if s.retired || s.closed {
		return nil
	}
	s.retired = true
	if s.refs > 0 {
		slog.Debug("graph store retired with open leases", "dataDir", s.config.DataDir, "leases", s.refs)
		return nil
	}
	return s.closeLocked()
}

// Acquire takes a lease that keeps the database open until Release. It
// fails once the database has been closed.
func (s *Store) Acquire() bool {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed {
		return false
	}
	s.refs++
	return true
}

// Release drops a lease taken by Acquire.
func (s *Store) Release() {
	s.life.Lock()
	defer s.life.Unlock()
	s.refs--
	if s.refs == 0 && s.retired && !s.closed {
		if err := s.closeLocked(); err != nil {
			slog.Warn("failed to close retired graph store", "dataDir", s.config.DataDir, "error", err)
		}
	}
}

// Reopen cancels a pending Close. It reports false when the database is
// already closed.
func (s *Store) Reopen() bool {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed {
		return false
	}
	s.retired = false
	return true
}

// Closed reports whether the database has been closed.
func (s *Store) Closed() bool {
	s.life.Lock()
	defer s.life.Unlock()
	return s.closed
}

func (s *Store) closeLocked() error {
	s.closed = true
	slog.Info("closing graph store", "dataDir", s.config.DataDir, "triples", s.numTriples.Load())
	return s.db.Close()
}

// Count returns the number of triples in the store.
func (s *Store) Count() uint64 {
	return s.numTriples.Load()
}

// Stats counts nodes, predicates and triples.
func (s *Store) Stats() (Stats, error) {
	st := Stats{Triples: s.numTriples.Load()}
	err := s.withReadTxn(func(txn *badger.Txn) error {
		var err error
		if st.Nodes, err = countPrefix(txn, []byte{keys.NodePrefix}); err != nil {
			return err
		}
		st.Predicates, err = countPrefix(txn, []byte{keys.PredicatePrefix})
		return err
	})
	return st, err
}

func (s *Store) recalculateStats() error {
	return s.withReadTxn(func(txn *badger.Txn) error {
		n, err := countPrefix(txn, []byte{keys.SPOPrefix})
		if err != nil {
			return err
		}
		s.numTriples.Store(uint64(n))
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix []byte) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n, nil
}

// withReadTxn executes a function within a read transaction.
func (s *Store) withReadTxn(fn func(*badger.Txn) error) error {
	if !s.Acquire() {
		return ErrStoreClosed
	}
	defer s.Release()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// withWriteTxn executes a function within a write transaction under the
// writer lock.
func (s *Store) withWriteTxn(fn func(*badger.Txn) error) error {
	if s.config.ReadOnly {
		return ErrReadOnly
	}
	if !s.Acquire() {
		return ErrStoreClosed
	}
	defer s.Release()

	s.mu.Lock()
	defer s.mu.Unlock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// nextID bumps the sequence stored at key and returns the new value.
func nextID(txn *badger.Txn, key []byte) (uint64, error) {
	var last uint64
	item, err := txn.Get(key)
	switch {
	case err == badger.ErrKeyNotFound:
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			last = keys.DecodeUint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	next := last + 1
	if err := txn.Set(key, keys.EncodeUint64(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// exists reports whether key is present.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}
