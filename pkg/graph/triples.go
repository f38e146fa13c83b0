package graph

import (
	"fmt"

	"github.com/GoliasVictor/grpg/pkg/graph/keys"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/dgraph-io/badger/v4"
)

func tripleKeys(t table.Triple) [3][]byte {
	return keys.TripleKeys(uint64(t.SubjectID), uint64(t.PredicateID), uint64(t.ObjectID))
}

func validateTriple(t table.Triple) error {
	if t.SubjectID <= 0 || t.PredicateID <= 0 || t.ObjectID <= 0 {
		return fmt.Errorf("%w: ids must be positive, got (%d, %d, %d)",
			ErrInvalidTriple, t.SubjectID, t.PredicateID, t.ObjectID)
	}
	return nil
}

// CreateTriple links two existing nodes with an existing predicate.
// Creating a triple that already exists is a no-op.
func (s *Store) CreateTriple(t table.Triple) error {
	if err := validateTriple(t); err != nil {
		return err
	}
	var created bool
	err := s.withWriteTxn(func(txn *badger.Txn) error {
		for _, id := range []table.NodeID{t.SubjectID, t.ObjectID} {
			ok, err := exists(txn, keys.EncodeNodeKey(uint64(id)))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
			}
		}
		ok, err := exists(txn, keys.EncodePredicateKey(uint64(t.PredicateID)))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrPredicateNotFound, t.PredicateID)
		}

		k := tripleKeys(t)
		if ok, err := exists(txn, k[0]); err != nil || ok {
			return err
		}
		for _, key := range k {
			if err := txn.Set(key, []byte{}); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return err
	}
	if created {
		s.numTriples.Add(1)
	}
	return nil
}

// DeleteTriple removes a triple. Deleting a missing triple is a no-op.
func (s *Store) DeleteTriple(t table.Triple) error {
	if err := validateTriple(t); err != nil {
		return err
	}
	var deleted bool
	err := s.withWriteTxn(func(txn *badger.Txn) error {
		k := tripleKeys(t)
		ok, err := exists(txn, k[0])
		if err != nil || !ok {
			return err
		}
		for _, key := range k {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}
	if deleted {
		s.numTriples.Add(^uint64(0))
	}
	return nil
}

// ListTriples returns every triple in SPO order.
func (s *Store) ListTriples() ([]table.Triple, error) {
	triples := []table.Triple{}
	err := s.withReadTxn(func(txn *badger.Txn) error {
		scanTriples(txn, []byte{keys.SPOPrefix}, func(t table.Triple) bool {
			triples = append(triples, t)
			return true
		})
		return nil
	})
	return triples, err
}

// scanTriples walks the index named by prefix[0] under prefix, decoding each
// key into a triple. It stops early when fn returns false.
func scanTriples(txn *badger.Txn, prefix []byte, fn func(table.Triple) bool) {
	it := txn.NewIterator(keyOnlyOptions(prefix))
	defer it.Close()
	scanWith(it, prefix, fn)
}

// scanWith is scanTriples over an iterator the caller reuses across seeks.
func scanWith(it *badger.Iterator, prefix []byte, fn func(table.Triple) bool) {
	decode := decoderFor(prefix[0])
	if decode == nil {
		return
	}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		s, p, o, ok := decode(it.Item().Key())
		if !ok {
			continue
		}
		t := table.Triple{SubjectID: table.NodeID(s), PredicateID: table.PredicateID(p), ObjectID: table.NodeID(o)}
		if !fn(t) {
			return
		}
	}
}

func decoderFor(index byte) func([]byte) (uint64, uint64, uint64, bool) {
	switch index {
	case keys.SPOPrefix:
		return keys.DecodeSPOKey
	case keys.OPSPrefix:
		return keys.DecodeOPSKey
	case keys.PSOPrefix:
		return keys.DecodePSOKey
	}
	return nil
}

func keyOnlyOptions(prefix []byte) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	if len(prefix) > 0 {
		opts.Prefix = []byte{prefix[0]}
	}
	return opts
}
