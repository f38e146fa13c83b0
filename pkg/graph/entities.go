package graph

import (
	"fmt"
	"strings"

	"github.com/GoliasVictor/grpg/pkg/graph/keys"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/dgraph-io/badger/v4"
)

// Node is a labeled vertex.
type Node struct {
	ID    table.NodeID `json:"node_id"`
	Label string       `json:"label"`
}

// Predicate is an edge label.
type Predicate struct {
	ID    table.PredicateID `json:"id"`
	Label string            `json:"label"`
}

func validLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%w: label must not be empty", ErrInvalidLabel)
	}
	return label, nil
}

// CreateNode stores a new node and returns it with its allocated id.
// Ids are never reused, even after the node is deleted.
func (s *Store) CreateNode(label string) (Node, error) {
	label, err := validLabel(label)
	if err != nil {
		return Node{}, err
	}
	var n Node
	err = s.withWriteTxn(func(txn *badger.Txn) error {
		id, err := nextID(txn, keys.KeyNodeSeq)
		if err != nil {
			return err
		}
		n = Node{ID: table.NodeID(id), Label: label}
		return txn.Set(keys.EncodeNodeKey(id), []byte(label))
	})
	if err != nil {
		return Node{}, fmt.Errorf("create node: %w", err)
	}
	return n, nil
}

// GetNode returns the node with the given id.
func (s *Store) GetNode(id table.NodeID) (Node, error) {
	var n Node
	err := s.withReadTxn(func(txn *badger.Txn) error {
		label, err := getLabel(txn, keys.EncodeNodeKey(uint64(id)), ErrNodeNotFound)
		n = Node{ID: id, Label: label}
		return err
	})
	return n, err
}

// ListNodes returns every node ordered by id.
func (s *Store) ListNodes() ([]Node, error) {
	nodes := []Node{}
	err := s.withReadTxn(func(txn *badger.Txn) error {
		return scanEntities(txn, keys.NodePrefix, func(id uint64, label string) {
			nodes = append(nodes, Node{ID: table.NodeID(id), Label: label})
		})
	})
	return nodes, err
}

// UpdateNode relabels an existing node.
func (s *Store) UpdateNode(id table.NodeID, label string) (Node, error) {
	label, err := validLabel(label)
	if err != nil {
		return Node{}, err
	}
	err = s.withWriteTxn(func(txn *badger.Txn) error {
		key := keys.EncodeNodeKey(uint64(id))
		ok, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNodeNotFound
		}
		return txn.Set(key, []byte(label))
	})
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Label: label}, nil
}

// DeleteNode removes a node together with every triple incident to it.
func (s *Store) DeleteNode(id table.NodeID) error {
	var removed int
	err := s.withWriteTxn(func(txn *badger.Txn) error {
		key := keys.EncodeNodeKey(uint64(id))
		ok, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNodeNotFound
		}

		incident := map[table.Triple]struct{}{}
		collect := func(t table.Triple) bool {
			incident[t] = struct{}{}
			return true
		}
		scanTriples(txn, keys.EncodeSPOPrefix(uint64(id), 0), collect)
		scanTriples(txn, keys.EncodeOPSPrefix(uint64(id), 0), collect)

		for t := range incident {
			for _, k := range tripleKeys(t) {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}
		removed = len(incident)
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	if removed > 0 {
		s.numTriples.Add(^uint64(removed - 1))
	}
	return nil
}

// CreatePredicate stores a new predicate and returns it with its id.
func (s *Store) CreatePredicate(label string) (Predicate, error) {
	label, err := validLabel(label)
	if err != nil {
		return Predicate{}, err
	}
	var p Predicate
	err = s.withWriteTxn(func(txn *badger.Txn) error {
		id, err := nextID(txn, keys.KeyPredicateSeq)
		if err != nil {
			return err
		}
		p = Predicate{ID: table.PredicateID(id), Label: label}
		return txn.Set(keys.EncodePredicateKey(id), []byte(label))
	})
	if err != nil {
		return Predicate{}, fmt.Errorf("create predicate: %w", err)
	}
	return p, nil
}

// GetPredicate returns the predicate with the given id.
func (s *Store) GetPredicate(id table.PredicateID) (Predicate, error) {
	var p Predicate
	err := s.withReadTxn(func(txn *badger.Txn) error {
		label, err := getLabel(txn, keys.EncodePredicateKey(uint64(id)), ErrPredicateNotFound)
		p = Predicate{ID: id, Label: label}
		return err
	})
	return p, err
}

// ListPredicates returns every predicate ordered by id.
func (s *Store) ListPredicates() ([]Predicate, error) {
	preds := []Predicate{}
	err := s.withReadTxn(func(txn *badger.Txn) error {
		return scanEntities(txn, keys.PredicatePrefix, func(id uint64, label string) {
			preds = append(preds, Predicate{ID: table.PredicateID(id), Label: label})
		})
	})
	return preds, err
}

func getLabel(txn *badger.Txn, key []byte, notFound error) (string, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return "", notFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func scanEntities(txn *badger.Txn, prefix byte, fn func(id uint64, label string)) error {
	p := []byte{prefix}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		id, ok := keys.DecodeEntityKey(item.Key())
		if !ok {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		fn(id, string(val))
	}
	return nil
}
