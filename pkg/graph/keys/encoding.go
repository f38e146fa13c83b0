// Package keys defines the on-disk key layout of a workspace graph.
//
// Every id is a big-endian uint64 so that lexicographic key order matches
// numeric id order, which makes prefix scans return ascending ids.
package keys

import (
	"encoding/binary"
)

// Prefix constants for the different key spaces.
const (
	// Triple indices
	SPOPrefix byte = 0x01 // Subject-Predicate-Object
	OPSPrefix byte = 0x02 // Object-Predicate-Subject
	PSOPrefix byte = 0x03 // Predicate-Subject-Object

	// Entities, value = label
	NodePrefix      byte = 0x10
	PredicatePrefix byte = 0x11

	// System keys (0xFF reserved for system metadata)
	SystemPrefix byte = 0xFF
)

// Key size constants
const (
	PrefixSize = 1
	IDSize     = 8

	// prefix(1) + 3*ID(8) = 25 bytes
	TripleKeySize = PrefixSize + 3*IDSize

	// prefix(1) + ID(8) = 9 bytes
	EntityKeySize = PrefixSize + IDSize
)

// Sequence keys hold the last id handed out for each entity kind.
var (
	KeyNodeSeq      = []byte{SystemPrefix, 0x01}
	KeyPredicateSeq = []byte{SystemPrefix, 0x02}
)

// Triple encoding format:
// SPO: [prefix(1) | subject(8) | predicate(8) | object(8)]
// OPS: [prefix(1) | object(8) | predicate(8) | subject(8)]
// PSO: [prefix(1) | predicate(8) | subject(8) | object(8)]

func encodeTriple(prefix byte, a, b, c uint64) []byte {
	key := make([]byte, TripleKeySize)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], a)
	binary.BigEndian.PutUint64(key[9:17], b)
	binary.BigEndian.PutUint64(key[17:25], c)
	return key
}

func decodeTriple(key []byte, prefix byte) (a, b, c uint64, ok bool) {
	if len(key) < TripleKeySize || key[0] != prefix {
		return 0, 0, 0, false
	}
	return binary.BigEndian.Uint64(key[1:9]),
		binary.BigEndian.Uint64(key[9:17]),
		binary.BigEndian.Uint64(key[17:25]),
		true
}

// EncodeSPOKey encodes a triple into an SPO key.
func EncodeSPOKey(subject, predicate, object uint64) []byte {
	return encodeTriple(SPOPrefix, subject, predicate, object)
}

// EncodeOPSKey encodes a triple into an OPS key.
func EncodeOPSKey(subject, predicate, object uint64) []byte {
	return encodeTriple(OPSPrefix, object, predicate, subject)
}

// EncodePSOKey encodes a triple into a PSO key.
func EncodePSOKey(subject, predicate, object uint64) []byte {
	return encodeTriple(PSOPrefix, predicate, subject, object)
}

// TripleKeys returns the three index keys of one triple.
func TripleKeys(subject, predicate, object uint64) [3][]byte {
	return [3][]byte{
		EncodeSPOKey(subject, predicate, object),
		EncodeOPSKey(subject, predicate, object),
		EncodePSOKey(subject, predicate, object),
	}
}

// DecodeSPOKey decodes an SPO key. ok is false for keys of another index.
func DecodeSPOKey(key []byte) (subject, predicate, object uint64, ok bool) {
	return decodeTriple(key, SPOPrefix)
}

// DecodeOPSKey decodes an OPS key. ok is false for keys of another index.
func DecodeOPSKey(key []byte) (subject, predicate, object uint64, ok bool) {
	object, predicate, subject, ok = decodeTriple(key, OPSPrefix)
	return
}

// DecodePSOKey decodes a PSO key. ok is false for keys of another index.
func DecodePSOKey(key []byte) (subject, predicate, object uint64, ok bool) {
	predicate, subject, object, ok = decodeTriple(key, PSOPrefix)
	return
}

// encodePrefix builds a scan prefix. A zero first component yields the bare
// index prefix; a zero second component stops after the first.
// Ids start at 1, so zero is free to mean "unbound".
func encodePrefix(prefix byte, first, second uint64) []byte {
	if first == 0 {
		return []byte{prefix}
	}
	if second == 0 {
		key := make([]byte, PrefixSize+IDSize)
		key[0] = prefix
		binary.BigEndian.PutUint64(key[1:9], first)
		return key
	}
	key := make([]byte, PrefixSize+2*IDSize)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], first)
	binary.BigEndian.PutUint64(key[9:17], second)
	return key
}

// EncodeSPOPrefix creates a prefix for SPO range scans with bound values.
func EncodeSPOPrefix(subject, predicate uint64) []byte {
	return encodePrefix(SPOPrefix, subject, predicate)
}

// EncodeOPSPrefix creates a prefix for OPS range scans with bound values.
func EncodeOPSPrefix(object, predicate uint64) []byte {
	return encodePrefix(OPSPrefix, object, predicate)
}

// EncodePSOPrefix creates a prefix for PSO range scans with bound values.
func EncodePSOPrefix(predicate, subject uint64) []byte {
	return encodePrefix(PSOPrefix, predicate, subject)
}

// EncodeNodeKey encodes the key holding a node label.
func EncodeNodeKey(id uint64) []byte {
	return encodeEntity(NodePrefix, id)
}

// EncodePredicateKey encodes the key holding a predicate label.
func EncodePredicateKey(id uint64) []byte {
	return encodeEntity(PredicatePrefix, id)
}

// DecodeEntityKey returns the id stored in a node or predicate key.
func DecodeEntityKey(key []byte) (uint64, bool) {
	if len(key) < EntityKeySize {
		return 0, false
	}
	if key[0] != NodePrefix && key[0] != PredicatePrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[1:9]), true
}

func encodeEntity(prefix byte, id uint64) []byte {
	key := make([]byte, EntityKeySize)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], id)
	return key
}

// EncodeUint64 encodes a counter value.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, IDSize)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 decodes a counter value, returning 0 for short input.
func DecodeUint64(b []byte) uint64 {
	if len(b) < IDSize {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
