package keys

import (
	"bytes"
	"testing"
)

func TestTripleKeyRoundTrip(t *testing.T) {
	s, p, o := uint64(7), uint64(3), uint64(1<<40)

	if got := EncodeSPOKey(s, p, o); len(got) != TripleKeySize {
		t.Fatalf("SPO key size = %d, want %d", len(got), TripleKeySize)
	}

	ds, dp, do, ok := DecodeSPOKey(EncodeSPOKey(s, p, o))
	if !ok || ds != s || dp != p || do != o {
		t.Errorf("SPO decode = (%d,%d,%d,%v)", ds, dp, do, ok)
	}
	ds, dp, do, ok = DecodeOPSKey(EncodeOPSKey(s, p, o))
	if !ok || ds != s || dp != p || do != o {
		t.Errorf("OPS decode = (%d,%d,%d,%v)", ds, dp, do, ok)
	}
	ds, dp, do, ok = DecodePSOKey(EncodePSOKey(s, p, o))
	if !ok || ds != s || dp != p || do != o {
		t.Errorf("PSO decode = (%d,%d,%d,%v)", ds, dp, do, ok)
	}

	if _, _, _, ok := DecodeSPOKey(EncodeOPSKey(s, p, o)); ok {
		t.Error("decoding an OPS key as SPO should fail")
	}
}

func TestPrefixesMatchKeys(t *testing.T) {
	key := EncodeSPOKey(5, 9, 2)
	for _, prefix := range [][]byte{EncodeSPOPrefix(0, 0), EncodeSPOPrefix(5, 0), EncodeSPOPrefix(5, 9)} {
		if !bytes.HasPrefix(key, prefix) {
			t.Errorf("key %x lacks prefix %x", key, prefix)
		}
	}
	if bytes.HasPrefix(key, EncodeSPOPrefix(5, 8)) {
		t.Error("key must not match another predicate's prefix")
	}
	if !bytes.HasPrefix(EncodeOPSKey(5, 9, 2), EncodeOPSPrefix(2, 9)) {
		t.Error("OPS key must match object|predicate prefix")
	}
	if !bytes.HasPrefix(EncodePSOKey(5, 9, 2), EncodePSOPrefix(9, 5)) {
		t.Error("PSO key must match predicate|subject prefix")
	}
}

func TestKeyOrderMatchesIDOrder(t *testing.T) {
	if bytes.Compare(EncodeNodeKey(2), EncodeNodeKey(256)) >= 0 {
		t.Error("node keys must sort numerically")
	}
	if bytes.Compare(EncodeSPOKey(1, 1, 9), EncodeSPOKey(1, 2, 1)) >= 0 {
		t.Error("SPO keys must sort by subject, predicate, object")
	}
}

func TestEntityKeys(t *testing.T) {
	id, ok := DecodeEntityKey(EncodePredicateKey(42))
	if !ok || id != 42 {
		t.Errorf("DecodeEntityKey = (%d,%v), want (42,true)", id, ok)
	}
	if _, ok := DecodeEntityKey(EncodeSPOKey(1, 2, 3)); ok {
		t.Error("triple key is not an entity key")
	}
	if DecodeUint64(EncodeUint64(99)) != 99 {
		t.Error("counter round trip failed")
	}
}
