package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoliasVictor/grpg/pkg/graph"
	"github.com/GoliasVictor/grpg/pkg/table"
)

func TestStoreManager_CreateAndGet(t *testing.T) {
	sm := NewStoreManager(t.TempDir(), MemoryProfileLow, false, 0)
	defer sm.CloseAll()

	if _, err := sm.GetStore(1); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}

	s1, err := sm.CreateStore(1)
	if err != nil {
		t.Fatalf("Failed to create store 1: %v", err)
	}
	defer s1.Release()
	if _, err := s1.CreateNode("A"); err != nil {
		t.Fatalf("Failed to write to store 1: %v", err)
	}

	s1Again, err := sm.GetStore(1)
	if err != nil {
		t.Fatalf("Failed to get store 1 again: %v", err)
	}
	defer s1Again.Release()
	if s1 != s1Again {
		t.Errorf("Expected same instance for workspace 1, got different")
	}

	s1Created, err := sm.CreateStore(1)
	if err != nil {
		t.Fatalf("CreateStore on existing workspace failed: %v", err)
	}
	defer s1Created.Release()
	if s1Created != s1 {
		t.Errorf("CreateStore should return the open instance")
	}
}

func TestStoreManager_LRU(t *testing.T) {
	sm := NewStoreManager(t.TempDir(), MemoryProfileLow, false, 2)
	defer sm.CloseAll()

	for _, id := range []int64{1, 2, 3} {
		s, err := sm.CreateStore(id)
		if err != nil {
			t.Fatalf("Failed to create store %d: %v", id, err)
		}
		if _, err := s.CreateNode("n"); err != nil {
			t.Fatalf("Failed to write store %d: %v", id, err)
		}
		s.Release()
	}
	if got := sm.OpenCount(); got != 2 {
		t.Errorf("Expected 2 open stores, got %d", got)
	}

	// Workspace 1 was evicted and closed; reopening must find its data.
	s1, err := sm.GetStore(1)
	if err != nil {
		t.Fatalf("Failed to reopen evicted store: %v", err)
	}
	defer s1.Release()
	nodes, err := s1.ListNodes()
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("Expected 1 node after reopen, got %d", len(nodes))
	}
}

func TestStoreManager_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	rw := NewStoreManager(dir, MemoryProfileDefault, false, 0)
	s7, err := rw.CreateStore(7)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	s7.Release()
	rw.CloseAll()

	ro := NewStoreManager(dir, MemoryProfileDefault, true, 0)
	defer ro.CloseAll()
	if _, err := ro.CreateStore(8); !errors.Is(err, graph.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	s, err := ro.GetStore(7)
	if err != nil {
		t.Fatalf("Failed to open read-only store: %v", err)
	}
	defer s.Release()
	if _, err := s.CreateNode("x"); !errors.Is(err, graph.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on write, got %v", err)
	}
}

// seedSelfLoop writes node 1 with a 1-p->1 triple.
func seedSelfLoop(t *testing.T, s *graph.Store) table.PredicateID {
	t.Helper()
	n, err := s.CreateNode("A")
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	p, err := s.CreatePredicate("p")
	if err != nil {
		t.Fatalf("CreatePredicate failed: %v", err)
	}
	if err := s.CreateTriple(table.Triple{SubjectID: n.ID, PredicateID: p.ID, ObjectID: n.ID}); err != nil {
		t.Fatalf("CreateTriple failed: %v", err)
	}
	return p.ID
}

func TestStoreManager_EvictionWaitsForOpenSession(t *testing.T) {
	sm := NewStoreManager(t.TempDir(), MemoryProfileLow, false, 1)
	defer sm.CloseAll()

	s1, err := sm.CreateStore(1)
	if err != nil {
		t.Fatalf("Failed to create store 1: %v", err)
	}
	p := seedSelfLoop(t, s1)
	sess, err := s1.NewSession()
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	s1.Release()

	s2, err := sm.CreateStore(2)
	if err != nil {
		t.Fatalf("Failed to create store 2: %v", err)
	}
	s2.Release()
	if got := sm.OpenCount(); got != 1 {
		t.Fatalf("Expected 1 open store, got %d", got)
	}
	if s1.Closed() {
		t.Fatal("evicted store closed under an open session")
	}

	for _, f := range []table.Filter{{NodeID: table.Ptr[table.NodeID](1)}, {}} {
		rows, err := table.Compute(context.Background(), sess, table.TableDefinition{
			Filter:  f,
			Columns: []table.ColumnDefinition{{ID: 1, Filter: table.ColumnFilter{PredicateID: &p}}},
		})
		if err != nil {
			t.Fatalf("Compute on evicted store failed: %v", err)
		}
		if len(rows) != 1 || len(rows[0].Columns[0].Values) == 0 {
			t.Errorf("unexpected rows %+v", rows)
		}
	}

	sess.Close()
	if !s1.Closed() {
		t.Error("evicted store should close with its last session")
	}

	reopened, err := sm.GetStore(1)
	if err != nil {
		t.Fatalf("Failed to reopen store 1: %v", err)
	}
	defer reopened.Release()
	if reopened == s1 {
		t.Error("expected a fresh instance after close")
	}
	nodes, err := reopened.ListNodes()
	if err != nil || len(nodes) != 1 {
		t.Errorf("ListNodes after reopen = (%v, %v)", nodes, err)
	}
}

func TestStoreManager_RevivesDrainingStore(t *testing.T) {
	sm := NewStoreManager(t.TempDir(), MemoryProfileLow, false, 1)
	defer sm.CloseAll()

	s1, err := sm.CreateStore(1)
	if err != nil {
		t.Fatalf("Failed to create store 1: %v", err)
	}
	s2, err := sm.CreateStore(2)
	if err != nil {
		t.Fatalf("Failed to create store 2: %v", err)
	}
	s2.Release()

	again, err := sm.GetStore(1)
	if err != nil {
		t.Fatalf("Failed to get store 1: %v", err)
	}
	if again != s1 {
		t.Error("expected the draining instance to be revived")
	}
	s1.Release()
	again.Release()
	if s1.Closed() {
		t.Error("revived store must stay open while cached")
	}
	if got := sm.OpenCount(); got != 1 {
		t.Errorf("Expected 1 open store, got %d", got)
	}
}

func TestStoreManager_ListStoreIDs_Caching(t *testing.T) {
	tmpDir := t.TempDir()
	os.Mkdir(filepath.Join(tmpDir, "1"), 0755)
	os.Mkdir(filepath.Join(tmpDir, "not-a-workspace"), 0755)

	sm := NewStoreManager(tmpDir, MemoryProfileDefault, false, 0)

	ids, err := sm.ListStoreIDs()
	if err != nil {
		t.Fatalf("ListStoreIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("Expected [1], got %v", ids)
	}

	os.Mkdir(filepath.Join(tmpDir, "2"), 0755)

	ids, _ = sm.ListStoreIDs()
	if len(ids) != 1 {
		t.Errorf("Expected cached ids (1), got %d", len(ids))
	}

	sm.mu.Lock()
	sm.lastListBuild = time.Now().Add(-2 * time.Minute)
	sm.mu.Unlock()

	ids, _ = sm.ListStoreIDs()
	if len(ids) != 2 {
		t.Errorf("Expected refreshed ids (2), got %d", len(ids))
	}
}

func TestParseMemoryProfile(t *testing.T) {
	if p, err := ParseMemoryProfile(""); err != nil || p != MemoryProfileDefault {
		t.Errorf("empty profile = (%q, %v)", p, err)
	}
	if _, err := ParseMemoryProfile("huge"); err == nil {
		t.Error("expected error for unknown profile")
	}
}
