package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/GoliasVictor/grpg/pkg/graph"
	"github.com/GoliasVictor/grpg/pkg/graph/store"
	"github.com/GoliasVictor/grpg/pkg/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryProfile defines the memory optimization strategy
type MemoryProfile string

const (
	MemoryProfileDefault MemoryProfile = "default"
	MemoryProfileLow     MemoryProfile = "low"
	DefaultMaxOpenStores               = 10
	StoreListTTL                       = 1 * time.Minute
)

// ErrStoreNotFound is returned when a workspace has no graph on disk.
var ErrStoreNotFound = errors.New("graph store not found")

// ParseMemoryProfile maps a config string to a profile.
func ParseMemoryProfile(s string) (MemoryProfile, error) {
	switch MemoryProfile(s) {
	case "", MemoryProfileDefault:
		return MemoryProfileDefault, nil
	case MemoryProfileLow:
		return MemoryProfileLow, nil
	}
	return "", fmt.Errorf("unknown memory profile %q", s)
}

// StoreManager keeps a bounded set of workspace graph stores open.
// Stores live in <baseDir>/<workspace id>; the least recently used store is
// closed when the limit is reached. An evicted store that is still leased
// stays in draining until its last lease is released, and is revived if the
// workspace is asked for again before that.
type StoreManager struct {
	baseDir  string
	stores   *lru.Cache[int64, *graph.Store]
	draining map[int64]*graph.Store
	mu       sync.RWMutex
	profile  MemoryProfile
	readOnly bool

	cachedIDs     []int64
	lastListBuild time.Time
}

// NewStoreManager creates a new StoreManager. maxOpen <= 0 uses
// DefaultMaxOpenStores.
func NewStoreManager(baseDir string, profile MemoryProfile, readOnly bool, maxOpen int) *StoreManager {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenStores
	}
	sm := &StoreManager{
		baseDir:  baseDir,
		draining: make(map[int64]*graph.Store),
		profile:  profile,
		readOnly: readOnly,
	}
	// Evictions happen under sm.mu: from Add in openLocked and leaseLocked,
	// and from Purge in CloseAll.
	sm.stores, _ = lru.NewWithEvict[int64, *graph.Store](maxOpen, func(id int64, s *graph.Store) {
		metrics.OpenStores.Dec()
		if err := s.Close(); err != nil {
			slog.Warn("failed to close evicted store", "workspace", id, "error", err)
		}
		if !s.Closed() {
			sm.draining[id] = s
		}
	})
	return sm
}

func (sm *StoreManager) storeDir(id int64) string {
	return filepath.Join(sm.baseDir, strconv.FormatInt(id, 10))
}

// GetStore returns the graph of a workspace, opening it if necessary.
// The store is leased to the caller, who must call Release when done.
func (sm *StoreManager) GetStore(id int64) (*graph.Store, error) {
	if s, ok := sm.stores.Get(id); ok && s.Acquire() {
		return s, nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Double-check under lock
	if s, ok := sm.leaseLocked(id); ok {
		return s, nil
	}

	dir := sm.storeDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: workspace %d", ErrStoreNotFound, id)
	}
	return sm.openLocked(id, dir)
}

// CreateStore provisions the directory of a workspace graph and opens it.
// It is a no-op for a workspace whose store already exists. Like GetStore,
// the returned store is leased.
func (sm *StoreManager) CreateStore(id int64) (*graph.Store, error) {
	if sm.readOnly {
		return nil, graph.ErrReadOnly
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.leaseLocked(id); ok {
		return s, nil
	}
	dir := sm.storeDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir for workspace %d: %w", id, err)
	}
	sm.lastListBuild = time.Time{}
	return sm.openLocked(id, dir)
}

func (sm *StoreManager) openLocked(id int64, dir string) (*graph.Store, error) {
	var cfg *store.Config
	if sm.profile == MemoryProfileLow {
		cfg = store.LowMemConfig(dir)
	} else {
		cfg = store.DefaultConfig(dir)
	}
	cfg.ReadOnly = sm.readOnly
	cfg.Logger = slog.Default().With("workspace", id)

	s, err := graph.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for workspace %d: %w", id, err)
	}
	s.Acquire()
	sm.stores.Add(id, s)
	metrics.OpenStores.Inc()
	return s, nil
}

// leaseLocked leases the open store of a workspace, reviving it from
// draining if it was evicted but not yet closed.
func (sm *StoreManager) leaseLocked(id int64) (*graph.Store, bool) {
	if s, ok := sm.stores.Get(id); ok {
		if s.Acquire() {
			return s, true
		}
		sm.stores.Remove(id)
	}
	s, ok := sm.draining[id]
	if !ok {
		return nil, false
	}
	delete(sm.draining, id)
	if !s.Reopen() || !s.Acquire() {
		return nil, false
	}
	slog.Debug("revived draining store", "workspace", id)
	sm.stores.Add(id, s)
	metrics.OpenStores.Inc()
	return s, true
}

// ListStoreIDs returns the workspaces that have a graph on disk, ascending.
// The listing is cached for StoreListTTL.
func (sm *StoreManager) ListStoreIDs() ([]int64, error) {
	sm.mu.RLock()
	if time.Since(sm.lastListBuild) < StoreListTTL && sm.cachedIDs != nil {
		ids := slices.Clone(sm.cachedIDs)
		sm.mu.RUnlock()
		return ids, nil
	}
	sm.mu.RUnlock()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if time.Since(sm.lastListBuild) < StoreListTTL && sm.cachedIDs != nil {
		return slices.Clone(sm.cachedIDs), nil
	}

	entries, err := os.ReadDir(sm.baseDir)
	if os.IsNotExist(err) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := []int64{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	sm.cachedIDs = ids
	sm.lastListBuild = time.Now()
	return slices.Clone(ids), nil
}

// OpenCount returns how many stores are currently open.
func (sm *StoreManager) OpenCount() int {
	return sm.stores.Len()
}

// CloseAll closes all open stores. Leased stores close on their last
// Release.
func (sm *StoreManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stores.Purge()
}
