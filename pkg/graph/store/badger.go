package store

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Resource profiles understood by buildBadgerOptions.
const (
	ProfileDefault = "Default"
	ProfileLowMem  = "Low-Mem"
)

// Config holds the configuration for one workspace's BadgerDB.
type Config struct {
	// DataDir is the directory where BadgerDB will store its data.
	DataDir string

	// InMemory enables in-memory mode (useful for testing).
	InMemory bool

	// BlockCacheSize is the size of the block cache in bytes.
	BlockCacheSize int64

	// IndexCacheSize is the size of the index cache in bytes.
	IndexCacheSize int64

	// Compression enables ZSTD compression.
	Compression bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// MemTableSize is the size of the memtable in bytes. 0 keeps Badger's default.
	MemTableSize int64

	// NumMemtables is the maximum number of memtables waiting to be flushed.
	NumMemtables int

	// Profile selects value log sizing and compaction ("Default", "Low-Mem").
	Profile string

	// ReadOnly enables read-only mode.
	ReadOnly bool

	// BypassLockGuard allows bypassing the directory lock guard.
	BypassLockGuard bool

	// Logger receives Badger's internal logs. nil silences them.
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return fmt.Errorf("DataDir must be specified when InMemory is false")
	}
	if c.BlockCacheSize <= 0 {
		return fmt.Errorf("BlockCacheSize must be positive, got %d", c.BlockCacheSize)
	}
	if c.IndexCacheSize <= 0 {
		return fmt.Errorf("IndexCacheSize must be positive, got %d", c.IndexCacheSize)
	}
	if c.InMemory && c.ReadOnly {
		return fmt.Errorf("an in-memory store cannot be read-only")
	}
	switch c.Profile {
	case "", ProfileDefault, ProfileLowMem:
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	return nil
}

// DefaultConfig returns a configuration sized for a single serving workspace.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:        dataDir,
		BlockCacheSize: 256 << 20,
		IndexCacheSize: 64 << 20,
		Compression:    true,
		Profile:        ProfileDefault,
	}
}

// LowMemConfig returns a configuration for many small workspaces.
func LowMemConfig(dataDir string) *Config {
	cfg := DefaultConfig(dataDir)
	cfg.BlockCacheSize = 16 << 20
	cfg.IndexCacheSize = 8 << 20
	cfg.MemTableSize = 8 << 20
	cfg.NumMemtables = 2
	cfg.Profile = ProfileLowMem
	return cfg
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() *Config {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	cfg.Compression = false
	return cfg
}

// buildBadgerOptions converts Config to badger.Options based on Profile.
func buildBadgerOptions(cfg *Config) badger.Options {
	opts := badger.DefaultOptions(filepath.Join(cfg.DataDir, "badger"))
	if cfg.InMemory {
		opts = badger.DefaultOptions("")
		opts.InMemory = true
	}

	if cfg.Logger != nil {
		opts.Logger = &slogAdapter{l: cfg.Logger}
	} else {
		opts.Logger = nil
	}

	// Writers are serialized by the graph store, conflict tracking is wasted work.
	opts.DetectConflicts = false
	opts.BypassLockGuard = cfg.BypassLockGuard
	opts.ReadOnly = cfg.ReadOnly
	opts.BloomFalsePositive = 0.01

	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}

	switch cfg.Profile {
	case ProfileLowMem:
		opts.ValueLogFileSize = 32 << 20
		opts.NumCompactors = 2
	default:
		opts.ValueLogFileSize = 256 << 20
		opts.NumCompactors = 2
	}

	opts.BlockCacheSize = cfg.BlockCacheSize
	opts.IndexCacheSize = cfg.IndexCacheSize
	opts.SyncWrites = cfg.SyncWrites

	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	return opts
}

// OpenBadgerDB opens a BadgerDB instance with the given configuration.
func OpenBadgerDB(cfg *Config) (*badger.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return badger.Open(buildBadgerOptions(cfg))
}

// slogAdapter routes Badger's printf-style logger into slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...interface{}) {
	a.l.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (a *slogAdapter) Warningf(format string, args ...interface{}) {
	a.l.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

// Infof is demoted to debug: badger prints multi-line level summaries at
// info on every open and close.
func (a *slogAdapter) Infof(format string, args ...interface{}) {
	a.l.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (a *slogAdapter) Debugf(format string, args ...interface{}) {
	a.l.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
