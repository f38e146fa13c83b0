package store

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig(t.TempDir()).Validate())
	assert.NoError(t, InMemoryConfig().Validate())

	noDir := DefaultConfig("")
	assert.Error(t, noDir.Validate())

	badCache := DefaultConfig(t.TempDir())
	badCache.BlockCacheSize = 0
	assert.Error(t, badCache.Validate())

	badProfile := DefaultConfig(t.TempDir())
	badProfile.Profile = "Turbo"
	assert.Error(t, badProfile.Validate())
}

func TestBuildBadgerOptions_Profiles(t *testing.T) {
	low := buildBadgerOptions(LowMemConfig("/tmp/x"))
	assert.Equal(t, int64(32<<20), low.ValueLogFileSize)
	assert.Equal(t, int64(8<<20), low.MemTableSize)
	assert.Equal(t, options.ZSTD, low.Compression)
	assert.False(t, low.DetectConflicts)

	mem := buildBadgerOptions(InMemoryConfig())
	assert.True(t, mem.InMemory)
	assert.Equal(t, options.None, mem.Compression)
}

func TestOpenBadgerDB_InMemory(t *testing.T) {
	db, err := OpenBadgerDB(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	a := &slogAdapter{l: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	a.Infof("Level 0 [ ]: NumTables: %02d", 0)
	a.Debugf("noise")
	assert.Empty(t, buf.String(), "badger info output stays below the info level")

	a.Warningf("value log %s", "full")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "component=badger")
}
