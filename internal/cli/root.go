package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GoliasVictor/grpg/internal/config"
	"github.com/GoliasVictor/grpg/internal/manager"
	"github.com/GoliasVictor/grpg/internal/workspace"
	"github.com/GoliasVictor/grpg/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the grpg command tree.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "grpg",
		Short:         "Graph-to-table projection server",
		Long:          "grpg stores labelled graphs per workspace and projects them into tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (env vars override it)")

	rootCmd.AddCommand(newServeCmd(&cfgPath))
	rootCmd.AddCommand(newInitCmd(&cfgPath))
	rootCmd.AddCommand(newComputeCmd(&cfgPath))
	rootCmd.AddCommand(newImportCmd(&cfgPath))
	rootCmd.AddCommand(newMCPCmd(&cfgPath))
	return rootCmd
}

// app is the wired backend shared by every command.
type app struct {
	cfg      *config.Config
	meta     *workspace.Store
	stores   *manager.StoreManager
	accounts *service.AccountService
	graphs   *service.GraphService
	tables   *service.TableService
}

func openApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger())
	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	profile, err := manager.ParseMemoryProfile(cfg.MemoryProfile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.MetaDBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create meta db dir: %w", err)
	}

	meta, err := workspace.Open(cfg.MetaDBPath)
	if err != nil {
		return nil, err
	}
	stores := manager.NewStoreManager(cfg.DataDir, profile, cfg.ReadOnly, cfg.MaxOpenStores)

	slog.Info("backend ready",
		"data_dir", cfg.DataDir,
		"meta_db", cfg.MetaDBPath,
		"memory_profile", profile,
		"read_only", cfg.ReadOnly,
	)
	return &app{
		cfg:      cfg,
		meta:     meta,
		stores:   stores,
		accounts: service.NewAccountService(stores, meta),
		graphs:   service.NewGraphService(stores, meta),
		tables:   service.NewTableService(stores, meta),
	}, nil
}

func (a *app) Close() {
	a.stores.CloseAll()
	if err := a.meta.Close(); err != nil {
		slog.Warn("failed to close meta store", "error", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
