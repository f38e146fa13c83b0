package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoliasVictor/grpg/pkg/ingest"
	"github.com/GoliasVictor/grpg/pkg/mcp"
	"github.com/GoliasVictor/grpg/pkg/server"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/spf13/cobra"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewServer(server.Options{
				Accounts:          a.accounts,
				Graphs:            a.graphs,
				Tables:            a.tables,
				Meta:              a.meta,
				OpenStores:        a.stores.OpenCount,
				ProvisionedStores: a.stores.ListStoreIDs,
				RateLimit: server.RateLimitConfig{
					RequestsPerSecond: a.cfg.RateLimitRPS,
					Burst:             a.cfg.RateLimitBurst,
				},
				CORSOrigins: a.cfg.CORSAllowedOrigins,
			})

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cmd.PrintErrf("Starting REST API server on %s\n", a.cfg.ListenAddr)
			if err := srv.Run(ctx, a.cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func newComputeCmd(cfgPath *string) *cobra.Command {
	var (
		ws      int64
		file    string
		tableID int64
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a table and print its rows as JSON",
		Long:  "Compute either a saved table (--table) or a YAML/JSON definition file (--file) against a workspace graph.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (file == "") == (tableID == 0) {
				return errors.New("exactly one of --file or --table is required")
			}
			a, err := openApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var rows []table.RowResponse
			if tableID != 0 {
				t, err := a.tables.GetTable(cmd.Context(), ws, tableID)
				if err != nil {
					return err
				}
				rows = t.Rows
			} else {
				def, err := ingest.LoadDefinitionFile(file)
				if err != nil {
					return err
				}
				if rows, err = a.tables.Compute(cmd.Context(), ws, def); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Int64VarP(&ws, "workspace", "w", 0, "workspace id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "table definition file (YAML or JSON)")
	cmd.Flags().Int64Var(&tableID, "table", 0, "id of a saved table")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newInitCmd(cfgPath *string) *cobra.Command {
	var userName, wsName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a user with a first workspace and print the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.accounts.AddUser(cmd.Context(), userName)
			if err != nil {
				return err
			}
			w, err := a.accounts.AddWorkspace(cmd.Context(), u.ID, wsName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "user name")
	cmd.Flags().StringVar(&wsName, "workspace", "", "workspace name")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newImportCmd(cfgPath *string) *cobra.Command {
	var (
		ws   int64
		file string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import nodes, predicates, triples and tables from a YAML graph file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.accounts.GetWorkspace(cmd.Context(), ws); err != nil {
				return err
			}
			sum, err := ingest.RunFile(cmd.Context(), a.graphs, a.tables, ws, file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().Int64VarP(&ws, "workspace", "w", 0, "workspace id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "graph file (YAML)")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMCPCmd(cfgPath *string) *cobra.Command {
	var ws int64
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tables of one workspace over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.accounts.GetWorkspace(cmd.Context(), ws); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return mcp.Run(ctx, mcp.New(a.graphs, a.tables, ws))
		},
	}
	cmd.Flags().Int64VarP(&ws, "workspace", "w", 0, "workspace id")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}
