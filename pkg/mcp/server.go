package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/GoliasVictor/grpg/pkg/service"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the tables of one workspace to MCP clients.
type MCPServer struct {
	graphs *service.GraphService
	tables *service.TableService
	ws     int64
}

// New creates an MCPServer bound to workspace ws.
func New(graphs *service.GraphService, tables *service.TableService, ws int64) *MCPServer {
	return &MCPServer{graphs: graphs, tables: tables, ws: ws}
}

// Build registers the resources and tools on a fresh mcp-go server.
func (ms *MCPServer) Build() *server.MCPServer {
	s := server.NewMCPServer(
		"grpg",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s.AddResource(
		mcp.NewResource(
			"grpg://graph/stats",
			"Graph Stats",
			mcp.WithResourceDescription("Node, predicate and triple counts of the workspace graph"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleGraphStats,
	)

	s.AddTool(
		mcp.NewTool(
			"list_tables",
			mcp.WithDescription("List the saved tables of the workspace with freshly computed rows."),
		),
		ms.handleListTables,
	)

	s.AddTool(
		mcp.NewTool(
			"compute_table",
			mcp.WithDescription("Compute a table. Pass either the id of a saved table or a JSON table definition."),
			mcp.WithNumber("table_id", mcp.Description("Id of a saved table")),
			mcp.WithString("definition", mcp.Description(`Table definition as JSON, e.g. {"filter":{"predicate":1},"columns":[{"id":1,"filter":{"direction":"out","predicate_id":1}}]}`)),
		),
		ms.handleComputeTable,
	)

	s.AddTool(
		mcp.NewTool(
			"list_predicates",
			mcp.WithDescription("List the predicates (edge labels) of the workspace graph."),
		),
		ms.handleListPredicates,
	)

	return s
}

// Run serves the workspace on stdio until the client disconnects.
func Run(ctx context.Context, ms *MCPServer) error {
	slog.Info("Starting MCP server on Stdio", "workspace", ms.ws)
	return server.NewStdioServer(ms.Build()).Listen(ctx, os.Stdin, os.Stdout)
}

func (ms *MCPServer) handleGraphStats(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := ms.graphs.Stats(ctx, ms.ws)
	if err != nil {
		return nil, err
	}
	jsonBytes, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (ms *MCPServer) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := ms.tables.ListTables(ctx, ms.ws)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list tables failed: %v", err)), nil
	}
	return jsonResult(tables)
}

func (ms *MCPServer) handleComputeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if id, ok := args["table_id"].(float64); ok {
		t, err := ms.tables.GetTable(ctx, ms.ws, int64(id))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("compute failed: %v", err)), nil
		}
		return jsonResult(t.Rows)
	}

	raw, ok := args["definition"].(string)
	if !ok || raw == "" {
		return mcp.NewToolResultError("table_id or definition argument required"), nil
	}
	var def table.TableDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	rows, err := ms.tables.Compute(ctx, ms.ws, def)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compute failed: %v", err)), nil
	}
	return jsonResult(rows)
}

func (ms *MCPServer) handleListPredicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	preds, err := ms.graphs.ListPredicates(ctx, ms.ws)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list predicates failed: %v", err)), nil
	}
	return jsonResult(preds)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
