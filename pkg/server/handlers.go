package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/GoliasVictor/grpg/pkg/common/errors"
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/gin-gonic/gin"
)

type nameRequest struct {
	Name string `json:"name"`
}

type workspaceRequest struct {
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

type labelRequest struct {
	Label string `json:"label"`
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}

func badRequest(c *gin.Context, msg string) {
	handleError(c, errors.NewAppError(http.StatusBadRequest, msg, nil))
}

// int64Param parses a positive id path parameter.
func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return v, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// Users and workspaces

func (s *Server) handleCreateUser(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.accounts.AddUser(c.Request.Context(), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.accounts.ListUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	u, err := s.accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleCreateWorkspace(c *gin.Context) {
	var req workspaceRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := s.accounts.AddWorkspace(c.Request.Context(), req.UserID, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (s *Server) handleListWorkspaces(c *gin.Context) {
	var userID int64
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "Invalid user_id")
			return
		}
		userID = id
	}
	ws, err := s.accounts.ListWorkspaces(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) handleGetWorkspace(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	w, err := s.accounts.GetWorkspace(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) handleStats(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	st, err := s.graphs.Stats(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Nodes

func (s *Server) handleListNodes(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	nodes, err := s.graphs.ListNodes(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (s *Server) handleCreateNode(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	// The label may come as ?label= or in the body.
	req := labelRequest{Label: c.Query("label")}
	if req.Label == "" && !bindJSON(c, &req) {
		return
	}
	n, err := s.graphs.CreateNode(c.Request.Context(), ws, req.Label)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) handleSearchNodes(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		badRequest(c, "Missing query parameter 'q'")
		return
	}
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "Invalid limit")
			return
		}
		limit = n
	}
	matches, err := s.graphs.SearchNodes(c.Request.Context(), ws, query, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) handleGetNode(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	n, err := s.graphs.GetNode(c.Request.Context(), ws, table.NodeID(id))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) handleUpdateNode(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req labelRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := s.graphs.UpdateNode(c.Request.Context(), ws, table.NodeID(id), req.Label)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) handleDeleteNode(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := s.graphs.DeleteNode(c.Request.Context(), ws, table.NodeID(id)); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Predicates

func (s *Server) handleListPredicates(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	preds, err := s.graphs.ListPredicates(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preds)
}

func (s *Server) handleCreatePredicate(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	req := labelRequest{Label: c.Query("label")}
	if req.Label == "" && !bindJSON(c, &req) {
		return
	}
	p, err := s.graphs.CreatePredicate(c.Request.Context(), ws, req.Label)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Triples

func (s *Server) handleListTriples(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	triples, err := s.graphs.ListTriples(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, triples)
}

func (s *Server) handleCreateTriple(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	var t table.Triple
	if !bindJSON(c, &t) {
		return
	}
	if err := s.graphs.CreateTriple(c.Request.Context(), ws, t); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleDeleteTriple(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	var t table.Triple
	if !bindJSON(c, &t) {
		return
	}
	if err := s.graphs.DeleteTriple(c.Request.Context(), ws, t); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Tables

func (s *Server) handleComputeTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	var def table.TableDefinition
	if !bindJSON(c, &def) {
		return
	}
	rows, err := s.tables.Compute(c.Request.Context(), ws, def)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type fullTableRequest struct {
	NodesID []table.NodeID           `json:"nodes_id"`
	Columns []table.ColumnDefinition `json:"columns"`
}

func (s *Server) handleFullTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	var req fullTableRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := s.tables.ComputeForNodes(c.Request.Context(), ws, req.NodesID, req.Columns)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleListTables(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	tables, err := s.tables.ListTables(c.Request.Context(), ws)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (s *Server) handleCreateTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	var def table.TableDefinition
	if !bindJSON(c, &def) {
		return
	}
	t, err := s.tables.CreateTable(c.Request.Context(), ws, def)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	t, err := s.tables.GetTable(c.Request.Context(), ws, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handlePutTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var def table.TableDefinition
	if !bindJSON(c, &def) {
		return
	}
	t, err := s.tables.PutTable(c.Request.Context(), ws, id, def)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTable(c *gin.Context) {
	ws, ok := int64Param(c, "ws")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := s.tables.DeleteTable(c.Request.Context(), ws, id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
