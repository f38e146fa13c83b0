package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/GoliasVictor/grpg/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires a Server.
type Options struct {
	Accounts *service.AccountService
	Graphs   *service.GraphService
	Tables   *service.TableService

	// Meta is probed by /health.
	Meta Pinger
	// OpenStores reports the number of open graph stores on /health.
	OpenStores func() int
	// ProvisionedStores lists the workspaces with a graph on disk.
	ProvisionedStores func() ([]int64, error)

	RateLimit   RateLimitConfig
	CORSOrigins []string
}

// Server holds the state for the REST API server.
type Server struct {
	accounts    *service.AccountService
	graphs      *service.GraphService
	tables      *service.TableService
	meta        Pinger
	openStores  func() int
	provisioned func() ([]int64, error)
	router      *gin.Engine
	httpServer  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(opts Options) *Server {
	r := gin.New()
	r.Use(requestIDMiddleware(), loggingMiddleware(), recoveryMiddleware(), corsMiddleware(opts.CORSOrigins))
	if opts.RateLimit.RequestsPerSecond > 0 {
		r.Use(newRateLimiter(opts.RateLimit).middleware())
	}

	s := &Server{
		accounts:    opts.Accounts,
		graphs:      opts.Graphs,
		tables:      opts.Tables,
		meta:        opts.Meta,
		openStores:  opts.OpenStores,
		provisioned: opts.ProvisionedStores,
		router:      r,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.POST("/users", s.handleCreateUser)
	v1.GET("/users", s.handleListUsers)
	v1.GET("/users/:id", s.handleGetUser)

	v1.POST("/workspaces", s.handleCreateWorkspace)
	v1.GET("/workspaces", s.handleListWorkspaces)
	v1.GET("/workspaces/:ws", s.handleGetWorkspace)

	ws := v1.Group("/workspaces/:ws")
	ws.GET("/stats", s.handleStats)

	ws.GET("/nodes", s.handleListNodes)
	ws.POST("/nodes", s.handleCreateNode)
	ws.GET("/nodes/search", s.handleSearchNodes)
	ws.GET("/nodes/:id", s.handleGetNode)
	ws.PUT("/nodes/:id", s.handleUpdateNode)
	ws.DELETE("/nodes/:id", s.handleDeleteNode)

	ws.GET("/predicates", s.handleListPredicates)
	ws.POST("/predicates", s.handleCreatePredicate)

	ws.GET("/triples", s.handleListTriples)
	ws.POST("/triples", s.handleCreateTriple)
	ws.DELETE("/triples", s.handleDeleteTriple)

	ws.POST("/table", s.handleComputeTable)
	ws.POST("/full-table", s.handleFullTable)
	ws.GET("/tables", s.handleListTables)
	ws.POST("/tables", s.handleCreateTable)
	ws.GET("/tables/:id", s.handleGetTable)
	ws.PUT("/tables/:id", s.handlePutTable)
	ws.DELETE("/tables/:id", s.handleDeleteTable)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.openStores != nil {
		body["open_stores"] = s.openStores()
	}
	if s.provisioned != nil {
		if ids, err := s.provisioned(); err != nil {
			slog.Warn("failed to list graph stores", "error", err)
		} else {
			body["provisioned_stores"] = len(ids)
		}
	}
	if s.meta != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.meta.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
