// Package httpapi exposes RootSearcher over a Gin REST API, adapted
// from the teacher's coordination.go setupRoutes/handle* pattern:
// a *gin.Engine built with Recovery + a zap request logger + the
// shared HTTP metrics middleware, routes registered under /api/v1,
// and Prometheus/health endpoints at the conventional paths.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	commonmetrics "github.com/quidditch/quidditch/pkg/common/metrics"
	"github.com/quidditch/quidditch/pkg/search"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

var reqValidator = validator.New()

// Server wires a RootSearcher to a Gin HTTP server.
type Server struct {
	logger    *zap.Logger
	metrics   *commonmetrics.MetricsCollector
	searcher  *search.RootSearcher
	ginEngine *gin.Engine
	httpSrv   *http.Server
}

// NewServer builds a Server listening on addr. Routes are registered
// immediately; Start begins serving.
func NewServer(addr string, searcher *search.RootSearcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(ginLogger(logger))

	metricsCollector := commonmetrics.NewMetricsCollector("root")
	engine.Use(commonmetrics.HTTPMetricsMiddleware(metricsCollector))

	s := &Server{
		logger:    logger,
		metrics:   metricsCollector,
		searcher:  searcher,
		ginEngine: engine,
		httpSrv:   &http.Server{Addr: addr, Handler: engine},
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers the root's REST surface.
func (s *Server) setupRoutes() {
	api := s.ginEngine.Group("/api/v1/indexes")
	api.POST("/:index_id/search", s.handleSearch)
	api.POST("/:index_id/terms", s.handleListTerms)

	s.ginEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.ginEngine.GET("/healthz", s.handleHealthz)
}

// Start begins serving HTTP requests; it blocks until the server
// stops, returning http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info("root HTTP server listening", zap.String("addr", s.httpSrv.Addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleSearch(c *gin.Context) {
	indexID := c.Param("index_id")

	var req search.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IndexID = indexID
	if err := reqValidator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.searcher.RootSearch(c.Request.Context(), req)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTerms(c *gin.Context) {
	indexID := c.Param("index_id")

	var req search.ListTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IndexID = indexID
	if err := reqValidator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.searcher.RootListTerms(c.Request.Context(), req)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// writeSearchError maps a search.Error's Kind onto an HTTP status,
// matching the error handling design: client-caused errors (bad
// bounds, bad query, bad aggregation) are 400s, placement failures
// and internal errors are 500s.
func writeSearchError(c *gin.Context, err error) {
	var serr *search.Error
	status := http.StatusInternalServerError
	if errors.As(err, &serr) {
		switch serr.Kind {
		case search.KindInvalidArgument, search.KindInvalidQuery, search.KindInvalidAggregationRequest:
			status = http.StatusBadRequest
		case search.KindPlacementFailure, search.KindInternal:
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requestIDMiddleware stamps every request with a UUID used to
// correlate root logs with the fan-out of leaf RPCs it triggers,
// generalized from the teacher's UUID-per-shard identity assignment
// (pkg/master/master.go) to UUID-per-request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// ginLogger mirrors the teacher's zap-backed Gin request logger.
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
