// Package server exposes the analysis engine over HTTP: upload intake
// (inline files, zip archive, remote-repository pair, tabular-sheet
// roster), the cached-analysis read endpoints, and an advanced per-pair
// breakdown endpoint. It is a thin gin router that delegates everything
// to internal/orchestrate; no structural logic lives here.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/standardbeagle/plagscan/internal/cache"
	"github.com/standardbeagle/plagscan/internal/config"
	"github.com/standardbeagle/plagscan/internal/judge"
	"github.com/standardbeagle/plagscan/internal/parser"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	cfg      *config.Config
	registry *parser.Registry
	store    *cache.Store
	judge    judge.Client
}

// New builds a Server. judgeClient may be nil (no external semantic judge
// configured; Evaluate falls back to a structural-score-derived verdict).
func New(cfg *config.Config, registry *parser.Registry, store *cache.Store, judgeClient judge.Client) *Server {
	return &Server{cfg: cfg, registry: registry, store: store, judge: judgeClient}
}

// Router builds the gin.Engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)
	if s.cfg.Server.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/analyze", s.handleAnalyzeUpload)
		v1.POST("/analyze/archive", s.handleAnalyzeArchive)
		v1.POST("/analyze/remote", s.handleAnalyzeRemote)
		v1.POST("/analyze/sheet", s.handleAnalyzeSheet)

		analyses := v1.Group("/analyses/:id")
		{
			analyses.GET("", s.handleGetAnalysis)
			analyses.GET("/graph", s.handleGetGraph)
			analyses.GET("/matrix", s.handleGetMatrix)
			analyses.GET("/clusters", s.handleGetClusters)
			analyses.GET("/ast/*path", s.handleGetAST)
			analyses.POST("/compare", s.handleAdvancedCompare)
		}
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		gin.DefaultWriter.Write([]byte(
			c.Request.Method + " " + c.Request.URL.Path + " " +
				http.StatusText(c.Writer.Status()) + " " + time.Since(start).String() + "\n"))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_analyses": s.store.Len()})
}
