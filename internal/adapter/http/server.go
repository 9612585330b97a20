// Package http exposes the hazard service over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/adapter/photo"
	"github.com/couchcryptid/civix-hazard-service/internal/auth"
	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Dependencies are the collaborators the API handlers call into.
type Dependencies struct {
	Hazards *hazard.Service
	Tokens  *auth.Authority
	// Geocoder backs /api/search. Nil answers every search with SEARCH_FAILED.
	Geocoder domain.Geocoder
	Photos   photo.Store
	PhotoIDs func() string
	// UploadDir is served under /api/uploads when photos are stored locally.
	UploadDir      string
	MaxUploadBytes int64
	Ready          ReadinessChecker
	Metrics        *observability.Metrics
	CORSOrigins    []string
}

// Server is the public HTTP API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	logger     *slog.Logger
}

// NewServer builds the gin router and wraps it in an http.Server.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	s := &Server{deps: deps, logger: logger}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestLogger())

	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		writeError(c, domain.NewError(domain.KindNotFound, "Endpoint not found"))
	})

	r.GET("/", handleRoot)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	if s.deps.Ready != nil {
		r.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(s.deps.Ready)))
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/reports", s.listReports)
		api.GET("/reports/:id", s.getReport)
		api.POST("/users/register", s.register)
		api.POST("/routes", s.scoreRoutes)
		api.POST("/alerts/check", s.checkAlerts)
		api.POST("/upload", s.upload)
		api.GET("/uploads/:file", s.serveUpload)
		api.GET("/search", s.search)
		api.GET("/stats", s.stats)

		protected := api.Group("")
		protected.Use(s.requireAuth())
		{
			protected.POST("/reports", s.createReport)
			protected.DELETE("/reports/:id", s.deleteReport)
			protected.POST("/reports/:id/vote", s.voteReport)
			protected.POST("/reports/:id/verify", s.verifyReport)
			protected.GET("/users/me", s.profile)
			protected.PUT("/users/me", s.updateProfile)
		}
	}
	return r
}

func handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Civix API v1.0",
		"status":  "running",
		"endpoints": gin.H{
			"reports": "/api/reports",
			"users":   "/api/users",
			"routes":  "/api/routes",
			"alerts":  "/api/alerts/check",
			"upload":  "/api/upload",
			"search":  "/api/search",
			"stats":   "/api/stats",
		},
	})
}
