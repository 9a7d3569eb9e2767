// Package api exposes the engine over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/coop-records-api/internal/auth"
	"github.com/coop-records-api/internal/config"
	"github.com/coop-records-api/internal/database"
	"github.com/coop-records-api/internal/ingest"
	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/query"
	"github.com/coop-records-api/internal/repository"
	"github.com/coop-records-api/internal/schema"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps bundles everything the handlers need.
type Deps struct {
	Resolver   *auth.Resolver
	Tokens     *auth.TokenManager
	Builder    *query.Builder
	Feed       query.ChangeFeed
	Imports    *ingest.Service
	Records    repository.RecordRepository
	Reconciler *schema.Reconciler
	DB         *database.DB
}

// NewRouter creates and configures the Gin router
func NewRouter(deps *Deps, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	authHandler := NewAuthHandler(deps.Resolver, deps.Tokens, log)
	recordsHandler := NewRecordsHandler(deps, log)
	importHandler := NewImportHandler(deps.Imports, cfg, log)

	// Health check
	router.GET("/health", healthCheck(deps.DB))
	router.GET("/metrics", metricsHandler(deps.Records))

	// API v1
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		authed := v1.Group("", sessionMiddleware(deps.Tokens))
		{
			authed.POST("/auth/logout", authHandler.Logout)

			records := authed.Group("/records")
			{
				records.GET("", recordsHandler.GetRecords)
				records.GET("/watch", recordsHandler.Watch)
			}
			authed.GET("/export", recordsHandler.Export)

			imports := authed.Group("/imports")
			{
				imports.POST("", importHandler.CreateImport)
				imports.GET("/:job_id", importHandler.GetImportStatus)
			}
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "coop-records-api",
		})
	}
}

// metricsHandler returns per-domain row counts
func metricsHandler(records repository.RecordRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		counts := gin.H{}
		for _, d := range models.Domains() {
			n, _ := records.Count(ctx, d)
			counts[string(d)] = n
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

const sessionKey = "session"

// sessionMiddleware verifies the bearer token and stores the session on
// the request context.
func sessionMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		sess, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// currentSession reads the session placed by sessionMiddleware.
func currentSession(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*models.Session)
	return sess
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
