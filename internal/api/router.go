package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/socialshields/mhdash/internal/cache"
	"github.com/socialshields/mhdash/internal/db"
	"github.com/socialshields/mhdash/internal/stats"
	"github.com/socialshields/mhdash/pkg/config"
	"github.com/socialshields/mhdash/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db     *db.DB
	cache  *cache.Cache
	stats  *stats.Service
	cfg    *config.Config
	logger *zap.Logger

	posts  *db.PostRepository
	labels *db.LabelRepository
	users  *db.UserRepository
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, statsService *stats.Service, cfg *config.Config) *Router {
	repo := db.NewRepository(database.DB)
	return &Router{
		db:     database,
		cache:  redisCache,
		stats:  statsService,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
		posts:  db.NewPostRepository(repo),
		labels: db.NewLabelRepository(repo),
		users:  db.NewUserRepository(repo),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	api := engine.Group("/api")

	// Dashboard aggregates
	api.GET("/stats", r.getStats)

	// Labeling workflow
	api.GET("/unlabelled_posts", r.getUnlabelledPosts)
	api.GET("/random_posts", r.getRandomPosts)

	// Dataset export (large payloads, worth compressing)
	api.GET("/dataset", gzip.Gzip(gzip.DefaultCompression), r.getDataset)
	api.GET("/participants", r.getParticipants)

	// Write endpoints share one token bucket
	writes := api.Group("")
	writes.Use(RateLimit(r.cfg.Server.WriteRPS, r.cfg.Server.WriteBurst))
	writes.POST("/submit_labels", r.submitLabels)
	writes.POST("/login", r.login)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "FAIL",
			"service": "mhdash-api",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "mhdash-api",
	})
}
