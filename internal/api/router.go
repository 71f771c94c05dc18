package api

import (
	"context"
	"errors"
	"time"

	"recipe-finder/internal/api/handlers/health"
	recipeHandler "recipe-finder/internal/api/handlers/recipe"
	"recipe-finder/internal/api/middleware"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/infrastructure/monitoring"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)
	defaultMaxBodySize = 1 << 20
)

// Dependencies 路由需要的服務；Favorites 與 Dedup 可為 nil
type Dependencies struct {
	Searcher  recipeHandler.Searcher
	Extractor recipeHandler.PageExtractor
	Favorites recipeHandler.FavoriteStore
	Metrics   *monitoring.Metrics
	Dedup     *middleware.Deduplicator
	Checks    map[string]health.Check
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Searcher == nil || deps.Extractor == nil {
		return nil, errors.New("searcher and extractor are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(deps.Metrics.GinMiddleware())

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBody))
	router.Use(requestTimeout(timeoutDuration))

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	healthHandler := health.NewHandler(cfg.App.Version, deps.Checks)
	healthGroup := router.Group("/api/v1/health")
	{
		healthGroup.GET("", healthHandler.HealthCheck)
		healthGroup.GET("/ready", healthHandler.ReadinessCheck)
		healthGroup.GET("/live", healthHandler.LivenessCheck)
	}

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if deps.Dedup != nil {
		api.Use(deps.Dedup.Middleware())
	}
	{
		h := recipeHandler.NewHandler(deps.Searcher, deps.Extractor)

		recipes := api.Group("/recipes")
		{
			recipes.POST("/search", h.HandleSearch)
			recipes.POST("/search/events", h.HandleSearchEvents)
			recipes.POST("/chat", h.HandleChat)
			recipes.POST("/extract", h.HandleExtract)
		}

		favorites := api.Group("/favorites", middleware.Auth(cfg.Auth))
		if deps.Favorites != nil {
			fh := recipeHandler.NewFavoritesHandler(deps.Favorites)
			favorites.GET("", fh.List)
			favorites.POST("", fh.Add)
			favorites.DELETE("", fh.Remove)
		} else {
			unavailable := func(c *gin.Context) {
				common.WriteErrorResponse(c, common.ErrServiceUnavailable)
			}
			favorites.GET("", unavailable)
			favorites.POST("", unavailable)
			favorites.DELETE("", unavailable)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("favorites", deps.Favorites != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBody),
	)

	return router, nil
}

// requestTimeout 為每個請求加上期限；串流已開始時只記錄不覆寫回應
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", common.RequestID(c)),
				zap.Duration("timeout", d),
			)
			if !c.Writer.Written() {
				common.WriteErrorResponse(c, common.ErrRequestTimeout)
			}
		}
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
