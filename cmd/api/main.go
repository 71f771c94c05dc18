package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-finder/internal/api"
	"recipe-finder/internal/api/handlers/health"
	"recipe-finder/internal/api/middleware"
	"recipe-finder/internal/core/ai/cache"
	"recipe-finder/internal/core/ai/openrouter"
	"recipe-finder/internal/core/ai/service"
	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/image"
	"recipe-finder/internal/core/search"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/infrastructure/monitoring"
	"recipe-finder/internal/infrastructure/persistence"
	"recipe-finder/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("database_driver", cfg.Database.Driver),
	)

	metrics := monitoring.NewMetrics()
	checks := map[string]health.Check{}

	// 初始化快取
	store, err := cache.NewStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
		if rs, ok := store.(*cache.RedisStore); ok {
			checks["cache"] = rs.Ping
		}
	}

	// AI 服務
	provider := openrouter.NewClient(cfg.OpenRouter)
	aiService := service.NewService(provider, store, metrics)
	defer aiService.Close()

	// 擷取與搜尋流程
	extractor := extract.NewExtractor(cfg.Extract, store, metrics)
	images := image.NewService(cfg.Search.FetchTimeout, cfg.Extract.UserAgent)
	searcher := search.NewService(aiService, extractor, images, cfg.Search, metrics)

	deps := api.Dependencies{
		Searcher:  searcher,
		Extractor: extractor,
		Metrics:   metrics,
		Checks:    checks,
	}

	// 收藏資料庫失敗時仍可提供搜尋，收藏端點回傳 503
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		common.LogError("Failed to open database, favorites disabled", zap.Error(err))
	} else {
		defer persistence.Close(db)
		deps.Favorites = persistence.NewFavoriteRepository(db)
		checks["database"] = func(ctx context.Context) error {
			return persistence.Ping(ctx, db)
		}
	}

	if cfg.DedupWindow > 0 {
		deps.Dedup = middleware.NewDeduplicator(cfg.DedupWindow)
		defer deps.Dedup.Close()
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, deps)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 串流中的搜尋需要時間收尾
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
