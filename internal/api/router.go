package api

import (
	"context"
	"net/http"
	"time"

	convertHandler "recipe-importer/internal/api/handlers/convert"
	healthHandler "recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/cache"
	"recipe-importer/internal/core/catalog"
	"recipe-importer/internal/core/extract"
	"recipe-importer/internal/core/persist"
	"recipe-importer/internal/core/workflow"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)，逐字稿以外沒有大請求
	maxBodySize = 1 << 20
	// 目錄載入的獨立超時
	catalogLoadTimeout = 30 * time.Second
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, cacheStore cache.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制與重複請求抑制
	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Deduplication(cfg))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("extractor_base_url", cfg.Extractor.BaseURL),
		zap.String("catalog_base_url", cfg.Catalog.BaseURL),
		zap.Duration("timeout", timeoutDuration),
	)

	// 初始化目錄快照，啟動時非同步載入，失敗降級為空目錄
	catalogClient := catalog.NewClient(cfg)
	unitIndex := catalog.NewUnitIndex()
	ingredientIndex := catalog.NewIngredientIndex()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), catalogLoadTimeout)
		defer cancel()
		unitIndex.Refresh(ctx, catalogClient)
		ingredientIndex.Refresh(ctx, catalogClient)
	}()

	// 初始化外部服務客戶端與轉換註冊表
	extractClient := extract.NewClient(cfg, cacheStore)
	persistClient := persist.NewClient(cfg)
	manager := workflow.NewManager()

	// 全局中間件：設置超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	healthInstance := healthHandler.NewHandler(cfg, manager, unitIndex, ingredientIndex, cacheStore)
	router.GET("/health", healthInstance.HealthCheck)
	router.GET("/ready", healthInstance.ReadinessCheck)
	router.GET("/live", healthInstance.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		convertInstance := convertHandler.NewHandler(cfg, manager, extractClient, persistClient, unitIndex, ingredientIndex, catalogClient)

		// 轉換流程路由
		conversions := api.Group("/conversions")
		{
			conversions.POST("", convertInstance.HandleCreate)
			conversions.GET("/:id", convertInstance.HandleGet)
			conversions.POST("/:id/manual", convertInstance.HandleManual)
			conversions.POST("/:id/reset", convertInstance.HandleReset)
			conversions.POST("/:id/save", convertInstance.HandleSave)

			// 校對階段：食材列操作
			conversions.POST("/:id/ingredients/:index/select", convertInstance.HandleSelect)
			conversions.POST("/:id/ingredients/:index/clear", convertInstance.HandleClear)
			conversions.PATCH("/:id/ingredients/:index", convertInstance.HandlePatchField)
			conversions.GET("/:id/ingredients/:index/search", convertInstance.HandleRowSearch)
			conversions.GET("/:id/ingredients/:index/units", convertInstance.HandleRowUnits)

			// 校對階段：步驟操作
			conversions.POST("/:id/steps", convertInstance.HandleAddStep)
			conversions.PUT("/:id/steps/:pos", convertInstance.HandleEditStep)
			conversions.DELETE("/:id/steps/:pos", convertInstance.HandleDeleteStep)
		}

		// 目錄搜尋
		api.GET("/catalog/ingredients/search", convertInstance.HandleCatalogSearch)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
