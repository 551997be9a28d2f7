package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-importer/internal/core/cache"
	"recipe-importer/internal/core/catalog"
	"recipe-importer/internal/core/workflow"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 健康檢查處理程序
type Handler struct {
	config      *config.Config
	manager     *workflow.Manager
	units       *catalog.UnitIndex
	ingredients *catalog.IngredientIndex
	cacheStore  cache.Store
}

// NewHandler 創建健康檢查處理程序
func NewHandler(cfg *config.Config, manager *workflow.Manager, units *catalog.UnitIndex, ingredients *catalog.IngredientIndex, store cache.Store) *Handler {
	return &Handler{
		config:      cfg,
		manager:     manager,
		units:       units,
		ingredients: ingredients,
		cacheStore:  store,
	}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version"`
	Runtime     map[string]interface{} `json:"runtime"`
	Conversions int                    `json:"conversions"`
	Catalog     map[string]int         `json:"catalog"`
	Cache       map[string]interface{} `json:"cache,omitempty"`
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Conversions: h.manager.Count(),
		Catalog: map[string]int{
			"units":       h.units.Len(),
			"ingredients": h.ingredients.Len(),
		},
	}
	if h.cacheStore != nil {
		response.Cache = h.cacheStore.Stats()
	}

	// 記錄請求
	common.LogInfo("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器
// 目錄快照允許為空（降級狀態），不影響就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"units":       h.units.Len(),
		"ingredients": h.ingredients.Len(),
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
