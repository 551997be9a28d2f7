package convert

import (
	"errors"
	"net/http"

	"recipe-importer/internal/core/catalog"
	"recipe-importer/internal/core/extract"
	"recipe-importer/internal/core/match"
	"recipe-importer/internal/core/persist"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/workflow"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler 轉換流程處理程序
type Handler struct {
	config        *config.Config
	manager       *workflow.Manager
	extractor     *extract.Client
	persister     *persist.Client
	units         *catalog.UnitIndex
	ingredients   *catalog.IngredientIndex
	catalogClient *catalog.Client
}

// NewHandler 創建轉換流程處理程序
func NewHandler(cfg *config.Config, manager *workflow.Manager, extractor *extract.Client, persister *persist.Client, units *catalog.UnitIndex, ingredients *catalog.IngredientIndex, catalogClient *catalog.Client) *Handler {
	return &Handler{
		config:        cfg,
		manager:       manager,
		extractor:     extractor,
		persister:     persister,
		units:         units,
		ingredients:   ingredients,
		catalogClient: catalogClient,
	}
}

// CreateRequest 提交來源
type CreateRequest struct {
	Source     string `json:"source" binding:"required"` // 影片連結、網頁連結或純文字
	SourceType string `json:"source_type,omitempty"`     // 可省略，省略時自動判斷
}

// ConversionResponse 轉換狀態回應
type ConversionResponse struct {
	ConversionID string            `json:"conversion_id"`
	Workflow     workflow.Snapshot `json:"workflow"`
	Session      *sessionView      `json:"session,omitempty"`
}

// HandleCreate 提交來源並啟動擷取
func (h *Handler) HandleCreate(c *gin.Context) {
	requestID := requestIDOf(c)

	common.LogInfo("開始處理轉換請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	source := common.SourceDescriptor{
		Type: common.SourceType(req.SourceType),
		Raw:  req.Source,
	}
	if source.Type == "" {
		source.Type = common.DetectSourceType(req.Source)
	}

	conv := h.manager.Create(h.extractor, h.extractor)
	if err := conv.Workflow.Submit(c.Request.Context(), source); err != nil {
		h.manager.Remove(conv.ID)
		respondError(c, requestID, err)
		return
	}

	h.seedSessionIfReady(conv)

	common.LogInfo("轉換請求處理完成",
		zap.String("request_id", requestID),
		zap.String("conversion_id", conv.ID),
		zap.String("state", string(conv.Workflow.State())),
	)

	c.JSON(http.StatusOK, h.buildResponse(conv))
}

// ManualRequest 提交逐字稿
type ManualRequest struct {
	Transcript string `json:"transcript" binding:"required"`
	SourceTag  string `json:"source_tag,omitempty"`
}

// HandleManual 以逐字稿走手動轉換路徑
func (h *Handler) HandleManual(c *gin.Context) {
	requestID := requestIDOf(c)

	conv, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, requestID, common.ErrConversionNotFound)
		return
	}

	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("逐字稿請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tag := common.SourceType(req.SourceTag)
	if tag == "" {
		tag = common.SourceManual
	}

	if err := conv.Workflow.SubmitManual(c.Request.Context(), req.Transcript, tag); err != nil {
		respondError(c, requestID, err)
		return
	}

	h.seedSessionIfReady(conv)

	c.JSON(http.StatusOK, h.buildResponse(conv))
}

// HandleGet 取得轉換狀態
func (h *Handler) HandleGet(c *gin.Context) {
	requestID := requestIDOf(c)

	conv, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, requestID, common.ErrConversionNotFound)
		return
	}

	c.JSON(http.StatusOK, h.buildResponse(conv))
}

// HandleReset 清空草稿與錯誤，回到輸入狀態
func (h *Handler) HandleReset(c *gin.Context) {
	requestID := requestIDOf(c)

	conv, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, requestID, common.ErrConversionNotFound)
		return
	}

	conv.Workflow.Reset()
	conv.ClearSession()

	common.LogInfo("轉換已重置",
		zap.String("request_id", requestID),
		zap.String("conversion_id", conv.ID),
	)

	c.JSON(http.StatusOK, h.buildResponse(conv))
}

// HandleSave 驗證並保存食譜，失敗時校對狀態保持不變
func (h *Handler) HandleSave(c *gin.Context) {
	requestID := requestIDOf(c)

	conv, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, requestID, common.ErrConversionNotFound)
		return
	}

	sess := conv.Session()
	if sess == nil {
		respondError(c, requestID, common.ErrSessionNotReady)
		return
	}

	finalized, err := sess.ValidateForSave()
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	id, err := h.persister.SaveRecipe(c.Request.Context(), finalized, conv.ID, conv.Workflow.ThumbnailURL())
	if err != nil {
		common.LogError("食譜保存失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("conversion_id", conv.ID),
		)
		// 保存失敗不動校對狀態，使用者可直接重試
		respondError(c, requestID, common.ErrSaveFailed)
		return
	}

	if err := conv.Workflow.MarkSaved(); err != nil {
		respondError(c, requestID, err)
		return
	}
	conv.ClearSession()
	h.manager.Remove(conv.ID)

	common.LogInfo("食譜保存成功",
		zap.String("request_id", requestID),
		zap.String("conversion_id", conv.ID),
		zap.String("recipe_id", id),
	)

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// HandleCatalogSearch 目錄食材搜尋，遠端失敗時退回本地快照子字串搜尋
func (h *Handler) HandleCatalogSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"ingredients": []common.CatalogIngredient{}})
		return
	}

	results, err := h.catalogClient.SearchIngredients(c.Request.Context(), query)
	if err != nil {
		common.LogWarn("遠端目錄搜尋失敗，改用本地快照",
			zap.Error(err),
			zap.String("query", query),
		)
		results = h.ingredients.SearchSubstring(query)
	}
	if results == nil {
		results = []common.CatalogIngredient{}
	}

	c.JSON(http.StatusOK, gin.H{"ingredients": results})
}

// seedSessionIfReady 進入 review/ready 時以草稿與對應結果建立校對狀態
// review 來源若擷取端沒給對應結果，改用本地目錄跑一次精確對應
func (h *Handler) seedSessionIfReady(conv *workflow.Conversion) {
	snap := conv.Workflow.Snapshot()
	if snap.State != workflow.StateReview && snap.State != workflow.StateReady {
		return
	}

	matches := snap.Matches
	if snap.State == workflow.StateReview && snap.MatchesSynthesized && h.ingredients.Len() > 0 {
		matches = match.Match(snap.Draft.Ingredients, h.ingredients.All())
	}

	conv.SetSession(session.New(snap.Draft, matches))
}

// buildResponse 組裝轉換狀態回應
func (h *Handler) buildResponse(conv *workflow.Conversion) ConversionResponse {
	resp := ConversionResponse{
		ConversionID: conv.ID,
		Workflow:     conv.Workflow.Snapshot(),
	}
	if sess := conv.Session(); sess != nil {
		resp.Session = buildSessionView(sess)
	}
	return resp
}

// requestIDOf 取得或補發請求 ID
func requestIDOf(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// respondError 統一錯誤回應
func respondError(c *gin.Context, requestID string, err error) {
	var missing *session.MissingMatchesError
	if errors.As(err, &missing) {
		common.LogWarn("保存驗證失敗，仍有食材未解決",
			zap.String("request_id", requestID),
			zap.Strings("unresolved", missing.Names),
		)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      common.ErrUnresolvedIngredients.Message,
			"code":       common.ErrUnresolvedIngredients.Code,
			"unresolved": missing.Names,
		})
		return
	}

	var custom *common.CustomError
	if errors.As(err, &custom) {
		c.JSON(custom.Status, gin.H{
			"error": custom.Message,
			"code":  custom.Code,
		})
		return
	}

	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	common.LogError("未分類錯誤",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  common.ErrCodeInternalError,
	})
}
