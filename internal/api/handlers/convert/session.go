package convert

import (
	"net/http"
	"strconv"

	"recipe-importer/internal/core/catalog"
	"recipe-importer/internal/core/section"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/workflow"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionView 校對狀態的呈現視圖，食材與步驟皆以分區分組
type sessionView struct {
	Title           string                                          `json:"title"`
	Description     string                                          `json:"description,omitempty"`
	Meta            *common.RecipeMeta                              `json:"meta,omitempty"`
	MatchPercentage int                                             `json:"match_percentage"`
	Ingredients     []section.Section[session.ReconciledIngredient] `json:"ingredients"`
	Steps           []section.Section[common.StepEntry]             `json:"steps"`
}

func buildSessionView(sess *session.Session) *sessionView {
	return &sessionView{
		Title:           sess.Title,
		Description:     sess.Description,
		Meta:            sess.Meta,
		MatchPercentage: sess.MatchPercentage(),
		Ingredients:     sess.GroupedIngredients(),
		Steps:           sess.GroupedSteps(),
	}
}

// sessionOf 取得轉換的校對狀態，尚未進入校對階段時回應錯誤
func (h *Handler) sessionOf(c *gin.Context, requestID string) (*workflow.Conversion, *session.Session, bool) {
	conv, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, requestID, common.ErrConversionNotFound)
		return nil, nil, false
	}
	sess := conv.Session()
	if sess == nil {
		respondError(c, requestID, common.ErrSessionNotReady)
		return nil, nil, false
	}
	return conv, sess, true
}

// indexParam 解析路徑中的列索引
func indexParam(c *gin.Context, name string) (int, error) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, common.NewValidationError("invalid index parameter")
	}
	return value, nil
}

// SelectRequest 手動選定目錄食材
type SelectRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
	Form string `json:"form,omitempty"`
}

// HandleSelect 選定目錄食材
func (h *Handler) HandleSelect(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	index, err := indexParam(c, "index")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry := common.CatalogIngredient{
		ID:   req.ID,
		Name: req.Name,
		Form: common.IngredientForm(req.Form),
	}
	// 以本地快照為準補齊形態，請求端給的 form 僅作為備援
	if cached, found := h.ingredients.LookupByID(req.ID); found {
		entry = cached
	} else if entry.Form == "" {
		entry.Form = common.FormUnknown
	}

	if err := sess.SelectCatalogMatch(index, entry); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, buildSessionView(sess))
}

// HandleClear 取消選定
func (h *Handler) HandleClear(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	index, err := indexParam(c, "index")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	if err := sess.ClearSelection(index); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, buildSessionView(sess))
}

// HandlePatchField 修改數量、單位、分區
func (h *Handler) HandlePatchField(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	index, err := indexParam(c, "index")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	var patch session.FieldPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := sess.UpdateField(index, patch); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, buildSessionView(sess))
}

// HandleRowSearch 逐列搜尋目錄食材
// 回應套用前會比對查詢與該列目前文字，過期回應直接丟棄
func (h *Handler) HandleRowSearch(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	index, err := indexParam(c, "index")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	query := c.Query("q")
	if err := sess.SetSearchText(index, query); err != nil {
		respondError(c, requestID, err)
		return
	}

	results, err := h.catalogClient.SearchIngredients(c.Request.Context(), query)
	if err != nil {
		common.LogWarn("逐列搜尋失敗，改用本地快照",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("query", query),
		)
		results = h.ingredients.SearchSubstring(query)
	}

	applied, err := sess.ApplySearchResults(index, query, results)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	if !applied {
		common.LogDebug("搜尋回應已過期，捨棄",
			zap.String("request_id", requestID),
			zap.String("query", query),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":     applied,
		"query":       query,
		"ingredients": results,
	})
}

// HandleRowUnits 取得某列可用單位
// 回應同時帶回已選單位，前端不得因過濾而清掉既有選擇
func (h *Handler) HandleRowUnits(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	index, err := indexParam(c, "index")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	rec, err := sess.Ingredient(index)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	form := common.FormUnknown
	if rec.SelectedCatalogID != nil {
		if entry, found := h.ingredients.LookupByID(*rec.SelectedCatalogID); found {
			form = entry.Form
		}
	}

	admissible := catalog.AdmissibleUnits(form, h.units.All())
	if admissible == nil {
		admissible = []common.Unit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"form":          form,
		"units":         admissible,
		"selected_unit": rec.SelectedUnit,
	})
}

// StepRequest 步驟新增或修改
type StepRequest struct {
	Instruction     string   `json:"instruction" binding:"required"`
	Section         string   `json:"section,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Tips            []string `json:"tips,omitempty"`
}

func (r *StepRequest) toEntry() (common.StepEntry, error) {
	if r.DurationMinutes != nil && *r.DurationMinutes < 0 {
		return common.StepEntry{}, common.NewValidationError("duration_minutes must be non-negative")
	}
	return common.StepEntry{
		Instruction:     r.Instruction,
		Section:         r.Section,
		DurationMinutes: r.DurationMinutes,
		Tips:            r.Tips,
	}, nil
}

// HandleAddStep 加入步驟
func (h *Handler) HandleAddStep(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry, err := req.toEntry()
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	sess.AddStep(entry)
	c.JSON(http.StatusOK, buildSessionView(sess))
}

// HandleEditStep 修改步驟
func (h *Handler) HandleEditStep(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	pos, err := indexParam(c, "pos")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry, err := req.toEntry()
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	if err := sess.EditStep(pos, entry); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, buildSessionView(sess))
}

// HandleDeleteStep 刪除步驟
func (h *Handler) HandleDeleteStep(c *gin.Context) {
	requestID := requestIDOf(c)

	_, sess, ok := h.sessionOf(c, requestID)
	if !ok {
		return
	}

	pos, err := indexParam(c, "pos")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	if err := sess.DeleteStep(pos); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, buildSessionView(sess))
}
