package session

import (
	"fmt"
	"strings"
	"sync"

	"recipe-importer/internal/core/match"
	"recipe-importer/internal/core/section"
	"recipe-importer/internal/pkg/common"
)

// ReconciledIngredient 校對中的食材工作記錄
// Mention 保留原始解析結果，其餘欄位為使用者可改的工作值
type ReconciledIngredient struct {
	Mention     common.IngredientMention `json:"mention"`
	DisplayName string                   `json:"display_name"`
	Found       bool                     `json:"found"`
	Icon        string                   `json:"icon"`

	// SelectedCatalogID 為 nil 代表保存前必須先解決
	SelectedCatalogID *string `json:"selected_catalog_id"`
	Quantity          string  `json:"quantity"`
	SelectedUnit      string  `json:"selected_unit,omitempty"`
	Section           string  `json:"section"`
	Locked            bool    `json:"locked"` // 保留給未來的手動保護，建立時一律 false

	// 逐列搜尋狀態，回應的查詢字串與目前文字不符時直接丟棄
	SearchText    string                     `json:"search_text,omitempty"`
	SearchResults []common.CatalogIngredient `json:"search_results,omitempty"`
}

// FieldPatch 數量、單位、分區的局部修改，nil 欄位表示不變
type FieldPatch struct {
	Quantity *string `json:"quantity,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	Section  *string `json:"section,omitempty"`
}

// MissingMatchesError 保存驗證失敗，列出所有尚未解決的食材名稱（依原始順序）
type MissingMatchesError struct {
	Names []string
}

// Error 實現 error 介面
func (e *MissingMatchesError) Error() string {
	return fmt.Sprintf("unresolved ingredients: %s", strings.Join(e.Names, "、"))
}

// Session 校對狀態，由建立它的轉換獨佔持有
type Session struct {
	mu sync.Mutex

	Title       string
	Description string
	Meta        *common.RecipeMeta

	ingredients []ReconciledIngredient
	steps       []common.StepEntry
}

// New 由草稿食譜與對應結果建立校對狀態
// 對應結果以描述名稱綁定，名稱缺漏時才退回位置對齊；都對不上視為未對應
func New(draft *common.DraftRecipe, matches []common.MatchResult) *Session {
	s := &Session{
		Title:       draft.Title,
		Description: draft.Description,
		Meta:        draft.Meta,
	}

	byName := make(map[string]int, len(matches))
	for i := range matches {
		key := match.Normalize(matches[i].MentionName)
		if key == "" {
			continue
		}
		// 重名取第一筆
		if _, ok := byName[key]; !ok {
			byName[key] = i
		}
	}

	s.ingredients = make([]ReconciledIngredient, len(draft.Ingredients))
	for i, mention := range draft.Ingredients {
		rec := ReconciledIngredient{
			Mention:      mention,
			DisplayName:  mention.Name,
			Icon:         common.IconNotFound,
			Quantity:     mention.Quantity,
			SelectedUnit: mention.Unit,
			Section:      common.SectionOrDefault(mention.Section),
		}

		var result *common.MatchResult
		if j, ok := byName[match.Normalize(mention.Name)]; ok {
			result = &matches[j]
		} else if i < len(matches) && matches[i].MentionName == "" {
			result = &matches[i]
		}

		if result != nil && result.Found && result.CatalogID != nil {
			id := *result.CatalogID
			rec.SelectedCatalogID = &id
			rec.Found = true
			rec.Icon = common.IconFound
			if result.CanonicalName != nil {
				rec.DisplayName = *result.CanonicalName
			}
		}
		s.ingredients[i] = rec
	}

	s.steps = make([]common.StepEntry, len(draft.Steps))
	copy(s.steps, draft.Steps)
	s.renumberSteps()

	return s
}

// SelectCatalogMatch 手動選定目錄食材，並清掉該列的搜尋結果
func (s *Session) SelectCatalogMatch(index int, entry common.CatalogIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}

	id := entry.ID
	rec := &s.ingredients[index]
	rec.SelectedCatalogID = &id
	rec.DisplayName = entry.Name
	rec.Found = true
	rec.Icon = common.IconFound
	rec.SearchText = ""
	rec.SearchResults = nil
	return nil
}

// ClearSelection 取消選定，顯示名稱還原為原始解析名稱
func (s *Session) ClearSelection(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}

	rec := &s.ingredients[index]
	rec.SelectedCatalogID = nil
	rec.DisplayName = rec.Mention.Name
	rec.Found = false
	rec.Icon = common.IconNotFound
	return nil
}

// UpdateField 套用數量、單位、分區修改，不動對應狀態
func (s *Session) UpdateField(index int, patch FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}

	rec := &s.ingredients[index]
	if patch.Quantity != nil {
		rec.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		rec.SelectedUnit = *patch.Unit
	}
	if patch.Section != nil {
		rec.Section = common.SectionOrDefault(*patch.Section)
	}
	return nil
}

// SetSearchText 更新某列的搜尋文字
func (s *Session) SetSearchText(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.ingredients[index].SearchText = text
	return nil
}

// ApplySearchResults 套用搜尋回應
// 同一列以最後發出的查詢為準：回應的查詢與目前文字不符視為過期，直接丟棄
func (s *Session) ApplySearchResults(index int, query string, results []common.CatalogIngredient) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return false, err
	}

	rec := &s.ingredients[index]
	if rec.SearchText != query {
		return false, nil
	}
	rec.SearchResults = results
	return true, nil
}

// Ingredients 取得食材工作記錄的複本
func (s *Session) Ingredients() []ReconciledIngredient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReconciledIngredient, len(s.ingredients))
	copy(out, s.ingredients)
	return out
}

// Ingredient 取得單一食材工作記錄
func (s *Session) Ingredient(index int) (ReconciledIngredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return ReconciledIngredient{}, err
	}
	return s.ingredients[index], nil
}

// Steps 取得步驟序列的複本
func (s *Session) Steps() []common.StepEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.StepEntry, len(s.steps))
	copy(out, s.steps)
	return out
}

// AddStep 加入步驟並重排序號
func (s *Session) AddStep(entry common.StepEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Section = common.SectionOrDefault(entry.Section)
	s.steps = append(s.steps, entry)
	s.renumberSteps()
}

// DeleteStep 依位置刪除步驟並重排序號
func (s *Session) DeleteStep(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 0 || pos >= len(s.steps) {
		return common.NewValidationError("step position out of range")
	}
	s.steps = append(s.steps[:pos], s.steps[pos+1:]...)
	s.renumberSteps()
	return nil
}

// EditStep 依位置修改步驟，未填分區時保留使用者已指定的分區
func (s *Session) EditStep(pos int, entry common.StepEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 0 || pos >= len(s.steps) {
		return common.NewValidationError("step position out of range")
	}

	current := &s.steps[pos]
	current.Instruction = entry.Instruction
	current.DurationMinutes = entry.DurationMinutes
	current.Tips = entry.Tips
	if strings.TrimSpace(entry.Section) != "" {
		current.Section = entry.Section
	}
	s.renumberSteps()
	return nil
}

// renumberSteps 重排顯示序號，不動分區，呼叫端需持有鎖
func (s *Session) renumberSteps() {
	for i := range s.steps {
		s.steps[i].Ordinal = i + 1
		s.steps[i].Section = common.SectionOrDefault(s.steps[i].Section)
	}
}

// MatchPercentage 目前的對應百分比
func (s *Session) MatchPercentage() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]common.MatchResult, len(s.ingredients))
	for i, rec := range s.ingredients {
		results[i] = common.MatchResult{MentionName: rec.Mention.Name, Found: rec.SelectedCatalogID != nil}
	}
	return match.Percentage(results)
}

// GroupedIngredients 食材分區視圖
func (s *Session) GroupedIngredients() []section.Section[ReconciledIngredient] {
	return section.Group(s.Ingredients(), func(r ReconciledIngredient) string {
		return r.Section
	})
}

// GroupedSteps 步驟分區視圖
func (s *Session) GroupedSteps() []section.Section[common.StepEntry] {
	return section.Group(s.Steps(), func(e common.StepEntry) string {
		return e.Section
	})
}

// ValidateForSave 驗證並產出最終食譜
// 只要還有未解決的食材就失敗，錯誤會列出全部名稱（依原始順序）
func (s *Session) ValidateForSave() (*common.FinalizedRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.Title) == "" {
		return nil, common.NewValidationError("recipe title is required")
	}

	var missing []string
	for _, rec := range s.ingredients {
		if rec.SelectedCatalogID == nil {
			missing = append(missing, rec.Mention.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingMatchesError{Names: missing}
	}

	finalized := &common.FinalizedRecipe{
		Title:       s.Title,
		Description: s.Description,
		Meta:        s.Meta,
		Ingredients: make([]common.FinalizedIngredient, len(s.ingredients)),
		Steps:       make([]common.StepEntry, len(s.steps)),
	}
	for i, rec := range s.ingredients {
		finalized.Ingredients[i] = common.FinalizedIngredient{
			CatalogID: *rec.SelectedCatalogID,
			Name:      rec.DisplayName,
			Quantity:  rec.Quantity,
			Unit:      rec.SelectedUnit,
			Section:   common.SectionOrDefault(rec.Section),
		}
	}
	copy(finalized.Steps, s.steps)

	return finalized, nil
}

func (s *Session) checkIndex(index int) error {
	if index < 0 || index >= len(s.ingredients) {
		return common.NewValidationError("ingredient index out of range")
	}
	return nil
}
