package common

import (
	"encoding/json"
	"strings"
)

// DefaultSection 預設分區名稱，來源未標記分區時一律歸入此區
const DefaultSection = "Main"

// SourceType 來源類型
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceTikTok  SourceType = "tiktok"
	SourceWeb     SourceType = "web"
	SourceManual  SourceType = "manual"
)

// SourceDescriptor 轉換來源描述，提交後不可變更
type SourceDescriptor struct {
	Type SourceType `json:"type"`
	Raw  string     `json:"raw"`
}

// DetectSourceType 根據原始輸入判斷來源類型
func DetectSourceType(raw string) SourceType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "youtube.com/") || strings.Contains(lower, "youtu.be/"):
		return SourceYouTube
	case strings.Contains(lower, "tiktok.com/"):
		return SourceTikTok
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		return SourceWeb
	default:
		return SourceManual
	}
}

// IngredientMention 從來源解析出的食材描述，尚未對應到目錄
type IngredientMention struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"` // 自由格式，允許範圍與分數
	Unit     string `json:"unit,omitempty"`
	Section  string `json:"section,omitempty"`
}

// StepEntry 食譜步驟，內部一律使用結構化形式
type StepEntry struct {
	Ordinal         int      `json:"ordinal,omitempty"`
	Instruction     string   `json:"instruction"`
	Section         string   `json:"section,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Tips            []string `json:"tips,omitempty"`
}

// UnmarshalJSON 同時接受舊版純字串步驟與結構化步驟
func (s *StepEntry) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		s.Instruction = legacy
		return nil
	}

	type alias StepEntry
	var v alias
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = StepEntry(v)
	return nil
}

// RecipeMeta 食譜附加資訊
type RecipeMeta struct {
	Servings    int    `json:"servings,omitempty"`
	PrepMinutes int    `json:"prep_minutes,omitempty"`
	CookMinutes int    `json:"cook_minutes,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	Course      string `json:"course,omitempty"`
	Meal        string `json:"meal,omitempty"`
	Cuisine     string `json:"cuisine,omitempty"`
}

// DraftRecipe 單次擷取產生的草稿食譜
type DraftRecipe struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Ingredients []IngredientMention `json:"ingredients"`
	Steps       []StepEntry         `json:"steps"`
	Meta        *RecipeMeta         `json:"meta,omitempty"`
}

// IngredientForm 食材物理形態
type IngredientForm string

const (
	FormSolid   IngredientForm = "solid"
	FormLiquid  IngredientForm = "liquid"
	FormUnknown IngredientForm = "unknown"
)

// CatalogIngredient 目錄中的標準食材
type CatalogIngredient struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Form IngredientForm `json:"form"`
}

// UnitType 單位物理類型
type UnitType string

const (
	UnitWeight   UnitType = "weight"
	UnitVolume   UnitType = "volume"
	UnitQuantity UnitType = "quantity"
	UnitUnknown  UnitType = "unknown"
)

// Unit 計量單位
type Unit struct {
	ID     string   `json:"id"`
	Abbrev string   `json:"abbrev"`
	Name   string   `json:"name"`
	Type   UnitType `json:"type"`
}

// 對應結果顯示圖示，Found 旗標才是判斷依據，圖示僅供呈現
const (
	IconFound    = "✅"
	IconNotFound = "⚠️"
)

// MatchResult 食材對應結果
type MatchResult struct {
	MentionName   string  `json:"mention_name"`
	Found         bool    `json:"found"`
	CatalogID     *string `json:"catalog_id"`
	CanonicalName *string `json:"canonical_name"`
	Icon          string  `json:"icon"`
}

// FinalizedIngredient 已解析完成的食材
type FinalizedIngredient struct {
	CatalogID string `json:"catalog_id"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Unit      string `json:"unit,omitempty"`
	Section   string `json:"section"`
}

// FinalizedRecipe 驗證通過後送交保存的食譜
type FinalizedRecipe struct {
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Ingredients []FinalizedIngredient `json:"ingredients"`
	Steps       []StepEntry           `json:"steps"`
	Meta        *RecipeMeta           `json:"meta,omitempty"`
}

// SectionOrDefault 空白分區名稱歸入預設分區
func SectionOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultSection
	}
	return name
}
