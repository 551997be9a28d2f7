package workflow

import (
	"context"

	"recipe-importer/internal/pkg/common"
)

// Outcome 擷取結果，每個分支只攜帶自己需要的資料
type Outcome interface {
	isOutcome()
}

// Duplicate 來源已存在對應食譜，直接導向既有記錄
type Duplicate struct {
	RecipeID string
}

// Success 擷取成功，產生草稿食譜
type Success struct {
	Recipe       *common.DraftRecipe
	Matches      []common.MatchResult
	TitleHint    string
	ThumbnailURL string
}

// NeedsManualInput 來源無法取得結構化內容，回到手動輸入
// 屬於預期的備援路徑，不是錯誤
type NeedsManualInput struct {
	Message string
}

// Failure 擷取失敗（網路、逾時、回應格式錯誤）
type Failure struct {
	Message string
}

func (Duplicate) isOutcome()        {}
func (Success) isOutcome()          {}
func (NeedsManualInput) isOutcome() {}
func (Failure) isOutcome()          {}

// Extractor 外部擷取服務
type Extractor interface {
	Extract(ctx context.Context, source common.SourceDescriptor) (Outcome, error)
}

// ManualConverter 逐字稿轉換服務，只有成功與失敗兩種結果
type ManualConverter interface {
	Convert(ctx context.Context, transcript string, tag common.SourceType) (Outcome, error)
}
