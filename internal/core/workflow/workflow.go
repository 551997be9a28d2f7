package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"recipe-importer/internal/core/match"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// State 工作流狀態
type State string

const (
	StateInput      State = "input"
	StateExtracting State = "extracting"
	StateReview     State = "review"
	StateReady      State = "ready"
	StateRedirect   State = "redirect"
	StateSaved      State = "saved"
)

// Workflow 單次轉換的狀態機
// 同一時間只允許一次擷取，擷取中再次提交會被拒絕
type Workflow struct {
	mu sync.Mutex

	// gen 世代計數，Submit 與 Reset 都會遞增
	// 擷取結果回來時世代不符代表中途被重置，結果直接捨棄
	gen uint64

	state              State
	source             *common.SourceDescriptor
	draft              *common.DraftRecipe
	matches            []common.MatchResult
	matchesSynthesized bool
	matchPercentage    int
	errMessage         string
	notice             string
	manualPreselected  bool
	redirectID         string
	thumbnailURL       string

	extractor Extractor
	converter ManualConverter
}

// Snapshot 工作流狀態快照，供 API 層呈現
type Snapshot struct {
	State              State                `json:"state"`
	ErrorMessage       string               `json:"error_message,omitempty"`
	Notice             string               `json:"notice,omitempty"`
	ManualPreselected  bool                 `json:"manual_preselected"`
	RedirectID         string               `json:"redirect_id,omitempty"`
	ThumbnailURL       string               `json:"thumbnail_url,omitempty"`
	Draft              *common.DraftRecipe  `json:"draft,omitempty"`
	Matches            []common.MatchResult `json:"matches,omitempty"`
	MatchesSynthesized bool                 `json:"matches_synthesized,omitempty"`
	MatchPercentage    int                  `json:"match_percentage"`
}

// New 創建工作流，初始狀態為 input
func New(extractor Extractor, converter ManualConverter) *Workflow {
	return &Workflow{
		state:     StateInput,
		extractor: extractor,
		converter: converter,
	}
}

// Submit 提交來源並執行擷取，只在 input 狀態有效
func (w *Workflow) Submit(ctx context.Context, source common.SourceDescriptor) error {
	if strings.TrimSpace(source.Raw) == "" {
		return common.ErrInvalidSource
	}

	w.mu.Lock()
	if w.state == StateExtracting {
		w.mu.Unlock()
		return common.ErrExtractionInProgress
	}
	if w.state != StateInput {
		w.mu.Unlock()
		return common.NewValidationError("submit is only valid from the input state")
	}
	w.state = StateExtracting
	w.errMessage = ""
	w.notice = ""
	w.manualPreselected = false
	src := source
	w.source = &src
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	// 網路呼叫不持鎖，擷取中狀態會擋掉並發提交
	start := time.Now()
	outcome, err := w.extractor.Extract(ctx, source)
	common.LogExtraction(string(source.Type), time.Since(start), err, "")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		// 擷取期間被重置，結果作廢，不覆蓋重置後的狀態
		common.LogInfo("擷取結果已失效，捨棄",
			zap.String("source_type", string(source.Type)),
		)
		return nil
	}
	if err != nil {
		// 所有外部呼叫失敗都在此邊界轉為使用者可見訊息，不外洩
		outcome = Failure{Message: err.Error()}
	}
	w.apply(source, outcome)
	return nil
}

// SubmitManual 提交逐字稿走手動轉換路徑
func (w *Workflow) SubmitManual(ctx context.Context, transcript string, tag common.SourceType) error {
	if strings.TrimSpace(transcript) == "" {
		return common.ErrInvalidSource
	}

	source := common.SourceDescriptor{Type: common.SourceManual, Raw: transcript}

	w.mu.Lock()
	if w.state == StateExtracting {
		w.mu.Unlock()
		return common.ErrExtractionInProgress
	}
	if w.state != StateInput {
		w.mu.Unlock()
		return common.NewValidationError("manual submit is only valid from the input state")
	}
	w.state = StateExtracting
	w.errMessage = ""
	w.notice = ""
	w.source = &source
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	start := time.Now()
	outcome, err := w.converter.Convert(ctx, transcript, tag)
	common.LogExtraction(string(common.SourceManual), time.Since(start), err, "")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		common.LogInfo("轉換結果已失效，捨棄")
		return nil
	}
	if err != nil {
		outcome = Failure{Message: err.Error()}
	}
	w.apply(source, outcome)
	return nil
}

// apply 套用擷取結果，呼叫端需持有鎖
func (w *Workflow) apply(source common.SourceDescriptor, outcome Outcome) {
	switch o := outcome.(type) {
	case Duplicate:
		// 重複優先：存在既有食譜時絕不建立草稿
		w.state = StateRedirect
		w.redirectID = o.RecipeID
		w.draft = nil
		w.matches = nil
		w.matchPercentage = 0
		common.LogInfo("偵測到重複食譜，導向既有記錄",
			zap.String("recipe_id", o.RecipeID),
		)

	case Success:
		draft := o.Recipe
		if draft == nil {
			draft = &common.DraftRecipe{}
		}
		if draft.Title == "" && o.TitleHint != "" {
			draft.Title = o.TitleHint
		}
		normalizeDraft(draft)

		matches := o.Matches
		w.matchesSynthesized = false
		if matches == nil {
			// 沒有預先對應結果的來源（如網頁擷取）合成全未對應集合
			matches = match.SynthesizeNotFound(draft.Ingredients)
			w.matchesSynthesized = true
		}

		w.draft = draft
		w.matches = matches
		w.matchPercentage = match.Percentage(matches)
		w.thumbnailURL = o.ThumbnailURL
		if source.Type == common.SourceYouTube || source.Type == common.SourceTikTok {
			w.state = StateReview
		} else {
			w.state = StateReady
		}
		common.LogInfo("擷取成功",
			zap.String("state", string(w.state)),
			zap.Int("ingredients", len(draft.Ingredients)),
			zap.String("ingredient_list", common.MentionSliceToString(draft.Ingredients)),
			zap.Int("match_percentage", w.matchPercentage),
		)

	case NeedsManualInput:
		// 預期備援：回到輸入並預選手動輸入表單，不視為錯誤
		w.state = StateInput
		w.manualPreselected = true
		w.notice = o.Message
		w.draft = nil
		w.matches = nil
		w.matchPercentage = 0
		common.LogInfo("來源缺少結構化內容，改走手動輸入",
			zap.String("message", o.Message),
		)

	case Failure:
		// 失敗回到輸入，不保留任何部分草稿
		w.state = StateInput
		w.errMessage = o.Message
		w.draft = nil
		w.matches = nil
		w.matchPercentage = 0
		common.LogWarn("擷取失敗，回到輸入狀態",
			zap.String("message", o.Message),
		)
	}
}

// normalizeDraft 補齊分區預設值並重排步驟序號
func normalizeDraft(draft *common.DraftRecipe) {
	for i := range draft.Ingredients {
		draft.Ingredients[i].Section = common.SectionOrDefault(draft.Ingredients[i].Section)
	}
	for i := range draft.Steps {
		draft.Steps[i].Ordinal = i + 1
		draft.Steps[i].Section = common.SectionOrDefault(draft.Steps[i].Section)
	}
}

// Reset 從任何狀態清空草稿與錯誤，回到 input
// 擷取進行中重置時，遞增世代讓進行中的結果在回來時作廢
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.state = StateInput
	w.source = nil
	w.draft = nil
	w.matches = nil
	w.matchesSynthesized = false
	w.matchPercentage = 0
	w.errMessage = ""
	w.notice = ""
	w.manualPreselected = false
	w.redirectID = ""
	w.thumbnailURL = ""
}

// MarkSaved 標記保存完成，只在 review/ready 狀態有效
func (w *Workflow) MarkSaved() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateReview && w.state != StateReady {
		return common.NewValidationError("save is only valid from the review or ready state")
	}
	w.state = StateSaved
	return nil
}

// State 取得目前狀態
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft 取得草稿與預先對應結果
func (w *Workflow) Draft() (*common.DraftRecipe, []common.MatchResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft, w.matches
}

// ThumbnailURL 取得縮圖連結（不透明傳遞）
func (w *Workflow) ThumbnailURL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.thumbnailURL
}

// Snapshot 取得狀態快照
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		State:              w.state,
		ErrorMessage:       w.errMessage,
		Notice:             w.notice,
		ManualPreselected:  w.manualPreselected,
		RedirectID:         w.redirectID,
		ThumbnailURL:       w.thumbnailURL,
		Draft:              w.draft,
		Matches:            w.matches,
		MatchesSynthesized: w.matchesSynthesized,
		MatchPercentage:    w.matchPercentage,
	}
}
