package extract

import (
	"context"
	"fmt"
	"net/http"

	"recipe-importer/internal/core/cache"
	"recipe-importer/internal/core/workflow"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 外部擷取服務客戶端，實現 workflow.Extractor 與 workflow.ManualConverter
type Client struct {
	config *config.Config
	client *resty.Client
	cache  cache.Store
}

// NewClient 創建擷取服務客戶端，cache 可為 nil
func NewClient(cfg *config.Config, store cache.Store) *Client {
	client := resty.New().
		SetBaseURL(cfg.Extractor.BaseURL).
		SetTimeout(cfg.Extractor.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Extractor.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Extractor.APIKey))
	}

	return &Client{
		config: cfg,
		client: client,
		cache:  store,
	}
}

// wireResponse 擷取服務的回應格式
type wireResponse struct {
	Duplicate        string               `json:"duplicate,omitempty"`
	Success          bool                 `json:"success"`
	Recipe           *common.DraftRecipe  `json:"recipe,omitempty"`
	Matches          []common.MatchResult `json:"matches,omitempty"`
	TitleHint        string               `json:"title_hint,omitempty"`
	ThumbnailURL     string               `json:"thumbnail_url,omitempty"`
	NeedsManualInput bool                 `json:"needs_manual_input,omitempty"`
	Message          string               `json:"message,omitempty"`
}

// outcome 將回應轉為結果分支
// duplicate 與 success 同時出現時以 duplicate 為準，絕不建立草稿
func (r *wireResponse) outcome() workflow.Outcome {
	switch {
	case r.Duplicate != "":
		return workflow.Duplicate{RecipeID: r.Duplicate}
	case r.NeedsManualInput:
		return workflow.NeedsManualInput{Message: r.Message}
	case r.Success:
		return workflow.Success{
			Recipe:       r.Recipe,
			Matches:      r.Matches,
			TitleHint:    r.TitleHint,
			ThumbnailURL: r.ThumbnailURL,
		}
	default:
		message := r.Message
		if message == "" {
			message = "extraction failed"
		}
		return workflow.Failure{Message: message}
	}
}

// cacheable 只快取可重放的結果，失敗與手動備援不快取
func (r *wireResponse) cacheable() bool {
	return r.Duplicate != "" || (r.Success && !r.NeedsManualInput)
}

// Extract 呼叫擷取服務，同一來源在 TTL 內重複提交直接重放快取結果
func (c *Client) Extract(ctx context.Context, source common.SourceDescriptor) (workflow.Outcome, error) {
	key := cache.Key(source.Raw)

	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil && raw != "" {
			var cached wireResponse
			if err := common.ParseJSON(raw, &cached); err == nil {
				return cached.outcome(), nil
			}
			common.LogWarn("快取內容無法解析，改走擷取服務", zap.String("key", key))
		}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"source_type": string(source.Type),
			"source":      source.Raw,
		}).
		Post("/extract")
	if err != nil {
		return nil, fmt.Errorf("failed to call extractor: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("extractor returned error: %s", resp.Status())
	}

	var result wireResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extractor response: %w", err)
	}

	if c.cache != nil && result.cacheable() {
		if raw, err := common.ToJSON(&result); err == nil {
			_ = c.cache.Set(ctx, key, raw)
		}
	}

	return result.outcome(), nil
}

// Convert 呼叫逐字稿轉換服務，只有成功與失敗兩種分支
func (c *Client) Convert(ctx context.Context, transcript string, tag common.SourceType) (workflow.Outcome, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"transcript": transcript,
			"source_tag": string(tag),
		}).
		Post("/convert")
	if err != nil {
		return nil, fmt.Errorf("failed to call manual converter: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("manual converter returned error: %s", resp.Status())
	}

	var result wireResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse converter response: %w", err)
	}

	if result.Success {
		return workflow.Success{
			Recipe:       result.Recipe,
			Matches:      result.Matches,
			TitleHint:    result.TitleHint,
			ThumbnailURL: result.ThumbnailURL,
		}, nil
	}
	message := result.Message
	if message == "" {
		message = "manual conversion failed"
	}
	return workflow.Failure{Message: message}, nil
}
