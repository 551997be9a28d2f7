package persist

import (
	"context"
	"fmt"
	"net/http"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client 食譜保存服務客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建保存服務客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Persistence.BaseURL).
		SetTimeout(cfg.Persistence.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// saveRequest 保存請求格式
type saveRequest struct {
	Recipe       *common.FinalizedRecipe `json:"recipe"`
	ConversionID string                  `json:"conversion_id,omitempty"`
	ThumbnailURL string                  `json:"thumbnail_url,omitempty"`
}

// saveResponse 保存回應格式
type saveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// SaveRecipe 保存最終食譜，重送安全；失敗時不影響校對狀態
func (c *Client) SaveRecipe(ctx context.Context, recipe *common.FinalizedRecipe, conversionID, thumbnailURL string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(saveRequest{
			Recipe:       recipe,
			ConversionID: conversionID,
			ThumbnailURL: thumbnailURL,
		}).
		Post("/recipes")
	if err != nil {
		return "", fmt.Errorf("failed to call persistence service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("persistence service returned error: %s", resp.Status())
	}

	var result saveResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse save response: %w", err)
	}
	if !result.Success {
		if result.Message != "" {
			return "", fmt.Errorf("save rejected: %s", result.Message)
		}
		return "", fmt.Errorf("save rejected")
	}
	return result.ID, nil
}
