package catalog

import (
	"context"
	"fmt"
	"net/http"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client 目錄服務客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建目錄服務客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Catalog.BaseURL).
		SetTimeout(cfg.Catalog.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// FetchUnits 取得全部單位
func (c *Client) FetchUnits(ctx context.Context) ([]common.Unit, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/units")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch units: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned error: %s", resp.Status())
	}

	var result struct {
		Units []common.Unit `json:"units"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse units response: %w", err)
	}
	return result.Units, nil
}

// FetchIngredients 取得全部標準食材
func (c *Client) FetchIngredients(ctx context.Context) ([]common.CatalogIngredient, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/ingredients")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ingredients: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned error: %s", resp.Status())
	}

	var result struct {
		Ingredients []common.CatalogIngredient `json:"ingredients"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse ingredients response: %w", err)
	}
	return result.Ingredients, nil
}

// SearchIngredients 遠端搜尋標準食材，排序由目錄服務決定
func (c *Client) SearchIngredients(ctx context.Context, prefix string) ([]common.CatalogIngredient, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", prefix).
		SetQueryParam("limit", fmt.Sprintf("%d", c.config.Catalog.SearchLimit)).
		Get("/ingredients/search")
	if err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned error: %s", resp.Status())
	}

	var result struct {
		Ingredients []common.CatalogIngredient `json:"ingredients"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return result.Ingredients, nil
}
