package catalog

import (
	"context"
	"strings"
	"sync"

	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Fetcher 目錄資料來源
type Fetcher interface {
	FetchUnits(ctx context.Context) ([]common.Unit, error)
	FetchIngredients(ctx context.Context) ([]common.CatalogIngredient, error)
	SearchIngredients(ctx context.Context, prefix string) ([]common.CatalogIngredient, error)
}

// UnitIndex 單位目錄快照，載入後唯讀
type UnitIndex struct {
	mu    sync.RWMutex
	units []common.Unit
}

// NewUnitIndex 創建空的單位目錄
func NewUnitIndex() *UnitIndex {
	return &UnitIndex{}
}

// Refresh 重新載入單位目錄，失敗時降級為空目錄而非阻斷流程
func (x *UnitIndex) Refresh(ctx context.Context, fetcher Fetcher) {
	units, err := fetcher.FetchUnits(ctx)
	if err != nil {
		common.LogWarn("單位目錄載入失敗，降級為空目錄", zap.Error(err))
		units = nil
	}

	x.mu.Lock()
	x.units = units
	x.mu.Unlock()

	common.LogInfo("單位目錄已載入", zap.Int("count", len(units)))
}

// All 取得目前快照中的所有單位
func (x *UnitIndex) All() []common.Unit {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]common.Unit, len(x.units))
	copy(out, x.units)
	return out
}

// Len 快照大小
func (x *UnitIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.units)
}

// IngredientIndex 食材目錄快照，支援精確查找與子字串搜尋
type IngredientIndex struct {
	mu      sync.RWMutex
	entries []common.CatalogIngredient
	byName  map[string]int
	byID    map[string]int
}

// NewIngredientIndex 創建空的食材目錄
func NewIngredientIndex() *IngredientIndex {
	return &IngredientIndex{
		byName: make(map[string]int),
		byID:   make(map[string]int),
	}
}

// Refresh 重新載入食材目錄，失敗時降級為空目錄而非阻斷流程
func (x *IngredientIndex) Refresh(ctx context.Context, fetcher Fetcher) {
	entries, err := fetcher.FetchIngredients(ctx)
	if err != nil {
		common.LogWarn("食材目錄載入失敗，降級為空目錄", zap.Error(err))
		entries = nil
	}

	byName, byID := buildLookups(entries)

	x.mu.Lock()
	x.entries = entries
	x.byName = byName
	x.byID = byID
	x.mu.Unlock()

	common.LogInfo("食材目錄已載入", zap.Int("count", len(entries)))
}

func buildLookups(entries []common.CatalogIngredient) (map[string]int, map[string]int) {
	byName := make(map[string]int, len(entries))
	byID := make(map[string]int, len(entries))
	for i := range entries {
		byName[normalizeName(entries[i].Name)] = i
		byID[entries[i].ID] = i
	}
	return byName, byID
}

// Replace 以固定資料取代快照，測試用
func (x *IngredientIndex) Replace(entries []common.CatalogIngredient) {
	byName, byID := buildLookups(entries)

	x.mu.Lock()
	x.entries = entries
	x.byName = byName
	x.byID = byID
	x.mu.Unlock()
}

// LookupExact 以標準化名稱精確查找
func (x *IngredientIndex) LookupExact(name string) (common.CatalogIngredient, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i, ok := x.byName[normalizeName(name)]; ok {
		return x.entries[i], true
	}
	return common.CatalogIngredient{}, false
}

// LookupByID 以識別碼查找
func (x *IngredientIndex) LookupByID(id string) (common.CatalogIngredient, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i, ok := x.byID[id]; ok {
		return x.entries[i], true
	}
	return common.CatalogIngredient{}, false
}

// SearchSubstring 子字串搜尋（不分大小寫）
func (x *IngredientIndex) SearchSubstring(query string) []common.CatalogIngredient {
	needle := normalizeName(query)
	if needle == "" {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []common.CatalogIngredient
	for _, entry := range x.entries {
		if strings.Contains(normalizeName(entry.Name), needle) {
			out = append(out, entry)
		}
	}
	return out
}

// All 取得目前快照中的所有食材
func (x *IngredientIndex) All() []common.CatalogIngredient {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]common.CatalogIngredient, len(x.entries))
	copy(out, x.entries)
	return out
}

// Len 快照大小
func (x *IngredientIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
