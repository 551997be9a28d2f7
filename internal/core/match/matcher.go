package match

import (
	"math"
	"sort"
	"strings"

	"recipe-importer/internal/pkg/common"
)

// Strategy 次要對應策略，僅在精確對應失敗時啟用
// 回傳 nil 表示放棄對應
type Strategy interface {
	Match(normalized string, catalog []common.CatalogIngredient) *common.CatalogIngredient
}

// Normalize 標準化食材名稱（去空白、轉小寫）
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Match 將食材描述逐一對應到目錄，僅使用精確對應
func Match(mentions []common.IngredientMention, catalog []common.CatalogIngredient) []common.MatchResult {
	return MatchWith(mentions, catalog, nil)
}

// MatchWith 對應食材描述，精確對應失敗時交由次要策略處理
func MatchWith(mentions []common.IngredientMention, catalog []common.CatalogIngredient, strategy Strategy) []common.MatchResult {
	byName := make(map[string]*common.CatalogIngredient, len(catalog))
	for i := range catalog {
		byName[Normalize(catalog[i].Name)] = &catalog[i]
	}

	results := make([]common.MatchResult, 0, len(mentions))
	for _, mention := range mentions {
		normalized := Normalize(mention.Name)

		entry := byName[normalized]
		if entry == nil && strategy != nil {
			entry = strategy.Match(normalized, catalog)
		}

		if entry == nil {
			results = append(results, NotFound(mention.Name))
			continue
		}

		id := entry.ID
		name := entry.Name
		results = append(results, common.MatchResult{
			MentionName:   mention.Name,
			Found:         true,
			CatalogID:     &id,
			CanonicalName: &name,
			Icon:          common.IconFound,
		})
	}
	return results
}

// NotFound 建立未對應結果
func NotFound(mentionName string) common.MatchResult {
	return common.MatchResult{
		MentionName: mentionName,
		Found:       false,
		Icon:        common.IconNotFound,
	}
}

// SynthesizeNotFound 為沒有預先對應結果的來源合成全部未對應的結果集
// 保證校對階段永遠拿得到對應集合
func SynthesizeNotFound(mentions []common.IngredientMention) []common.MatchResult {
	results := make([]common.MatchResult, 0, len(mentions))
	for _, mention := range mentions {
		results = append(results, NotFound(mention.Name))
	}
	return results
}

// Percentage 計算對應百分比，round(100·matched/total)，total 為 0 時回傳 0
func Percentage(results []common.MatchResult) int {
	if len(results) == 0 {
		return 0
	}
	matched := 0
	for _, r := range results {
		if r.Found {
			matched++
		}
	}
	return int(math.Round(100 * float64(matched) / float64(len(results))))
}

// TokenOverlap 以詞彙重疊比例做次要對應的策略
// 多個候選同分時，取標準名稱最短者，再取字典序最小者
type TokenOverlap struct {
	Threshold float64 // 低於此比例視為未對應，預設 0.5
}

// Match 實現 Strategy 介面
func (s TokenOverlap) Match(normalized string, catalog []common.CatalogIngredient) *common.CatalogIngredient {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return nil
	}

	type candidate struct {
		entry *common.CatalogIngredient
		score float64
	}
	var candidates []candidate

	for i := range catalog {
		score := overlapRatio(tokens, strings.Fields(Normalize(catalog[i].Name)))
		if score >= threshold {
			candidates = append(candidates, candidate{entry: &catalog[i], score: score})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		ni, nj := candidates[i].entry.Name, candidates[j].entry.Name
		if len(ni) != len(nj) {
			return len(ni) < len(nj)
		}
		return ni < nj
	})
	return candidates[0].entry
}

// overlapRatio 計算兩組詞彙的重疊比例（以較長一方為分母）
func overlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(shared) / float64(denom)
}
