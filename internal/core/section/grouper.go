package section

import (
	"sort"
	"strings"

	"recipe-importer/internal/pkg/common"
)

// Section 具名分區與其內的項目，僅為呈現用的分組視圖
type Section[T any] struct {
	Name  string `json:"name"`
	Items []T    `json:"items"`
}

// Group 依 sectionOf 將項目分區，保留區內原始順序
// 分區排序規則固定：Main 在最前，其餘依名稱不分大小寫字典序
// 對已分組再攤平的序列重新分組，結果不變
func Group[T any](items []T, sectionOf func(T) string) []Section[T] {
	index := make(map[string]int)
	var sections []Section[T]

	for _, item := range items {
		name := common.SectionOrDefault(sectionOf(item))
		pos, ok := index[name]
		if !ok {
			pos = len(sections)
			index[name] = pos
			sections = append(sections, Section[T]{Name: name})
		}
		sections[pos].Items = append(sections[pos].Items, item)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Name == common.DefaultSection {
			return sections[j].Name != common.DefaultSection
		}
		if sections[j].Name == common.DefaultSection {
			return false
		}
		return strings.ToLower(sections[i].Name) < strings.ToLower(sections[j].Name)
	})

	return sections
}

// Flatten 將分區視圖攤平回單一序列
func Flatten[T any](sections []Section[T]) []T {
	var items []T
	for _, s := range sections {
		items = append(items, s.Items...)
	}
	return items
}
