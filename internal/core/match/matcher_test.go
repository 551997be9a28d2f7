package match_test

import (
	"testing"

	"recipe-importer/internal/core/match"
	"recipe-importer/internal/pkg/common"
)

func catalogFixture() []common.CatalogIngredient {
	return []common.CatalogIngredient{
		{ID: "ing-flour", Name: "Flour", Form: common.FormSolid},
		{ID: "ing-sugar", Name: "Sugar", Form: common.FormSolid},
		{ID: "ing-milk", Name: "Milk", Form: common.FormLiquid},
	}
}

func TestMatchExact(t *testing.T) {
	mentions := []common.IngredientMention{
		{Name: "  flour "},
		{Name: "salt"},
		{Name: "SUGAR"},
	}

	results := match.Match(mentions, catalogFixture())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if !results[0].Found || results[0].CatalogID == nil || *results[0].CatalogID != "ing-flour" {
		t.Fatalf("flour should match ing-flour, got %+v", results[0])
	}
	if results[0].CanonicalName == nil || *results[0].CanonicalName != "Flour" {
		t.Fatalf("flour should carry canonical name Flour, got %+v", results[0])
	}
	if results[0].Icon != common.IconFound {
		t.Fatalf("matched result should carry the found icon")
	}

	if results[1].Found {
		t.Fatalf("salt should not match, got %+v", results[1])
	}
	if results[1].CatalogID != nil || results[1].CanonicalName != nil {
		t.Fatalf("unmatched result should have nil catalog fields, got %+v", results[1])
	}
	if results[1].Icon != common.IconNotFound {
		t.Fatalf("unmatched result should carry the not-found icon")
	}

	if !results[2].Found || *results[2].CatalogID != "ing-sugar" {
		t.Fatalf("SUGAR should match case-insensitively, got %+v", results[2])
	}
}

func TestMatchPreservesMentionOrder(t *testing.T) {
	mentions := []common.IngredientMention{
		{Name: "milk"}, {Name: "flour"}, {Name: "vanilla"},
	}

	results := match.Match(mentions, catalogFixture())
	want := []string{"milk", "flour", "vanilla"}
	for i, name := range want {
		if results[i].MentionName != name {
			t.Fatalf("result %d should keep mention name %q, got %q", i, name, results[i].MentionName)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name    string
		found   int
		total   int
		percent int
	}{
		{"empty", 0, 0, 0},
		{"none", 0, 4, 0},
		{"all", 4, 4, 100},
		{"two thirds rounds up", 2, 3, 67},
		{"one third rounds down", 1, 3, 33},
		{"half", 1, 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]common.MatchResult, tt.total)
			for i := range results {
				results[i] = common.MatchResult{Found: i < tt.found}
			}
			if got := match.Percentage(results); got != tt.percent {
				t.Fatalf("expected %d%%, got %d%%", tt.percent, got)
			}
		})
	}
}

func TestSynthesizeNotFound(t *testing.T) {
	mentions := []common.IngredientMention{{Name: "a"}, {Name: "b"}}

	results := match.SynthesizeNotFound(mentions)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Found {
			t.Fatalf("synthesized result %d should be unmatched", i)
		}
		if r.MentionName != mentions[i].Name {
			t.Fatalf("synthesized result %d should keep mention name %q, got %q", i, mentions[i].Name, r.MentionName)
		}
	}
	if match.Percentage(results) != 0 {
		t.Fatalf("synthesized set should score 0%%")
	}
}

func TestTokenOverlapFallback(t *testing.T) {
	catalog := []common.CatalogIngredient{
		{ID: "ing-brown-sugar", Name: "Brown Sugar"},
		{ID: "ing-flour", Name: "Flour"},
	}
	mentions := []common.IngredientMention{{Name: "dark brown sugar"}}

	results := match.MatchWith(mentions, catalog, match.TokenOverlap{})
	if !results[0].Found || *results[0].CatalogID != "ing-brown-sugar" {
		t.Fatalf("token overlap should pick Brown Sugar, got %+v", results[0])
	}
}

func TestTokenOverlapBelowThreshold(t *testing.T) {
	catalog := []common.CatalogIngredient{
		{ID: "ing-brown-sugar", Name: "Brown Sugar Crystals Extra"},
	}
	mentions := []common.IngredientMention{{Name: "sugar"}}

	results := match.MatchWith(mentions, catalog, match.TokenOverlap{})
	if results[0].Found {
		t.Fatalf("one shared token out of four should stay below the default threshold, got %+v", results[0])
	}
}

func TestTokenOverlapTieBreak(t *testing.T) {
	// 兩個候選同分：取名稱較短者，長度相同時取字典序較小者
	catalog := []common.CatalogIngredient{
		{ID: "ing-b", Name: "sugar syrup"},
		{ID: "ing-a", Name: "sugar cubes"},
		{ID: "ing-short", Name: "sugar"},
	}
	mentions := []common.IngredientMention{{Name: "sugar"}}

	results := match.MatchWith(mentions, catalog, match.TokenOverlap{})
	if !results[0].Found || *results[0].CatalogID != "ing-short" {
		t.Fatalf("tie break should prefer the shortest name, got %+v", results[0])
	}

	catalog = catalog[:2]
	results = match.MatchWith(mentions, catalog, match.TokenOverlap{})
	if !results[0].Found || *results[0].CatalogID != "ing-a" {
		t.Fatalf("equal-length tie break should prefer lexical order, got %+v", results[0])
	}
}

func TestNormalize(t *testing.T) {
	if got := match.Normalize("  Brown Sugar "); got != "brown sugar" {
		t.Fatalf("expected %q, got %q", "brown sugar", got)
	}
}
