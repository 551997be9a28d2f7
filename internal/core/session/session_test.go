package session_test

import (
	"errors"
	"reflect"
	"testing"

	"recipe-importer/internal/core/session"
	"recipe-importer/internal/pkg/common"
)

func strPtr(s string) *string { return &s }

func draftFixture() *common.DraftRecipe {
	return &common.DraftRecipe{
		Title:       "Pancakes",
		Description: "Weekend breakfast",
		Ingredients: []common.IngredientMention{
			{Name: "flour", Quantity: "200", Unit: "g"},
			{Name: "mystery spice", Quantity: "1", Unit: "tsp"},
			{Name: "milk", Quantity: "300", Unit: "ml", Section: "Batter"},
		},
		Steps: []common.StepEntry{
			{Instruction: "Mix dry ingredients", Section: "Mix"},
			{Instruction: "Fry until golden"},
		},
	}
}

func matchesFixture() []common.MatchResult {
	return []common.MatchResult{
		{MentionName: "flour", Found: true, CatalogID: strPtr("ing-flour"), CanonicalName: strPtr("Flour"), Icon: common.IconFound},
		{MentionName: "mystery spice", Found: false, Icon: common.IconNotFound},
		{MentionName: "milk", Found: true, CatalogID: strPtr("ing-milk"), CanonicalName: strPtr("Milk"), Icon: common.IconFound},
	}
}

func TestNewSeedsFromDraftAndMatches(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	rows := sess.Ingredients()
	if len(rows) != 3 {
		t.Fatalf("expected 3 ingredient rows, got %d", len(rows))
	}

	if !rows[0].Found || rows[0].SelectedCatalogID == nil || *rows[0].SelectedCatalogID != "ing-flour" {
		t.Fatalf("matched row should be preselected, got %+v", rows[0])
	}
	if rows[0].DisplayName != "Flour" {
		t.Fatalf("matched row should show the canonical name, got %q", rows[0].DisplayName)
	}
	if rows[0].Section != "Main" {
		t.Fatalf("blank section should default to Main, got %q", rows[0].Section)
	}

	if rows[1].Found || rows[1].SelectedCatalogID != nil {
		t.Fatalf("unmatched row should start unresolved, got %+v", rows[1])
	}
	if rows[1].DisplayName != "mystery spice" {
		t.Fatalf("unmatched row should show the original name, got %q", rows[1].DisplayName)
	}

	if rows[2].Section != "Batter" {
		t.Fatalf("explicit section should be preserved, got %q", rows[2].Section)
	}

	steps := sess.Steps()
	if steps[0].Ordinal != 1 || steps[1].Ordinal != 2 {
		t.Fatalf("steps should be renumbered from 1, got %d and %d", steps[0].Ordinal, steps[1].Ordinal)
	}
	if steps[1].Section != "Main" {
		t.Fatalf("blank step section should default to Main, got %q", steps[1].Section)
	}
}

func TestNewWithShortMatchesTreatsRestAsUnresolved(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture()[:1])

	rows := sess.Ingredients()
	if !rows[0].Found {
		t.Fatalf("first row should be preselected")
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Found || rows[i].SelectedCatalogID != nil {
			t.Fatalf("row %d without a match result should be unresolved, got %+v", i, rows[i])
		}
	}
}

func TestNewBindsMatchesByName(t *testing.T) {
	// 對應結果順序與草稿食材不同，綁定依名稱而非位置
	matches := []common.MatchResult{
		{MentionName: "Milk", Found: true, CatalogID: strPtr("ing-milk"), CanonicalName: strPtr("Milk"), Icon: common.IconFound},
		{MentionName: "flour", Found: true, CatalogID: strPtr("ing-flour"), CanonicalName: strPtr("Flour"), Icon: common.IconFound},
	}
	sess := session.New(draftFixture(), matches)

	rows := sess.Ingredients()
	if !rows[0].Found || *rows[0].SelectedCatalogID != "ing-flour" {
		t.Fatalf("flour row should bind to its own match regardless of order, got %+v", rows[0])
	}
	if rows[1].Found || rows[1].SelectedCatalogID != nil {
		t.Fatalf("row without a named match should stay unresolved, got %+v", rows[1])
	}
	if !rows[2].Found || *rows[2].SelectedCatalogID != "ing-milk" {
		t.Fatalf("milk row should bind by case-insensitive name, got %+v", rows[2])
	}
}

func TestNewFallsBackToPositionForUnnamedMatches(t *testing.T) {
	matches := []common.MatchResult{
		{Found: true, CatalogID: strPtr("ing-flour"), CanonicalName: strPtr("Flour"), Icon: common.IconFound},
	}
	sess := session.New(draftFixture(), matches)

	rows := sess.Ingredients()
	if !rows[0].Found || *rows[0].SelectedCatalogID != "ing-flour" {
		t.Fatalf("unnamed match should bind by position, got %+v", rows[0])
	}
}

func TestSelectThenClearRoundTrip(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if err := sess.SelectCatalogMatch(1, common.CatalogIngredient{ID: "ing-cinnamon", Name: "Cinnamon"}); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	row, _ := sess.Ingredient(1)
	if !row.Found || *row.SelectedCatalogID != "ing-cinnamon" || row.DisplayName != "Cinnamon" {
		t.Fatalf("select should adopt the catalog entry, got %+v", row)
	}
	if row.Icon != common.IconFound {
		t.Fatalf("selected row should carry the found icon")
	}

	if err := sess.ClearSelection(1); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	row, _ = sess.Ingredient(1)
	if row.Found || row.SelectedCatalogID != nil {
		t.Fatalf("clear should drop the selection, got %+v", row)
	}
	if row.DisplayName != "mystery spice" {
		t.Fatalf("clear should restore the original name, got %q", row.DisplayName)
	}
}

func TestSelectClearsSearchState(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if err := sess.SetSearchText(1, "cinn"); err != nil {
		t.Fatalf("set search text failed: %v", err)
	}
	if _, err := sess.ApplySearchResults(1, "cinn", []common.CatalogIngredient{{ID: "ing-cinnamon", Name: "Cinnamon"}}); err != nil {
		t.Fatalf("apply search results failed: %v", err)
	}

	if err := sess.SelectCatalogMatch(1, common.CatalogIngredient{ID: "ing-cinnamon", Name: "Cinnamon"}); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	row, _ := sess.Ingredient(1)
	if row.SearchText != "" || row.SearchResults != nil {
		t.Fatalf("select should clear row search state, got %+v", row)
	}
}

func TestUpdateFieldLeavesMatchStateAlone(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	err := sess.UpdateField(0, session.FieldPatch{
		Quantity: strPtr("250"),
		Section:  strPtr("Dry"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	row, _ := sess.Ingredient(0)
	if row.Quantity != "250" || row.Section != "Dry" {
		t.Fatalf("patched fields should change, got %+v", row)
	}
	if !row.Found || *row.SelectedCatalogID != "ing-flour" {
		t.Fatalf("field patch must not disturb the match, got %+v", row)
	}
	if row.SelectedUnit != "g" {
		t.Fatalf("unit without a patch value must stay untouched, got %q", row.SelectedUnit)
	}

	if err := sess.UpdateField(0, session.FieldPatch{Section: strPtr("  ")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	row, _ = sess.Ingredient(0)
	if row.Section != "Main" {
		t.Fatalf("blank section patch should fall back to Main, got %q", row.Section)
	}
}

func TestStaleSearchResponseIsDiscarded(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if err := sess.SetSearchText(1, "cinnamon"); err != nil {
		t.Fatalf("set search text failed: %v", err)
	}

	// 舊查詢的回應在文字更新後才抵達
	applied, err := sess.ApplySearchResults(1, "cinn", []common.CatalogIngredient{{ID: "stale", Name: "Stale"}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied {
		t.Fatalf("stale response should be discarded")
	}
	row, _ := sess.Ingredient(1)
	if row.SearchResults != nil {
		t.Fatalf("stale response must not touch the row, got %+v", row.SearchResults)
	}

	applied, err = sess.ApplySearchResults(1, "cinnamon", []common.CatalogIngredient{{ID: "ing-cinnamon", Name: "Cinnamon"}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied {
		t.Fatalf("current response should be applied")
	}
}

func TestStepOperationsRenumber(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	sess.AddStep(common.StepEntry{Instruction: "Serve warm"})
	steps := sess.Steps()
	if len(steps) != 3 || steps[2].Ordinal != 3 {
		t.Fatalf("added step should be appended as ordinal 3, got %+v", steps)
	}
	if steps[2].Section != "Main" {
		t.Fatalf("added step without a section should land in Main, got %q", steps[2].Section)
	}

	if err := sess.DeleteStep(0); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	steps = sess.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps after delete, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Ordinal != i+1 {
			t.Fatalf("ordinals should be contiguous after delete, step %d has %d", i, step.Ordinal)
		}
	}
	if steps[0].Instruction != "Fry until golden" {
		t.Fatalf("delete removed the wrong step, got %+v", steps[0])
	}

	if err := sess.DeleteStep(10); err == nil {
		t.Fatalf("out-of-range delete should fail")
	}
}

func TestEditStepKeepsSectionWhenBlank(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if err := sess.EditStep(0, common.StepEntry{Instruction: "Sift and mix"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	steps := sess.Steps()
	if steps[0].Instruction != "Sift and mix" {
		t.Fatalf("instruction should be replaced, got %q", steps[0].Instruction)
	}
	if steps[0].Section != "Mix" {
		t.Fatalf("blank section on edit should keep the existing one, got %q", steps[0].Section)
	}

	if err := sess.EditStep(0, common.StepEntry{Instruction: "Sift and mix", Section: "Prep"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if sess.Steps()[0].Section != "Prep" {
		t.Fatalf("explicit section on edit should replace the existing one")
	}
}

func TestMatchPercentageTracksSelections(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if got := sess.MatchPercentage(); got != 67 {
		t.Fatalf("expected 67%% with 2 of 3 resolved, got %d%%", got)
	}

	if err := sess.SelectCatalogMatch(1, common.CatalogIngredient{ID: "ing-cinnamon", Name: "Cinnamon"}); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if got := sess.MatchPercentage(); got != 100 {
		t.Fatalf("expected 100%% after resolving the last row, got %d%%", got)
	}
}

func TestValidateForSaveListsUnresolvedInOrder(t *testing.T) {
	draft := draftFixture()
	sess := session.New(draft, nil)

	_, err := sess.ValidateForSave()
	var missing *session.MissingMatchesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingMatchesError, got %v", err)
	}
	want := []string{"flour", "mystery spice", "milk"}
	if !reflect.DeepEqual(missing.Names, want) {
		t.Fatalf("unresolved names should follow original order, want %v got %v", want, missing.Names)
	}
}

func TestValidateForSaveRequiresTitle(t *testing.T) {
	draft := draftFixture()
	draft.Title = "   "
	sess := session.New(draft, matchesFixture())

	_, err := sess.ValidateForSave()
	if !common.IsValidationError(err) {
		t.Fatalf("expected a validation error for a blank title, got %v", err)
	}
}

func TestValidateForSaveBuildsFinalizedRecipe(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())
	if err := sess.SelectCatalogMatch(1, common.CatalogIngredient{ID: "ing-cinnamon", Name: "Cinnamon"}); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if err := sess.UpdateField(1, session.FieldPatch{Quantity: strPtr("2")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	finalized, err := sess.ValidateForSave()
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if finalized.Title != "Pancakes" {
		t.Fatalf("finalized title mismatch: %q", finalized.Title)
	}
	if len(finalized.Ingredients) != 3 {
		t.Fatalf("expected 3 finalized ingredients, got %d", len(finalized.Ingredients))
	}
	second := finalized.Ingredients[1]
	if second.CatalogID != "ing-cinnamon" || second.Name != "Cinnamon" || second.Quantity != "2" {
		t.Fatalf("finalized ingredient should carry the working values, got %+v", second)
	}
	if len(finalized.Steps) != 2 {
		t.Fatalf("expected 2 finalized steps, got %d", len(finalized.Steps))
	}
}

func TestGroupedViews(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	groups := sess.GroupedIngredients()
	if groups[0].Name != "Main" {
		t.Fatalf("Main should come first, got %q", groups[0].Name)
	}
	if len(groups) != 2 || groups[1].Name != "Batter" {
		t.Fatalf("expected Main then Batter, got %+v", groups)
	}

	stepGroups := sess.GroupedSteps()
	if stepGroups[0].Name != "Main" {
		t.Fatalf("Main step group should come first, got %q", stepGroups[0].Name)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	sess := session.New(draftFixture(), matchesFixture())

	if err := sess.ClearSelection(99); !common.IsValidationError(err) {
		t.Fatalf("expected a validation error for a bad index, got %v", err)
	}
	if err := sess.SelectCatalogMatch(-1, common.CatalogIngredient{ID: "x", Name: "x"}); !common.IsValidationError(err) {
		t.Fatalf("expected a validation error for a negative index, got %v", err)
	}
}
