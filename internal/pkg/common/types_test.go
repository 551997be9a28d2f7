package common_test

import (
	"encoding/json"
	"testing"

	"recipe-importer/internal/pkg/common"
)

func TestDetectSourceType(t *testing.T) {
	tests := []struct {
		raw  string
		want common.SourceType
	}{
		{"https://www.youtube.com/watch?v=abc123", common.SourceYouTube},
		{"https://youtu.be/abc123", common.SourceYouTube},
		{"HTTPS://YOUTU.BE/ABC123", common.SourceYouTube},
		{"https://www.tiktok.com/@cook/video/123", common.SourceTikTok},
		{"https://example.com/best-pancakes", common.SourceWeb},
		{"http://example.com/best-pancakes", common.SourceWeb},
		{"200g flour, 3 eggs, mix and fry", common.SourceManual},
		{"  https://youtu.be/abc123  ", common.SourceYouTube},
	}

	for _, tt := range tests {
		if got := common.DetectSourceType(tt.raw); got != tt.want {
			t.Fatalf("DetectSourceType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStepEntryDecodesLegacyString(t *testing.T) {
	var step common.StepEntry
	if err := json.Unmarshal([]byte(`"Mix everything together"`), &step); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if step.Instruction != "Mix everything together" {
		t.Fatalf("instruction mismatch: %q", step.Instruction)
	}
	if step.Section != "" || step.DurationMinutes != nil {
		t.Fatalf("legacy string should only set the instruction, got %+v", step)
	}
}

func TestStepEntryDecodesStructuredForm(t *testing.T) {
	raw := `{"instruction":"Bake","section":"Oven","duration_minutes":25,"tips":["rotate halfway"]}`

	var step common.StepEntry
	if err := json.Unmarshal([]byte(raw), &step); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if step.Instruction != "Bake" || step.Section != "Oven" {
		t.Fatalf("structured decode mismatch: %+v", step)
	}
	if step.DurationMinutes == nil || *step.DurationMinutes != 25 {
		t.Fatalf("duration mismatch: %+v", step.DurationMinutes)
	}
	if len(step.Tips) != 1 || step.Tips[0] != "rotate halfway" {
		t.Fatalf("tips mismatch: %+v", step.Tips)
	}
}

func TestStepEntryDecodesMixedList(t *testing.T) {
	raw := `["Chop the onions",{"instruction":"Simmer","duration_minutes":10}]`

	var steps []common.StepEntry
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Instruction != "Chop the onions" {
		t.Fatalf("legacy entry mismatch: %+v", steps[0])
	}
	if steps[1].Instruction != "Simmer" || steps[1].DurationMinutes == nil || *steps[1].DurationMinutes != 10 {
		t.Fatalf("structured entry mismatch: %+v", steps[1])
	}
}

func TestSectionOrDefault(t *testing.T) {
	if got := common.SectionOrDefault(""); got != common.DefaultSection {
		t.Fatalf("blank section should default, got %q", got)
	}
	if got := common.SectionOrDefault("  "); got != common.DefaultSection {
		t.Fatalf("whitespace section should default, got %q", got)
	}
	if got := common.SectionOrDefault("Topping"); got != "Topping" {
		t.Fatalf("named section should pass through, got %q", got)
	}
}
