package service

import (
	"strings"
	"testing"

	"github.com/grandline/oracle/internal/models"
)

func TestBuildContext_EmptyCorpora(t *testing.T) {
	got := BuildContext(models.RetrievedContext{})

	if !strings.Contains(got, noPanelsPlaceholder) {
		t.Errorf("missing panel placeholder in %q", got)
	}
	if !strings.Contains(got, noSBSPlaceholder) {
		t.Errorf("missing SBS placeholder in %q", got)
	}
	if !strings.Contains(got, "=== RETRIEVED MANGA PANELS ===") || !strings.Contains(got, "=== SBS ENTRIES ===") {
		t.Errorf("missing section headers in %q", got)
	}
}

func TestPanelContext_FullRecord(t *testing.T) {
	panels := []models.Panel{
		{
			ChapterNumber: 1,
			ChapterTitle:  strPtr("Romance Dawn"),
			PageNumber:    5,
			PanelNumber:   2,
			Dialogue:      strPtr("I'm gonna be King of the Pirates!"),
			Characters:    []string{"Monkey D. Luffy", "Shanks"},
			Similarity:    simPtr(0.875),
		},
	}

	got := panelContext(panels)
	want := "[Panel 1] Chapter 1 \"Romance Dawn\", Page 5, Panel 2\n" +
		"Characters: Monkey D. Luffy, Shanks\n" +
		"Dialogue: \"I'm gonna be King of the Pirates!\"\n" +
		"(Similarity: 87.5%)"
	if got != want {
		t.Errorf("panelContext() =\n%s\nwant\n%s", got, want)
	}
}

func TestPanelContext_MissingFields(t *testing.T) {
	panels := []models.Panel{
		{ChapterNumber: 42, PageNumber: 1, PanelNumber: 1},
	}

	got := panelContext(panels)
	for _, want := range []string{"Characters: Unknown", `Dialogue: "No dialogue"`, "(Similarity: 0.0%)"} {
		if !strings.Contains(got, want) {
			t.Errorf("panelContext() missing %q in\n%s", want, got)
		}
	}
	if strings.Contains(got, `Chapter 42 "`) {
		t.Error("nil chapter title rendered as quoted string")
	}
}

func TestPanelContext_NumbersInOrder(t *testing.T) {
	panels := []models.Panel{
		{ChapterNumber: 10, PageNumber: 1, PanelNumber: 1},
		{ChapterNumber: 20, PageNumber: 2, PanelNumber: 2},
		{ChapterNumber: 30, PageNumber: 3, PanelNumber: 3},
	}

	got := panelContext(panels)
	prev := -1
	for _, marker := range []string{"[Panel 1] Chapter 10", "[Panel 2] Chapter 20", "[Panel 3] Chapter 30"} {
		idx := strings.Index(got, marker)
		if idx < 0 {
			t.Fatalf("missing %q in\n%s", marker, got)
		}
		if idx < prev {
			t.Errorf("%q out of order", marker)
		}
		prev = idx
	}
}

func TestSBSContext(t *testing.T) {
	entries := []models.SBSEntry{
		{Volume: 44, Question: "Why Gear Second?", Answer: "Blood pumping.", Similarity: simPtr(0.9)},
	}

	got := sbsContext(entries)
	want := "[SBS 1] Volume 44\nQ: Why Gear Second?\nA: Blood pumping.\n(Similarity: 90.0%)"
	if got != want {
		t.Errorf("sbsContext() = %q, want %q", got, want)
	}
}

func TestSimilarityPercent(t *testing.T) {
	tests := []struct {
		name string
		sim  *float64
		want string
	}{
		{"nil", nil, "0.0%"},
		{"zero", simPtr(0), "0.0%"},
		{"rounded", simPtr(0.6549), "65.5%"},
		{"one", simPtr(1), "100.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similarityPercent(tt.sim); got != tt.want {
				t.Errorf("similarityPercent() = %q, want %q", got, tt.want)
			}
		})
	}
}
