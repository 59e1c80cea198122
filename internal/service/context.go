package service

import (
	"fmt"
	"strings"

	"github.com/grandline/oracle/internal/models"
)

// Placeholders rendered when a corpus comes back empty. The generator gets
// an explicit absence signal instead of an ambiguous gap.
const (
	noPanelsPlaceholder = "No relevant panels found."
	noSBSPlaceholder    = "No relevant SBS entries found."
)

// BuildContext formats the retrieved records into the textual context block
// handed to the generator. Pure concatenation; inputs are not mutated.
func BuildContext(rc models.RetrievedContext) string {
	return fmt.Sprintf(`=== RETRIEVED MANGA PANELS ===
%s

=== SBS ENTRIES ===
%s`, panelContext(rc.Panels), sbsContext(rc.SBSEntries))
}

func panelContext(panels []models.Panel) string {
	if len(panels) == 0 {
		return noPanelsPlaceholder
	}

	parts := make([]string, 0, len(panels))
	for i, p := range panels {
		var b strings.Builder
		fmt.Fprintf(&b, "[Panel %d] Chapter %d", i+1, p.ChapterNumber)
		if p.ChapterTitle != nil && *p.ChapterTitle != "" {
			fmt.Fprintf(&b, " %q", *p.ChapterTitle)
		}
		fmt.Fprintf(&b, ", Page %d, Panel %d\n", p.PageNumber, p.PanelNumber)

		characters := "Unknown"
		if len(p.Characters) > 0 {
			characters = strings.Join(p.Characters, ", ")
		}
		fmt.Fprintf(&b, "Characters: %s\n", characters)

		dialogue := "No dialogue"
		if p.Dialogue != nil && *p.Dialogue != "" {
			dialogue = *p.Dialogue
		}
		fmt.Fprintf(&b, "Dialogue: %q\n", dialogue)
		fmt.Fprintf(&b, "(Similarity: %s)", similarityPercent(p.Similarity))

		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func sbsContext(entries []models.SBSEntry) string {
	if len(entries) == 0 {
		return noSBSPlaceholder
	}

	parts := make([]string, 0, len(entries))
	for i, e := range entries {
		parts = append(parts, fmt.Sprintf("[SBS %d] Volume %d\nQ: %s\nA: %s\n(Similarity: %s)",
			i+1, e.Volume, e.Question, e.Answer, similarityPercent(e.Similarity)))
	}
	return strings.Join(parts, "\n\n")
}

// similarityPercent renders a cosine similarity as a one-decimal percent.
func similarityPercent(sim *float64) string {
	v := 0.0
	if sim != nil {
		v = *sim
	}
	return fmt.Sprintf("%.1f%%", v*100)
}
