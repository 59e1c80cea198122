package service

import (
	"github.com/grandline/oracle/internal/models"
)

// ExtractCitations derives the citation list from the retrieved context,
// never from the generated prose. One citation per retrieved panel and one
// per SBS entry, in retrieval order, so the list always reflects exactly
// what was retrieved even when the model's wording garbles a reference.
func ExtractCitations(rc models.RetrievedContext) []models.Citation {
	citations := make([]models.Citation, 0, len(rc.Panels)+len(rc.SBSEntries))

	for _, p := range rc.Panels {
		citations = append(citations, models.Citation{
			Type:    models.CitationPanel,
			Chapter: p.ChapterNumber,
			Page:    p.PageNumber,
			Panel:   p.PanelNumber,
			Title:   p.ChapterTitle,
		})
	}

	for _, e := range rc.SBSEntries {
		citations = append(citations, models.Citation{
			Type:     models.CitationSBS,
			Volume:   e.Volume,
			Question: e.Question,
		})
	}

	return citations
}
