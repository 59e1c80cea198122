// Package models defines the records served by the panel and SBS corpora.
package models

import (
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Panel represents a single manga panel. Panels are owned by the corpus
// store; this process never mutates them.
type Panel struct {
	ID            surrealmodels.RecordID `json:"id"`
	ChapterNumber int                    `json:"chapter_number"`
	ChapterTitle  *string                `json:"chapter_title,omitempty"`
	PageNumber    int                    `json:"page_number"`
	PanelNumber   int                    `json:"panel_number"`
	Dialogue      *string                `json:"dialogue,omitempty"`
	Characters    []string               `json:"characters"`
	Embedding     []float32              `json:"embedding,omitempty"`

	// Similarity is only set on vector-search results.
	Similarity *float64 `json:"similarity,omitempty"`
}

// SBSEntry is one author question/answer pair from an SBS column.
type SBSEntry struct {
	ID        surrealmodels.RecordID `json:"id"`
	Volume    int                    `json:"volume"`
	Question  string                 `json:"question"`
	Answer    string                 `json:"answer"`
	Embedding []float32              `json:"embedding,omitempty"`

	// Similarity is only set on vector-search results.
	Similarity *float64 `json:"similarity,omitempty"`
}

// RetrievedContext is the per-request aggregate of everything pulled from the
// two corpora for one question. Both lists are already threshold-filtered and
// ordered by descending similarity.
type RetrievedContext struct {
	Panels     []Panel    `json:"panels"`
	SBSEntries []SBSEntry `json:"sbs_entries"`
}

// SearchResult is the response shape of the plain search endpoint.
type SearchResult struct {
	Panels     []Panel    `json:"panels"`
	SBSEntries []SBSEntry `json:"sbs_entries"`
}
