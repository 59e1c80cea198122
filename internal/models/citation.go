package models

import "time"

// Citation types.
const (
	CitationPanel = "panel"
	CitationSBS   = "sbs"
)

// Citation locates one retrieved record. Citations are derived from the
// retrieved context, never parsed out of generated prose.
type Citation struct {
	Type string `json:"type"`

	// Panel locator fields.
	Chapter int     `json:"chapter,omitempty"`
	Page    int     `json:"page,omitempty"`
	Panel   int     `json:"panel,omitempty"`
	Title   *string `json:"title,omitempty"`

	// SBS locator fields.
	Volume   int    `json:"volume,omitempty"`
	Question string `json:"question,omitempty"`
}

// Answer is the final product of the ask pipeline.
type Answer struct {
	Question  string     `json:"question"`
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Model     string     `json:"model"`
	Timestamp time.Time  `json:"timestamp"`
}
