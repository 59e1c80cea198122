package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/models"
)

// KNN candidate pool tuning: fetch 2x the requested limit before the
// threshold filter for variety, with HNSW ef=40 for better recall.
const knnEF = 40

// SearchPanels returns panels whose embedding is within threshold cosine
// similarity of the query vector, ordered by descending similarity with a
// stable id tie break, capped at limit.
func (c *Client) SearchPanels(
	ctx context.Context,
	embedding []float32,
	threshold float64,
	limit int,
) ([]models.Panel, error) {
	defer c.record(metrics.OpPanelSearch, time.Now())

	// The KNN operator requires literal neighbor counts.
	sql := fmt.Sprintf(`
		SELECT * FROM (
			SELECT id, chapter_number, chapter_title, page_number, panel_number,
			       dialogue, characters,
			       vector::similarity::cosine(embedding, $emb) AS similarity
			FROM panel
			WHERE embedding <|%d,%d|> $emb
		)
		WHERE similarity >= $threshold
		ORDER BY similarity DESC, id ASC
		LIMIT $limit
	`, limit*2, knnEF)

	results, err := surrealdb.Query[[]models.Panel](ctx, c.db, sql, map[string]any{
		"emb":       embedding,
		"threshold": threshold,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search panels: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Panel{}, nil
}

// SearchSBS is the SBS-corpus counterpart of SearchPanels.
func (c *Client) SearchSBS(
	ctx context.Context,
	embedding []float32,
	threshold float64,
	limit int,
) ([]models.SBSEntry, error) {
	defer c.record(metrics.OpSBSSearch, time.Now())

	sql := fmt.Sprintf(`
		SELECT * FROM (
			SELECT id, volume, question, answer,
			       vector::similarity::cosine(embedding, $emb) AS similarity
			FROM sbs
			WHERE embedding <|%d,%d|> $emb
		)
		WHERE similarity >= $threshold
		ORDER BY similarity DESC, id ASC
		LIMIT $limit
	`, limit*2, knnEF)

	results, err := surrealdb.Query[[]models.SBSEntry](ctx, c.db, sql, map[string]any{
		"emb":       embedding,
		"threshold": threshold,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search sbs: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.SBSEntry{}, nil
}

// FulltextPanels runs a BM25 full-text query over panel dialogue. This path
// needs no embedding provider at all.
func (c *Client) FulltextPanels(ctx context.Context, query string, limit int) ([]models.Panel, error) {
	defer c.record(metrics.OpFulltext, time.Now())

	results, err := surrealdb.Query[[]models.Panel](ctx, c.db, `
		SELECT id, chapter_number, chapter_title, page_number, panel_number,
		       dialogue, characters, search::score(0) AS score
		FROM panel
		WHERE dialogue @0@ $q
		ORDER BY score DESC
		LIMIT $limit
	`, map[string]any{
		"q":     query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fulltext panels: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Panel{}, nil
}

// FulltextSBS runs a BM25 full-text query over SBS questions and answers.
func (c *Client) FulltextSBS(ctx context.Context, query string, limit int) ([]models.SBSEntry, error) {
	defer c.record(metrics.OpFulltext, time.Now())

	results, err := surrealdb.Query[[]models.SBSEntry](ctx, c.db, `
		SELECT id, volume, question, answer,
		       search::score(0) + search::score(1) AS score
		FROM sbs
		WHERE question @0@ $q OR answer @1@ $q
		ORDER BY score DESC
		LIMIT $limit
	`, map[string]any{
		"q":     query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fulltext sbs: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.SBSEntry{}, nil
}

// CreatePanel inserts one panel record. Used by import tooling and tests;
// the serving path never writes.
func (c *Client) CreatePanel(ctx context.Context, p models.Panel) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE panel CONTENT {
			chapter_number: $chapter_number,
			chapter_title: $chapter_title,
			page_number: $page_number,
			panel_number: $panel_number,
			dialogue: $dialogue,
			characters: $characters,
			embedding: $embedding
		}
	`, map[string]any{
		"chapter_number": p.ChapterNumber,
		"chapter_title":  p.ChapterTitle,
		"page_number":    p.PageNumber,
		"panel_number":   p.PanelNumber,
		"dialogue":       p.Dialogue,
		"characters":     p.Characters,
		"embedding":      p.Embedding,
	})
	if err != nil {
		return fmt.Errorf("create panel: %w", wrapQueryError(err))
	}
	return nil
}

// CreateSBS inserts one SBS entry.
func (c *Client) CreateSBS(ctx context.Context, e models.SBSEntry) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE sbs CONTENT {
			volume: $volume,
			question: $question,
			answer: $answer,
			embedding: $embedding
		}
	`, map[string]any{
		"volume":    e.Volume,
		"question":  e.Question,
		"answer":    e.Answer,
		"embedding": e.Embedding,
	})
	if err != nil {
		return fmt.Errorf("create sbs: %w", wrapQueryError(err))
	}
	return nil
}
