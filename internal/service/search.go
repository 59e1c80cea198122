package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/models"
)

// Search methods.
const (
	MethodSemantic = "semantic"
	MethodFulltext = "fulltext"
)

// SearchService serves the plain search endpoint: vector similarity with a
// precision-leaning threshold, or BM25 full text as the
// degraded-but-always-available mode that needs no embedding provider.
type SearchService struct {
	retriever Retriever
	embedder  Embedder
	cfg       config.Config
	logger    *slog.Logger
}

// NewSearchService creates the search service.
func NewSearchService(retriever Retriever, embedder Embedder, cfg config.Config, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		retriever: retriever,
		embedder:  embedder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Search runs one corpus query with the given method. limit caps the panel
// list; the SBS corpus gets roughly a quarter of it since it is far smaller
// and purely supplementary. limit <= 0 uses the configured default.
func (s *SearchService) Search(ctx context.Context, query, method string, limit int) (*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	if limit <= 0 {
		limit = s.cfg.SearchPanelLimit
	}
	sbsLimit := (limit + 3) / 4
	if sbsLimit > s.cfg.SearchSBSLimit {
		sbsLimit = s.cfg.SearchSBSLimit
	}

	switch method {
	case MethodSemantic:
		return s.semantic(ctx, query, limit, sbsLimit)
	case MethodFulltext:
		return s.fulltext(ctx, query, limit, sbsLimit)
	default:
		return nil, fmt.Errorf("%w: unknown search method %q", ErrInvalidInput, method)
	}
}

func (s *SearchService) semantic(ctx context.Context, query string, panelLimit, sbsLimit int) (*models.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrUpstreamUnavailable, err)
	}

	var (
		wg         sync.WaitGroup
		panels     []models.Panel
		sbsEntries []models.SBSEntry
		panelErr   error
		sbsErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		panels, panelErr = s.retriever.SearchPanels(ctx, embedding, s.cfg.SearchThreshold, panelLimit)
	}()
	go func() {
		defer wg.Done()
		sbsEntries, sbsErr = s.retriever.SearchSBS(ctx, embedding, s.cfg.SearchThreshold, sbsLimit)
	}()
	wg.Wait()

	if panelErr != nil {
		return nil, fmt.Errorf("%w: search panels: %v", ErrUpstreamUnavailable, panelErr)
	}
	if sbsErr != nil {
		return nil, fmt.Errorf("%w: search sbs: %v", ErrUpstreamUnavailable, sbsErr)
	}

	return &models.SearchResult{Panels: panels, SBSEntries: sbsEntries}, nil
}

func (s *SearchService) fulltext(ctx context.Context, query string, panelLimit, sbsLimit int) (*models.SearchResult, error) {
	var (
		wg         sync.WaitGroup
		panels     []models.Panel
		sbsEntries []models.SBSEntry
		panelErr   error
		sbsErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		panels, panelErr = s.retriever.FulltextPanels(ctx, query, panelLimit)
	}()
	go func() {
		defer wg.Done()
		sbsEntries, sbsErr = s.retriever.FulltextSBS(ctx, query, sbsLimit)
	}()
	wg.Wait()

	if panelErr != nil {
		return nil, fmt.Errorf("%w: fulltext panels: %v", ErrUpstreamUnavailable, panelErr)
	}
	if sbsErr != nil {
		return nil, fmt.Errorf("%w: fulltext sbs: %v", ErrUpstreamUnavailable, sbsErr)
	}

	return &models.SearchResult{Panels: panels, SBSEntries: sbsEntries}, nil
}
