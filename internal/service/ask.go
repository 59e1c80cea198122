// Package service implements the retrieval-augmented answer pipeline and
// the plain corpus search on top of the store, embedding, and generation
// clients.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/models"
)

// Embedder turns free text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Generator produces a grounded answer from a system instruction and a user
// prompt.
type Generator interface {
	Answer(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	AnswerStream(ctx context.Context, systemPrompt, userPrompt string, onToken func(token string) error) (string, error)
	Model() string
}

// Retriever queries the two vector-indexed corpora and the full-text
// fallback.
type Retriever interface {
	SearchPanels(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.Panel, error)
	SearchSBS(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.SBSEntry, error)
	FulltextPanels(ctx context.Context, query string, limit int) ([]models.Panel, error)
	FulltextSBS(ctx context.Context, query string, limit int) ([]models.SBSEntry, error)
}

// systemPrompt carries the grounding rules for the generator. The
// constraints here are load-bearing: answers must come only from supplied
// context, with explicit chapter/page citations and an explicit admission
// when the context is insufficient.
const systemPrompt = `You are an expert on the One Piece manga series by Eiichiro Oda. You have access to specific manga panels and SBS (author Q&A) entries to answer questions accurately.

IMPORTANT RULES:
1. Base your answer ONLY on the provided manga panels and SBS entries
2. Cite specific panels using the format: (Chapter X, Page Y)
3. If the context doesn't contain enough information, say so clearly
4. Don't make up information or speculate beyond what's shown
5. Be concise but thorough
6. Use markdown formatting for citations

When citing, use this format:
> "Quote from panel" — **Chapter X, Page Y**

If you reference an SBS entry, cite it as:
> (Source: SBS Volume X)`

// AskService runs the full question-to-answer pipeline. All collaborators
// are injected once at construction; nothing is lazily initialized.
type AskService struct {
	retriever Retriever
	embedder  Embedder
	generator Generator
	cfg       config.Config
	logger    *slog.Logger
}

// NewAskService creates the ask pipeline.
func NewAskService(retriever Retriever, embedder Embedder, generator Generator, cfg config.Config, logger *slog.Logger) *AskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskService{
		retriever: retriever,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers a question from retrieved context. The tier gate runs before
// any external call; a free-tier caller costs nothing upstream.
func (s *AskService) Ask(ctx context.Context, question, tier string) (*models.Answer, error) {
	rc, err := s.prepare(ctx, question, tier)
	if err != nil {
		return nil, err
	}

	userPrompt := buildUserPrompt(question, *rc)
	text, err := s.generator.Answer(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return s.finish(question, text, *rc), nil
}

// AskStream is Ask with the answer streamed token by token through onToken.
// Citations are only valid once the call returns.
func (s *AskService) AskStream(ctx context.Context, question, tier string, onToken func(token string) error) (*models.Answer, error) {
	rc, err := s.prepare(ctx, question, tier)
	if err != nil {
		return nil, err
	}

	userPrompt := buildUserPrompt(question, *rc)
	text, err := s.generator.AnswerStream(ctx, systemPrompt, userPrompt, onToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return s.finish(question, text, *rc), nil
}

// prepare validates, gates, embeds, and retrieves. Shared by Ask and
// AskStream.
func (s *AskService) prepare(ctx context.Context, question, tier string) (*models.RetrievedContext, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	if !Authorize(tier) {
		return nil, fmt.Errorf("%w: tier %q", ErrUnauthorized, tier)
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", ErrUpstreamUnavailable, err)
	}

	rc, err := s.retrieve(ctx, embedding)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("context retrieved",
		"panels", len(rc.Panels),
		"sbs_entries", len(rc.SBSEntries),
	)
	return rc, nil
}

// retrieve queries both corpora concurrently. A failure of either aborts
// the request: a context missing one corpus degrades answer quality
// unpredictably and is never silently accepted.
func (s *AskService) retrieve(ctx context.Context, embedding []float32) (*models.RetrievedContext, error) {
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
		panels, panelErr = s.retriever.SearchPanels(ctx, embedding, s.cfg.AskThreshold, s.cfg.AskPanelLimit)
	}()
	go func() {
		defer wg.Done()
		sbsEntries, sbsErr = s.retriever.SearchSBS(ctx, embedding, s.cfg.AskThreshold, s.cfg.AskSBSLimit)
	}()
	wg.Wait()

	if panelErr != nil {
		return nil, fmt.Errorf("%w: search panels: %v", ErrUpstreamUnavailable, panelErr)
	}
	if sbsErr != nil {
		return nil, fmt.Errorf("%w: search sbs: %v", ErrUpstreamUnavailable, sbsErr)
	}

	return &models.RetrievedContext{Panels: panels, SBSEntries: sbsEntries}, nil
}

func (s *AskService) finish(question, text string, rc models.RetrievedContext) *models.Answer {
	return &models.Answer{
		Question:  question,
		Text:      text,
		Citations: ExtractCitations(rc),
		Model:     s.generator.Model(),
		Timestamp: time.Now().UTC(),
	}
}

// buildUserPrompt combines the verbatim question with the assembled context
// block.
func buildUserPrompt(question string, rc models.RetrievedContext) string {
	return fmt.Sprintf(`Question: %s

%s

Please answer the question based on the above context. Include specific citations.`,
		question, BuildContext(rc))
}
