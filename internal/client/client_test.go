package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grandline/oracle/internal/client"
	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/models"
	"github.com/grandline/oracle/internal/ratelimit"
	"github.com/grandline/oracle/internal/server"
	"github.com/grandline/oracle/internal/service"
)

type stubAsker struct {
	answer *models.Answer
	err    error
}

func (a *stubAsker) Ask(ctx context.Context, question, tier string) (*models.Answer, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.answer, nil
}

func (a *stubAsker) AskStream(ctx context.Context, question, tier string, onToken func(string) error) (*models.Answer, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, tok := range strings.SplitAfter(a.answer.Text, " ") {
		if err := onToken(tok); err != nil {
			return nil, err
		}
	}
	return a.answer, nil
}

type stubSearcher struct {
	result *models.SearchResult
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query, method string, limit int) (*models.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testAnswer() *models.Answer {
	return &models.Answer{
		Question: "How does Gear Second work?",
		Text:     "Luffy pumps blood faster.",
		Citations: []models.Citation{
			{Type: models.CitationPanel, Chapter: 388, Page: 12, Panel: 3},
		},
		Model:     "test-llm",
		Timestamp: time.Now().UTC(),
	}
}

func newTestSetup(t *testing.T, asker server.Asker, searcher server.Searcher) (*client.Client, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(config.Defaults(), asker, searcher, ratelimit.New(), metrics.NewCollector(), logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client.New(ts.URL), ts
}

func TestAsk(t *testing.T) {
	c, _ := newTestSetup(t, &stubAsker{answer: testAnswer()}, &stubSearcher{})

	answer, err := c.Ask(context.Background(), "How does Gear Second work?", "pro")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Text != "Luffy pumps blood faster." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Citations) != 1 {
		t.Errorf("citations = %d, want 1", len(answer.Citations))
	}
}

func TestAsk_ForbiddenSurfacesServerMessage(t *testing.T) {
	askErr := fmt.Errorf("%w: tier %q", service.ErrUnauthorized, "free")
	c, _ := newTestSetup(t, &stubAsker{err: askErr}, &stubSearcher{})

	_, err := c.Ask(context.Background(), "q", "free")
	if err == nil {
		t.Fatal("expected error for free tier")
	}
	if !strings.Contains(err.Error(), "Pro subscription") {
		t.Errorf("error should carry the server message, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	searcher := &stubSearcher{result: &models.SearchResult{
		Panels:     []models.Panel{{ChapterNumber: 430}},
		SBSEntries: []models.SBSEntry{{Volume: 44}},
	}}
	c, _ := newTestSetup(t, &stubAsker{}, searcher)

	result, err := c.Search(context.Background(), "going merry", "semantic", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.PanelCount != 1 || result.SBSCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", result.PanelCount, result.SBSCount)
	}
	if result.Panels[0].ChapterNumber != 430 {
		t.Errorf("chapter = %d, want 430", result.Panels[0].ChapterNumber)
	}
}

func TestStatsAndHealth(t *testing.T) {
	c, _ := newTestSetup(t, &stubAsker{}, &stubSearcher{})

	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	snap, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime = %f, want >= 0", snap.UptimeSeconds)
	}
}

func TestAskStream(t *testing.T) {
	c, _ := newTestSetup(t, &stubAsker{answer: testAnswer()}, &stubSearcher{})

	var streamed strings.Builder
	answer, err := c.AskStream(context.Background(), "q", "pro", func(token string) error {
		streamed.WriteString(token)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream failed: %v", err)
	}
	if streamed.String() != "Luffy pumps blood faster." {
		t.Errorf("streamed = %q", streamed.String())
	}
	if answer.Text != streamed.String() {
		t.Errorf("answer text %q != streamed %q", answer.Text, streamed.String())
	}
	if len(answer.Citations) != 1 {
		t.Errorf("citations = %d, want 1", len(answer.Citations))
	}
}

func TestAskStream_ErrorFrame(t *testing.T) {
	askErr := fmt.Errorf("%w: backend down", service.ErrUpstreamUnavailable)
	c, _ := newTestSetup(t, &stubAsker{err: askErr}, &stubSearcher{})

	_, err := c.AskStream(context.Background(), "q", "pro", func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error frame")
	}
	if !strings.Contains(err.Error(), "stream error") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCallbackErrorAborts(t *testing.T) {
	c, _ := newTestSetup(t, &stubAsker{answer: testAnswer()}, &stubSearcher{})

	abort := errors.New("stop")
	_, err := c.AskStream(context.Background(), "q", "pro", func(string) error { return abort })
	if !errors.Is(err, abort) {
		t.Errorf("error = %v, want callback error", err)
	}
}
