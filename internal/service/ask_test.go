package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/models"
)

// mockEmbedder counts calls and returns a fixed vector or error.
type mockEmbedder struct {
	mu     sync.Mutex
	calls  int
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockEmbedder) Model() string { return "mock-embed" }

// mockGenerator captures the prompts it was handed.
type mockGenerator struct {
	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
	answer     string
	err        error
}

func (m *mockGenerator) Answer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockGenerator) AnswerStream(ctx context.Context, systemPrompt, userPrompt string, onToken func(string) error) (string, error) {
	text, err := m.Answer(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	for _, tok := range strings.SplitAfter(text, " ") {
		if err := onToken(tok); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (m *mockGenerator) Model() string { return "mock-llm" }

// mockRetriever returns canned results per corpus.
type mockRetriever struct {
	mu         sync.Mutex
	panelCalls int
	sbsCalls   int
	panels     []models.Panel
	sbsEntries []models.SBSEntry
	panelErr   error
	sbsErr     error
	lastLimit  int
	lastThresh float64
}

func (m *mockRetriever) SearchPanels(ctx context.Context, emb []float32, threshold float64, limit int) ([]models.Panel, error) {
	m.mu.Lock()
	m.panelCalls++
	m.lastThresh = threshold
	m.lastLimit = limit
	m.mu.Unlock()
	return m.panels, m.panelErr
}

func (m *mockRetriever) SearchSBS(ctx context.Context, emb []float32, threshold float64, limit int) ([]models.SBSEntry, error) {
	m.mu.Lock()
	m.sbsCalls++
	m.mu.Unlock()
	return m.sbsEntries, m.sbsErr
}

func (m *mockRetriever) FulltextPanels(ctx context.Context, query string, limit int) ([]models.Panel, error) {
	return m.panels, m.panelErr
}

func (m *mockRetriever) FulltextSBS(ctx context.Context, query string, limit int) ([]models.SBSEntry, error) {
	return m.sbsEntries, m.sbsErr
}

func simPtr(v float64) *float64 { return &v }
func strPtr(s string) *string   { return &s }

func gearSecondFixtures() ([]models.Panel, []models.SBSEntry) {
	panels := []models.Panel{
		{
			ChapterNumber: 388,
			PageNumber:    12,
			PanelNumber:   3,
			Dialogue:      strPtr("Gear Second!"),
			Characters:    []string{"Monkey D. Luffy"},
			Similarity:    simPtr(0.81),
		},
		{
			ChapterNumber: 389,
			PageNumber:    5,
			PanelNumber:   2,
			Dialogue:      strPtr("This is the power I gained to protect my crew!"),
			Characters:    []string{"Monkey D. Luffy"},
			Similarity:    simPtr(0.77),
		},
	}
	sbsEntries := []models.SBSEntry{
		{
			Volume:     44,
			Question:   "How does Gear Second work?",
			Answer:     "Luffy pumps blood faster through his rubber body.",
			Similarity: simPtr(0.9),
		},
	}
	return panels, sbsEntries
}

func newAskFixture(ret *mockRetriever, emb *mockEmbedder, gen *mockGenerator) *AskService {
	return NewAskService(ret, emb, gen, config.Defaults(), nil)
}

func TestAsk_ProTierFullPipeline(t *testing.T) {
	panels, sbsEntries := gearSecondFixtures()
	ret := &mockRetriever{panels: panels, sbsEntries: sbsEntries}
	emb := &mockEmbedder{vector: []float32{0.1, 0.2}}
	gen := &mockGenerator{answer: "Gear Second pumps blood faster. (Chapter 388, Page 12)"}

	svc := newAskFixture(ret, emb, gen)
	answer, err := svc.Ask(context.Background(), "How does Gear Second work?", TierPro)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	// Exactly the retrieved items appear in the generator prompt.
	for _, want := range []string{"[Panel 1]", "[Panel 2]", "[SBS 1]", "Gear Second!", "Volume 44"} {
		if !strings.Contains(gen.lastUser, want) {
			t.Errorf("generator prompt missing %q", want)
		}
	}
	if strings.Contains(gen.lastUser, "[Panel 3]") || strings.Contains(gen.lastUser, "[SBS 2]") {
		t.Error("generator prompt contains items that were not retrieved")
	}

	if len(answer.Citations) != 3 {
		t.Fatalf("citations = %d, want 3", len(answer.Citations))
	}
	if answer.Model != "mock-llm" {
		t.Errorf("model = %q, want mock-llm", answer.Model)
	}
	if answer.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	if emb.calls != 1 || gen.calls != 1 || ret.panelCalls != 1 || ret.sbsCalls != 1 {
		t.Errorf("call counts embed/gen/panels/sbs = %d/%d/%d/%d, want 1/1/1/1",
			emb.calls, gen.calls, ret.panelCalls, ret.sbsCalls)
	}
}

func TestAsk_FreeTierRejectedBeforeAnyCall(t *testing.T) {
	ret := &mockRetriever{}
	emb := &mockEmbedder{vector: []float32{0.1}}
	gen := &mockGenerator{answer: "should never run"}

	svc := newAskFixture(ret, emb, gen)
	_, err := svc.Ask(context.Background(), "How does Gear Second work?", TierFree)

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if emb.calls != 0 || gen.calls != 0 || ret.panelCalls != 0 || ret.sbsCalls != 0 {
		t.Errorf("collaborators were called on free tier: embed=%d gen=%d panels=%d sbs=%d",
			emb.calls, gen.calls, ret.panelCalls, ret.sbsCalls)
	}
}

func TestAsk_GarbageTierRejected(t *testing.T) {
	svc := newAskFixture(&mockRetriever{}, &mockEmbedder{}, &mockGenerator{})

	for _, tier := range []string{"", "PRO", "premium", "pro "} {
		if _, err := svc.Ask(context.Background(), "q", tier); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("tier %q: error = %v, want ErrUnauthorized", tier, err)
		}
	}
}

func TestAsk_EmptyQuestionRejected(t *testing.T) {
	emb := &mockEmbedder{vector: []float32{0.1}}
	svc := newAskFixture(&mockRetriever{}, emb, &mockGenerator{})

	_, err := svc.Ask(context.Background(), "   ", TierPro)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if emb.calls != 0 {
		t.Error("embedder called for invalid input")
	}
}

func TestAsk_EmbeddingFailureAbortsPipeline(t *testing.T) {
	ret := &mockRetriever{}
	emb := &mockEmbedder{err: errors.New("connection refused")}
	gen := &mockGenerator{answer: "should never run"}

	svc := newAskFixture(ret, emb, gen)
	_, err := svc.Ask(context.Background(), "How does Gear Second work?", TierPro)

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if ret.panelCalls != 0 || ret.sbsCalls != 0 || gen.calls != 0 {
		t.Error("pipeline continued after embedding failure")
	}
}

func TestAsk_PartialRetrievalFailureIsFullFailure(t *testing.T) {
	panels, _ := gearSecondFixtures()
	ret := &mockRetriever{panels: panels, sbsErr: errors.New("index offline")}
	gen := &mockGenerator{answer: "should never run"}

	svc := newAskFixture(ret, &mockEmbedder{vector: []float32{0.1}}, gen)
	_, err := svc.Ask(context.Background(), "q", TierPro)

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if gen.calls != 0 {
		t.Error("generator called despite partial retrieval failure")
	}
}

func TestAsk_GenerationFailure(t *testing.T) {
	panels, sbsEntries := gearSecondFixtures()
	ret := &mockRetriever{panels: panels, sbsEntries: sbsEntries}
	gen := &mockGenerator{err: errors.New("model overloaded")}

	svc := newAskFixture(ret, &mockEmbedder{vector: []float32{0.1}}, gen)
	_, err := svc.Ask(context.Background(), "q", TierPro)

	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v, want ErrGenerationFailed", err)
	}
}

func TestAsk_UsesAskTuning(t *testing.T) {
	ret := &mockRetriever{}
	cfg := config.Defaults()
	svc := NewAskService(ret, &mockEmbedder{vector: []float32{0.1}}, &mockGenerator{answer: "ok"}, cfg, nil)

	if _, err := svc.Ask(context.Background(), "q", TierPro); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ret.lastThresh != cfg.AskThreshold {
		t.Errorf("threshold = %v, want %v", ret.lastThresh, cfg.AskThreshold)
	}
	if ret.lastLimit != cfg.AskPanelLimit {
		t.Errorf("panel limit = %d, want %d", ret.lastLimit, cfg.AskPanelLimit)
	}
}

func TestAskStream_DeliversTokensThenCitations(t *testing.T) {
	panels, sbsEntries := gearSecondFixtures()
	ret := &mockRetriever{panels: panels, sbsEntries: sbsEntries}
	gen := &mockGenerator{answer: "Blood pumped faster."}

	svc := newAskFixture(ret, &mockEmbedder{vector: []float32{0.1}}, gen)

	var streamed strings.Builder
	answer, err := svc.AskStream(context.Background(), "q", TierPro, func(tok string) error {
		streamed.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}
	if streamed.String() != "Blood pumped faster." {
		t.Errorf("streamed = %q, want full answer", streamed.String())
	}
	if len(answer.Citations) != 3 {
		t.Errorf("citations = %d, want 3", len(answer.Citations))
	}
}
