package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/contract"
	"kisaanbot-be/pkg/embedding"
	"kisaanbot-be/pkg/rag"
)

type stubChunkRepo struct {
	tags   []string
	chunks []*contract.ScoredChunk
}

func (s *stubChunkRepo) Create(ctx context.Context, document, cropTag, sourceFile string, chunkIndex int, embedding []float32) error {
	return nil
}
func (s *stubChunkRepo) CreateBulk(ctx context.Context, chunks []*contract.ChunkInsert) error {
	return nil
}
func (s *stubChunkRepo) DeleteBySourceFile(ctx context.Context, sourceFile string) error { return nil }
func (s *stubChunkRepo) CountBySourceFile(ctx context.Context, sourceFile string) (int64, error) {
	return 0, nil
}
func (s *stubChunkRepo) SearchByTag(ctx context.Context, embedding []float32, cropTag string, limit int) ([]*contract.ScoredChunk, error) {
	return s.chunks, nil
}
func (s *stubChunkRepo) DistinctCropTags(ctx context.Context) ([]string, error) {
	return s.tags, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.5, 0.5}},
	}, nil
}

type stubDecomposer struct{ lines []string }

func (s stubDecomposer) Decompose(ctx context.Context, crop, aggregated string) []string {
	return s.lines
}

func TestDirectAdviceRunsGenerationAuditAndFormat(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		"किसान भाई, यह रहा उत्तर। यूरिया 50 किलो डालें।",
		"किसान भाई, यह रहा उत्तर। यूरिया 45 किलो डालें।",
		"किसान भाई, आपके सवालों का सटीक समाधान यहाँ है: ✅ यूरिया 45 किलो डालें।",
	}}
	orch := newTestOrchestrator(t)
	svc := NewAdviceService(fake, nil, stubDecomposer{}, orch, logger.NewNoopLogger())

	art, err := svc.GenerateAdvice(context.Background(), "Dragon Fruit", false, "Dragon Fruit - Urea dosage?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(art.FinalText, "सटीक समाधान") {
		t.Fatalf("format audit output not used: %q", art.FinalText)
	}
	if len(art.Responses) != 3 {
		t.Fatalf("expected 3 intermediate responses, got %d", len(art.Responses))
	}
	if len(art.DecomposedQueries) != 0 || len(art.RagResults) != 0 {
		t.Fatal("direct path should not decompose or retrieve")
	}
}

func TestDirectAdviceKeepsDraftWhenAuditFails(t *testing.T) {
	fake := &fakeLLM{
		responses: []string{"draft advice", "", "formatted advice"},
		errs:      []error{nil, errors.New("audit down"), nil},
	}
	svc := NewAdviceService(fake, nil, stubDecomposer{}, newTestOrchestrator(t), logger.NewNoopLogger())

	art, err := svc.GenerateAdvice(context.Background(), "Mango", false, "Mango - Pruning time?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.FinalText != "formatted advice" {
		t.Fatalf("unexpected final text: %q", art.FinalText)
	}
	if art.Responses[0] != "draft advice" {
		t.Fatalf("draft not preserved: %v", art.Responses)
	}
}

func TestDirectAdviceErrorsWhenGenerationFails(t *testing.T) {
	fake := &fakeLLM{errs: []error{errors.New("down"), errors.New("down")}}
	svc := NewAdviceService(fake, nil, stubDecomposer{}, newTestOrchestrator(t), logger.NewNoopLogger())

	if _, err := svc.GenerateAdvice(context.Background(), "Mango", false, "Mango - ?"); err == nil {
		t.Fatal("expected error when generation fails on every attempt")
	}
}

func TestGroundedAdviceUsesEvidence(t *testing.T) {
	repo := &stubChunkRepo{
		tags: []string{"wheat"},
		chunks: []*contract.ScoredChunk{
			{Document: "Apply 120 kg N per hectare in split doses.", CropTag: "wheat", Distance: 0.12},
		},
	}
	orch := newTestOrchestrator(t)
	retriever := rag.NewRetriever(repo, stubEmbedder{}, orch, logger.NewNoopLogger(), 3)

	fake := &fakeLLM{responses: []string{
		"किसान भाई, यह रहा आपके सवालों का उत्तर: नाइट्रोजन 120 किलो प्रति हेक्टेयर।",
		"किसान भाई, आपके सवालों का सटीक समाधान यहाँ है: ✅ नाइट्रोजन 120 किलो।",
	}}
	svc := NewAdviceService(fake, retriever, stubDecomposer{lines: []string{"Wheat | Nitrogen dosage for wheat?"}}, orch, logger.NewNoopLogger())

	art, err := svc.GenerateAdvice(context.Background(), "Wheat", true, "Wheat - Nitrogen dosage?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(art.RagResults) != 1 {
		t.Fatalf("expected 1 evidence record, got %d", len(art.RagResults))
	}
	if art.RagResults[0].Status != entity.EvidenceFound {
		t.Fatalf("expected FOUND evidence, got %s", art.RagResults[0].Status)
	}
	if !strings.Contains(art.FinalText, "सटीक समाधान") {
		t.Fatalf("unexpected final text: %q", art.FinalText)
	}
	// The synthesis prompt must carry the retrieved evidence.
	if !strings.Contains(fake.prompts[0], "120 kg N per hectare") {
		t.Fatalf("evidence missing from synthesis prompt")
	}
}

func TestGroundedAdviceDegradesToAggregateOnSynthesisFailure(t *testing.T) {
	repo := &stubChunkRepo{tags: []string{"wheat"}}
	orch := newTestOrchestrator(t)
	retriever := rag.NewRetriever(repo, stubEmbedder{}, orch, logger.NewNoopLogger(), 3)

	// Two synthesis attempts fail, then the format audit fails too.
	fake := &fakeLLM{errs: []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
	}}
	svc := NewAdviceService(fake, retriever, stubDecomposer{lines: []string{"Wheat | Sowing window?"}}, orch, logger.NewNoopLogger())

	art, err := svc.GenerateAdvice(context.Background(), "Wheat", true, "Wheat - Sowing window?")
	if err != nil {
		t.Fatalf("grounded path should degrade, not fail: %v", err)
	}
	if art.FinalText != "Wheat - Sowing window?" {
		t.Fatalf("expected aggregated query fallback, got %q", art.FinalText)
	}
}

func TestToRagQueriesParsesCropLockedLines(t *testing.T) {
	queries := toRagQueries("Wheat", []string{
		"Wheat | Urea dosage?",
		"Rice | Transplanting depth?",
		"no separator here",
		"Wheat |   ",
	})
	if len(queries) != 3 {
		t.Fatalf("expected 3 queries, got %d: %v", len(queries), queries)
	}
	if queries[1].Crop != "Rice" || queries[1].Text != "Transplanting depth?" {
		t.Fatalf("unexpected parse: %+v", queries[1])
	}
	if queries[2].Crop != "Wheat" || queries[2].Text != "no separator here" {
		t.Fatalf("line without separator should keep session crop: %+v", queries[2])
	}
}
