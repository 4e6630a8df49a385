package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchResult BatchEmbeddingResult
	batchErr    error
	batchTexts  []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batchResult, s.batchErr
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}
	e := NewInstructionEmbedder(inner, "query: ")

	if _, err := e.Embed(context.Background(), "golang"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 1 || inner.got[0] != "query: golang" {
		t.Errorf("expected prefixed text, got %v", inner.got)
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	inner := &stubEmbedder{err: ErrEmbeddingFailure}
	e := NewInstructionEmbedder(inner, "query: ")

	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestEmbedBatch_Fallback(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}, PromptTokens: 2, TotalTokens: 3}}

	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 6 || res.PromptTokens != 4 {
		t.Errorf("expected summed usage 4/6, got %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedBatch_Native(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{
		Embeddings: [][]float32{{1}, {2}},
	}}

	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batchTexts) != 2 || len(inner.got) != 0 {
		t.Errorf("expected native batch call only, batch=%v single=%v", inner.batchTexts, inner.got)
	}
	if res.Embeddings[1][0] != 2 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}

	_, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestEmbedBatch_FallbackError(t *testing.T) {
	inner := &stubEmbedder{err: errors.New("boom")}
	if _, err := EmbedBatch(context.Background(), inner, []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInstructionEmbedder_BatchEmbed(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}}}
	e := NewInstructionEmbedder(inner, "passage: ")

	if _, err := e.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchTexts[0] != "passage: a" || inner.batchTexts[1] != "passage: b" {
		t.Errorf("expected prefixed batch texts, got %v", inner.batchTexts)
	}
}

func TestEmbeddingUsage(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	if u.Used() {
		t.Fatal("fresh usage should not be used")
	}
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(0)
	if !u.Used() || u.TotalTokens() != 7 {
		t.Errorf("expected used with 7 tokens, got used=%v tokens=%d", u.Used(), u.TotalTokens())
	}

	var none *EmbeddingUsage
	none.AddTokens(3) // nil-safe
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil usage without collector")
	}
}
