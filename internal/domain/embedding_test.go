package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result    EmbeddingResult
	err       error
	got       string
	available bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func (s *stubEmbedder) Available() bool { return s.available }

type plainEmbedder struct{}

func (plainEmbedder) Embed(context.Context, string) (EmbeddingResult, error) {
	return EmbeddingResult{}, nil
}

func TestInstructionEmbedder_Prefix(t *testing.T) {
	tests := []struct {
		instruction string
		text        string
		want        string
	}{
		{"search_query: ", "react hooks", "search_query: react hooks"},
		{"search_query:", "react hooks", "search_query: react hooks"},
		{"Represent this query for retrieval:\n", "  chess  ", "Represent this query for retrieval:\nchess"},
		{"", "plain", "plain"},
	}
	for _, tt := range tests {
		inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
		result, err := NewInstructionEmbedder(inner, tt.instruction).Embed(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inner.got != tt.want {
			t.Errorf("instruction %q: embedded %q, want %q", tt.instruction, inner.got, tt.want)
		}
		if len(result.Embedding) != 3 {
			t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
		}
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "x: ")

	if _, err := emb.Embed(context.Background(), "hello"); !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestIsAvailable(t *testing.T) {
	if IsAvailable(nil) {
		t.Error("nil must be unavailable")
	}
	if !IsAvailable(plainEmbedder{}) {
		t.Error("embedder without Available() counts as available")
	}
	if IsAvailable(&stubEmbedder{}) {
		t.Error("expected Available() to be consulted")
	}
	if !IsAvailable(NewInstructionEmbedder(&stubEmbedder{available: true}, "x: ")) {
		t.Error("instruction embedder must forward availability")
	}
}

func TestItemError_Unwrap(t *testing.T) {
	err := NewItemError("user_1", "user", ErrStore)
	if !errors.Is(err, ErrStore) {
		t.Error("expected ItemError to unwrap to ErrStore")
	}
	if err.Error() != "index user user_1: store error" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
