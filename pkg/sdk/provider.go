package pdfchat

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Optional: if the provided Embedder also implements BatchEmbedder,
// ingestion uses it for much better throughput.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// ChatMessage is a prompt message sent to a Completer.
// Role is one of "system", "user", "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

// Completer generates answers from a prompt.
type Completer interface {
	Complete(ctx context.Context, msgs []ChatMessage) (string, error)
	Stream(ctx context.Context, msgs []ChatMessage) (FragmentStream, error)
}

// FragmentStream yields generated text incrementally.
// Recv returns io.EOF after the last fragment. Close must be safe to call twice.
type FragmentStream interface {
	Recv() (string, error)
	Close()
}

// embedderAdapter wraps a public Embedder to satisfy the internal contracts.
type embedderAdapter struct {
	inner Embedder
}

var (
	_ domain.Embedder      = (*embedderAdapter)(nil)
	_ domain.BatchEmbedder = (*embedderAdapter)(nil)
)

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the native batch call when the inner embedder has one.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter wraps a public Completer to satisfy domchat.Completer.
type completerAdapter struct {
	inner Completer
}

var _ domchat.Completer = (*completerAdapter)(nil)

func (a *completerAdapter) Complete(ctx context.Context, msgs []domchat.Message) (string, error) {
	return a.inner.Complete(ctx, toChatMessages(msgs))
}

func (a *completerAdapter) Stream(ctx context.Context, msgs []domchat.Message) (domchat.FragmentStream, error) {
	s, err := a.inner.Stream(ctx, toChatMessages(msgs))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func toChatMessages(msgs []domchat.Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
