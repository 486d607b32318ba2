package memory

import (
	"context"
	"fmt"

	"github.com/easeaico/serenia/internal/types"
)

const (
	defaultTopK      = 3
	defaultThreshold = 0.75
)

// MessageSearcher finds a user's messages near an embedding.
type MessageSearcher interface {
	SearchSimilarMessages(ctx context.Context, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMessage, error)
}

// Retriever recalls past user messages related to a new one.
type Retriever struct {
	embedder  Embedder
	searcher  MessageSearcher
	topK      int
	threshold float64
}

// NewRetriever creates a Retriever. Non-positive topK or threshold select defaults.
func NewRetriever(embedder Embedder, searcher MessageSearcher, topK int, threshold float64) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		topK:      topK,
		threshold: threshold,
	}
}

// Recall embeds text and returns the most similar earlier messages of userID
// together with the embedding, which callers persist with the new message.
func (r *Retriever) Recall(ctx context.Context, userID, text string) ([]types.RetrievedMessage, []float32, error) {
	if text == "" {
		return nil, nil, nil
	}
	if r.embedder == nil || r.searcher == nil {
		return nil, nil, fmt.Errorf("retriever not properly configured")
	}

	vec, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	if len(vec) == 0 {
		return nil, nil, nil
	}

	recalled, err := r.searcher.SearchSimilarMessages(ctx, userID, vec, r.topK, r.threshold)
	if err != nil {
		return nil, vec, fmt.Errorf("failed to search similar messages: %w", err)
	}
	return recalled, vec, nil
}
