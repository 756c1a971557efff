package ports

import (
	"context"

	"github.com/akoval/chatrag/internal/core/domain"
)

// SearchBackend is the outbound contract of the vector-store service.
type SearchBackend interface {
	ListStores(ctx context.Context) ([]domain.VectorStoreInfo, error)
	Query(ctx context.Context, storeID, query string, filters map[string]any, limit int) ([]domain.RawSearchResult, error)
}

// Embedder builds vectors for query and document text. Used by the
// semantic rerank method.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PromptRunner generates free-form text from a prompt. It backs the
// model-assisted query rewrite strategies.
type PromptRunner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
