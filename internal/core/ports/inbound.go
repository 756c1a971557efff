package ports

import (
	"context"

	"github.com/akoval/chatrag/internal/core/domain"
)

// RetrievalService is the inbound contract consumed by the chat route.
// Retrieve never fails: any internal error degrades to an empty list.
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) []domain.RetrievedDocument
	AugmentedPrompt(ctx context.Context, baseSystem, query string, budgetTokens int, opts domain.RetrievalOptions) domain.AugmentedPrompt
}
