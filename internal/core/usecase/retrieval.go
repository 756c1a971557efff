package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/core/ports"
)

const defaultStoreCacheTTL = 5 * time.Minute

// RetrievalUseCase is the public retrieval boundary consumed by the chat
// route. It resolves the target vector store, runs the pipeline, and
// converts every internal failure into an empty document list.
type RetrievalUseCase struct {
	backend        ports.SearchBackend
	pipeline       *RetrievalPipeline
	defaultStoreID string
	budgetTokens   int

	cacheTTL      time.Duration
	mu            sync.Mutex
	cachedStoreID string
	cachedAt      time.Time
}

func NewRetrievalUseCase(backend ports.SearchBackend, pipeline *RetrievalPipeline, defaultStoreID string, budgetTokens int, storeCacheTTL time.Duration) *RetrievalUseCase {
	if storeCacheTTL <= 0 {
		storeCacheTTL = defaultStoreCacheTTL
	}
	return &RetrievalUseCase{
		backend:        backend,
		pipeline:       pipeline,
		defaultStoreID: strings.TrimSpace(defaultStoreID),
		budgetTokens:   budgetTokens,
		cacheTTL:       storeCacheTTL,
	}
}

// Retrieve never fails. Missing configuration and backend errors are logged
// and degrade to an empty list; the chat turn proceeds without context.
func (uc *RetrievalUseCase) Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) []domain.RetrievedDocument {
	docs, err := uc.retrieve(ctx, query, opts)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			slog.Info("retrieval_cancelled", "error", err)
		case domain.IsKind(err, domain.ErrNoVectorStore):
			slog.Info("retrieval_skipped", "reason", "no vector store", "error", err)
		default:
			slog.Error("retrieval_failed", "error", err)
		}
		return []domain.RetrievedDocument{}
	}
	if docs == nil {
		docs = []domain.RetrievedDocument{}
	}
	return docs
}

// AugmentedPrompt retrieves context for the query and assembles the final
// augmented system prompt. budgetTokens <= 0 selects the configured default.
func (uc *RetrievalUseCase) AugmentedPrompt(ctx context.Context, baseSystem, query string, budgetTokens int, opts domain.RetrievalOptions) domain.AugmentedPrompt {
	if budgetTokens <= 0 {
		budgetTokens = uc.budgetTokens
	}
	docs := uc.Retrieve(ctx, query, opts)
	return domain.AugmentedPrompt{
		Prompt:  BuildAugmentedSystemPrompt(baseSystem, docs, budgetTokens),
		Sources: docs,
	}
}

func (uc *RetrievalUseCase) retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievedDocument{}, nil
	}
	if uc.backend == nil {
		return nil, domain.WrapError(domain.ErrNoVectorStore, "retrieve", errBackendNotConfigured)
	}

	storeID := strings.TrimSpace(opts.VectorStoreID)
	if storeID == "" {
		storeID = uc.defaultStoreID
	}
	if storeID == "" {
		resolved, err := uc.resolveStoreID(ctx)
		if err != nil {
			if domain.IsKind(err, domain.ErrNoVectorStore) {
				// Nothing indexed yet is a normal empty-result condition.
				slog.Info("retrieval_skipped", "reason", "no store configured or listed")
				return []domain.RetrievedDocument{}, nil
			}
			return nil, err
		}
		storeID = resolved
	}

	return uc.pipeline.EnhancedRetrieval(ctx, query, storeID, pipelineConfigFromOptions(opts))
}

// resolveStoreID picks the most recently listed store, with a short-lived
// cache. Re-resolving on every call would be correct, just wasteful.
func (uc *RetrievalUseCase) resolveStoreID(ctx context.Context) (string, error) {
	uc.mu.Lock()
	if uc.cachedStoreID != "" && time.Since(uc.cachedAt) < uc.cacheTTL {
		id := uc.cachedStoreID
		uc.mu.Unlock()
		return id, nil
	}
	uc.mu.Unlock()

	stores, err := uc.backend.ListStores(ctx)
	if err != nil {
		return "", domain.WrapError(domain.ErrBackendFailure, "list stores", err)
	}
	if len(stores) == 0 {
		return "", domain.WrapError(domain.ErrNoVectorStore, "list stores", errNoStoresListed)
	}

	id := stores[0].ID
	uc.mu.Lock()
	uc.cachedStoreID = id
	uc.cachedAt = time.Now()
	uc.mu.Unlock()
	return id, nil
}

func pipelineConfigFromOptions(opts domain.RetrievalOptions) domain.PipelineConfig {
	var filters map[string]any
	if len(opts.FileTypes) > 0 {
		filters = map[string]any{"file_type": opts.FileTypes}
	}

	method := opts.RerankMethod
	if method == "" {
		method = domain.RerankSemantic
	}

	return domain.PipelineConfig{
		QueryRewriting:  opts.RewriteStrategy != "",
		RewriteStrategy: opts.RewriteStrategy,
		Reranking:       opts.Reranking,
		RerankMethod:    method,
		TopK:            opts.TopK,
		MetadataFilters: filters,
	}
}
