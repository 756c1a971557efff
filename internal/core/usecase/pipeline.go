package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/core/ports"
)

const (
	defaultTopK             = 5
	maxCandidatesPerVariant = 20
	defaultSearchTimeout    = 8 * time.Second
)

// RetrievalPipeline composes rewrite -> per-variant search -> merge ->
// rerank into one best-effort retrieval pass.
type RetrievalPipeline struct {
	backend       ports.SearchBackend
	rewriter      *QueryRewriter
	reranker      *Reranker
	searchTimeout time.Duration
}

func NewRetrievalPipeline(backend ports.SearchBackend, rewriter *QueryRewriter, reranker *Reranker, searchTimeout time.Duration) *RetrievalPipeline {
	if searchTimeout <= 0 {
		searchTimeout = defaultSearchTimeout
	}
	return &RetrievalPipeline{
		backend:       backend,
		rewriter:      rewriter,
		reranker:      reranker,
		searchTimeout: searchTimeout,
	}
}

// EnhancedRetrieval returns at most cfg.TopK documents sorted by score
// descending. Individual variant searches fail soft: a failed or timed-out
// variant contributes an empty result. Only caller cancellation surfaces as
// an error; everything else degrades to the best available partial result.
func (p *RetrievalPipeline) EnhancedRetrieval(ctx context.Context, query, storeID string, cfg domain.PipelineConfig) ([]domain.RetrievedDocument, error) {
	if p.backend == nil {
		return nil, domain.WrapError(domain.ErrNoVectorStore, "enhanced retrieval", errBackendNotConfigured)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	variants := []string{query}
	if cfg.QueryRewriting && p.rewriter != nil {
		if rewritten := p.rewriter.Rewrite(ctx, query, cfg.RewriteStrategy); len(rewritten) > 0 {
			variants = rewritten
		}
	}

	// Each variant requests more candidates than the final cut so the
	// reranker has enough material, capped to bound backend cost.
	perVariantLimit := topK * 2
	if perVariantLimit > maxCandidatesPerVariant {
		perVariantLimit = maxCandidatesPerVariant
	}
	if perVariantLimit < topK {
		perVariantLimit = topK
	}

	variantResults := make([][]domain.RawSearchResult, len(variants))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		group.Go(func() error {
			searchCtx, cancel := context.WithTimeout(groupCtx, p.searchTimeout)
			defer cancel()

			raw, err := p.backend.Query(searchCtx, storeID, variant, cfg.MetadataFilters, perVariantLimit)
			if err != nil {
				slog.Warn("variant_search_failed",
					"store_id", storeID,
					"variant_index", i,
					"error", err,
				)
				return nil
			}
			variantResults[i] = raw
			return nil
		})
	}
	_ = group.Wait()

	// Cancelled retrieval never surfaces partial data.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := mergeVariantResults(variantResults)
	if len(merged) == 0 {
		return []domain.RetrievedDocument{}, nil
	}

	if cfg.Reranking && p.reranker != nil {
		return p.reranker.Rerank(ctx, query, merged, cfg.RerankMethod, topK), nil
	}

	sortByScore(merged)
	return trimTopK(merged, topK), nil
}

// mergeVariantResults normalizes and deduplicates results across variants.
// Duplicates (same file and content) keep the highest-scoring occurrence at
// the position of the first one, so tie order stays deterministic.
func mergeVariantResults(variantResults [][]domain.RawSearchResult) []domain.RetrievedDocument {
	index := make(map[string]int)
	out := make([]domain.RetrievedDocument, 0)

	position := 0
	for _, results := range variantResults {
		for _, raw := range results {
			doc := raw.Normalize(position)
			position++

			key := dedupKey(doc)
			if at, seen := index[key]; seen {
				if doc.Score > out[at].Score {
					out[at] = doc
				}
				continue
			}
			index[key] = len(out)
			out = append(out, doc)
		}
	}
	return out
}

func dedupKey(doc domain.RetrievedDocument) string {
	h := fnv.New64a()
	h.Write([]byte(doc.Content))
	return fmt.Sprintf("%s:%x", doc.FileID, h.Sum64())
}

var (
	errBackendNotConfigured = errors.New("search backend is not configured")
	errNoStoresListed       = errors.New("backend listed no vector stores")
)
