package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/core/ports"
)

var errEmbeddingCountMismatch = errors.New("embedding count does not match document count")

const (
	// maxPairScores bounds the cost of pairwise cross-encoder scoring.
	maxPairScores = 32
	// diversitySimilarityThreshold rejects candidates whose token-set
	// similarity to an already selected document reaches this value.
	diversitySimilarityThreshold = 0.8
)

// PairScorer scores a query/document pair jointly. The default scorer is
// lexical; model-backed cross-encoders plug in behind this interface.
type PairScorer interface {
	Score(ctx context.Context, query string, doc domain.RetrievedDocument) (float64, error)
}

// Reranker reorders raw search results with a second-pass relevance signal.
type Reranker struct {
	embedder ports.Embedder
	scorer   PairScorer
}

func NewReranker(embedder ports.Embedder, scorer PairScorer) *Reranker {
	if scorer == nil {
		scorer = lexicalPairScorer{}
	}
	return &Reranker{
		embedder: embedder,
		scorer:   scorer,
	}
}

// Rerank returns at most topK documents sorted by final score descending.
// Empty input returns empty without touching any scoring model. Scoring
// failures degrade to the incoming order instead of propagating.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []domain.RetrievedDocument, method domain.RerankMethod, topK int) []domain.RetrievedDocument {
	if len(docs) == 0 {
		return []domain.RetrievedDocument{}
	}
	if topK <= 0 {
		topK = len(docs)
	}

	out := make([]domain.RetrievedDocument, len(docs))
	copy(out, docs)

	switch method {
	case domain.RerankCrossEncoder:
		r.scorePairwise(ctx, query, out)
	case domain.RerankDiversity:
		return trimTopK(selectDiverse(out, topK), topK)
	default:
		r.scoreSemantic(ctx, query, out)
	}

	sortByScore(out)
	return trimTopK(out, topK)
}

// scoreSemantic re-scores by embedding cosine similarity when an embedder is
// wired, otherwise by query-token overlap blended with the original score.
func (r *Reranker) scoreSemantic(ctx context.Context, query string, docs []domain.RetrievedDocument) {
	if r.embedder != nil {
		if err := r.scoreByEmbedding(ctx, query, docs); err == nil {
			return
		} else {
			slog.Warn("semantic_rerank_fallback", "error", err)
		}
	}

	queryTokens := toTokenSet(query)
	for i := range docs {
		overlap := tokenOverlap(queryTokens, toTokenSet(docs[i].Content))
		docs[i].Score = 0.5*docs[i].Score + 0.5*overlap
	}
}

func (r *Reranker) scoreByEmbedding(ctx context.Context, query string, docs []domain.RetrievedDocument) error {
	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return domain.WrapError(domain.ErrBackendFailure, "semantic rerank", errEmbeddingCountMismatch)
	}

	for i := range docs {
		if docs[i].Content == "" {
			continue
		}
		// Cosine is in [-1,1]; shift into [0,1] to keep the score contract.
		docs[i].Score = (cosineSimilarity(queryVector, vectors[i]) + 1) / 2
	}
	return nil
}

// scorePairwise asks the pair scorer for each query/document pair, bounded
// by maxPairScores. A scorer failure keeps the original scores.
func (r *Reranker) scorePairwise(ctx context.Context, query string, docs []domain.RetrievedDocument) {
	limit := len(docs)
	if limit > maxPairScores {
		limit = maxPairScores
	}

	scores := make([]float64, limit)
	for i := 0; i < limit; i++ {
		score, err := r.scorer.Score(ctx, query, docs[i])
		if err != nil {
			slog.Warn("cross_encoder_rerank_fallback", "error", err)
			return
		}
		scores[i] = score
	}
	for i := 0; i < limit; i++ {
		docs[i].Score = scores[i]
	}
}

// selectDiverse greedily picks documents in score order, skipping candidates
// too similar to anything already selected, then backfills by score when
// fewer than topK survive. Output stays sorted by score descending.
func selectDiverse(docs []domain.RetrievedDocument, topK int) []domain.RetrievedDocument {
	sortByScore(docs)

	selected := make([]domain.RetrievedDocument, 0, topK)
	selectedTokens := make([]map[string]struct{}, 0, topK)
	skipped := make([]domain.RetrievedDocument, 0, len(docs))

	for _, candidate := range docs {
		if len(selected) >= topK {
			break
		}
		tokens := toTokenSet(candidate.Content)
		tooSimilar := false
		for _, picked := range selectedTokens {
			if jaccardSimilarity(tokens, picked) >= diversitySimilarityThreshold {
				tooSimilar = true
				break
			}
		}
		if tooSimilar {
			skipped = append(skipped, candidate)
			continue
		}
		selected = append(selected, candidate)
		selectedTokens = append(selectedTokens, tokens)
	}

	for _, candidate := range skipped {
		if len(selected) >= topK {
			break
		}
		selected = append(selected, candidate)
	}

	sortByScore(selected)
	return selected
}

// lexicalPairScorer is the default joint query+document scorer: base score
// blended with query-token overlap and a filename hit.
type lexicalPairScorer struct{}

func (lexicalPairScorer) Score(_ context.Context, query string, doc domain.RetrievedDocument) (float64, error) {
	queryTokens := toTokenSet(query)
	overlap := tokenOverlap(queryTokens, toTokenSet(doc.Content))
	filenameBoost := filenameTokenHit(queryTokens, doc.FileName)

	base := doc.Score
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	return 0.60*base + 0.30*overlap + 0.10*filenameBoost, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore sorts descending by score; ties keep the incoming order.
func sortByScore(docs []domain.RetrievedDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}

func trimTopK(docs []domain.RetrievedDocument, topK int) []domain.RetrievedDocument {
	if topK <= 0 || len(docs) <= topK {
		return docs
	}
	return docs[:topK]
}
