package domain

import (
	"fmt"
	"strings"
)

// RewriteStrategy selects how a raw user query is turned into search variants.
type RewriteStrategy string

const (
	RewriteExpansion        RewriteStrategy = "expansion"
	RewriteRefinement       RewriteStrategy = "refinement"
	RewriteDecomposition    RewriteStrategy = "decomposition"
	RewriteMultiPerspective RewriteStrategy = "multi_perspective"
)

func ParseRewriteStrategy(raw string) RewriteStrategy {
	switch RewriteStrategy(strings.ToLower(strings.TrimSpace(raw))) {
	case RewriteRefinement:
		return RewriteRefinement
	case RewriteDecomposition:
		return RewriteDecomposition
	case RewriteMultiPerspective:
		return RewriteMultiPerspective
	default:
		return RewriteExpansion
	}
}

// RerankMethod selects the second-pass scoring strategy.
type RerankMethod string

const (
	RerankSemantic     RerankMethod = "semantic"
	RerankCrossEncoder RerankMethod = "cross_encoder"
	RerankDiversity    RerankMethod = "diversity"
)

func ParseRerankMethod(raw string) RerankMethod {
	switch RerankMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case RerankCrossEncoder:
		return RerankCrossEncoder
	case RerankDiversity:
		return RerankDiversity
	default:
		return RerankSemantic
	}
}

// RetrievedDocument is a normalized, ranked text chunk ready for prompt
// assembly. Score is in [0,1], higher is better.
type RetrievedDocument struct {
	FileID   string         `json:"file_id"`
	FileName string         `json:"file_name"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	URL      string         `json:"url,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RawSearchResult is the loosely typed shape returned by the search backend.
// Every field may be absent; Normalize is the only place fallbacks happen.
type RawSearchResult struct {
	FileID     string
	ID         string
	FileName   string
	Score      float64
	Content    string
	URL        string
	Attributes map[string]any
}

// Normalize coalesces optional backend fields into a RetrievedDocument.
// Identity falls back through file_id -> id -> positional placeholder, the
// display name through filename -> title attribute -> "Document <n>".
func (r RawSearchResult) Normalize(position int) RetrievedDocument {
	fileID := strings.TrimSpace(r.FileID)
	if fileID == "" {
		fileID = strings.TrimSpace(r.ID)
	}
	if fileID == "" {
		fileID = fmt.Sprintf("document-%d", position+1)
	}

	name := strings.TrimSpace(r.FileName)
	if name == "" {
		if title, ok := r.Attributes["title"].(string); ok {
			name = strings.TrimSpace(title)
		}
	}
	if name == "" {
		name = fmt.Sprintf("Document %d", position+1)
	}

	score := r.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return RetrievedDocument{
		FileID:   fileID,
		FileName: name,
		Score:    score,
		Content:  r.Content,
		URL:      r.URL,
		Metadata: r.Attributes,
	}
}

// PipelineConfig is an immutable per-invocation configuration of the
// retrieval pipeline.
type PipelineConfig struct {
	QueryRewriting  bool
	RewriteStrategy RewriteStrategy
	Reranking       bool
	RerankMethod    RerankMethod
	TopK            int
	MetadataFilters map[string]any
}

// RetrievalOptions is the inbound option set accepted by the public
// retrieval boundary. Zero values select the configured defaults; rewriting
// runs only when a strategy is given.
type RetrievalOptions struct {
	TopK            int
	VectorStoreID   string
	FileTypes       []string
	RewriteStrategy RewriteStrategy
	Reranking       bool
	RerankMethod    RerankMethod
}

// VectorStoreInfo describes one store listed by the search backend.
type VectorStoreInfo struct {
	ID        string
	Name      string
	CreatedAt int64
}

// AugmentedPrompt is the assembled system prompt plus the documents that
// were searched, whether or not their content fit the token budget.
type AugmentedPrompt struct {
	Prompt  string              `json:"prompt"`
	Sources []RetrievedDocument `json:"sources"`
}
