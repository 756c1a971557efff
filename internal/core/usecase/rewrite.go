package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/core/ports"
)

const defaultMaxVariants = 4

// QueryRewriter derives alternative search queries from one user query.
// With a PromptRunner it asks the model; without one it falls back to
// deterministic lexical heuristics. The original query is always the first
// variant, so recall can never regress below naive search.
type QueryRewriter struct {
	runner      ports.PromptRunner
	maxVariants int
}

func NewQueryRewriter(runner ports.PromptRunner, maxVariants int) *QueryRewriter {
	if maxVariants <= 0 {
		maxVariants = defaultMaxVariants
	}
	return &QueryRewriter{
		runner:      runner,
		maxVariants: maxVariants,
	}
}

// Rewrite returns 1..maxVariants queries, the original first. Rewrite
// failures never propagate: the worst outcome is the original query alone.
func (r *QueryRewriter) Rewrite(ctx context.Context, query string, strategy domain.RewriteStrategy) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{query}
	}

	variants := []string{query}
	seen := map[string]struct{}{variantKey(query): {}}
	for _, candidate := range r.generate(ctx, query, strategy) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		key := variantKey(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, candidate)
		if len(variants) >= r.maxVariants {
			break
		}
	}
	return variants
}

func (r *QueryRewriter) generate(ctx context.Context, query string, strategy domain.RewriteStrategy) []string {
	if r.runner != nil {
		raw, err := r.runner.Complete(ctx, buildRewritePrompt(query, strategy, r.maxVariants-1))
		if err != nil {
			slog.Warn("query_rewrite_model_failed", "strategy", string(strategy), "error", err)
		} else if lines := parseVariantLines(raw); len(lines) > 0 {
			return lines
		}
	}
	return heuristicVariants(query, strategy)
}

func variantKey(s string) string {
	return strings.Join(splitAlphaNumLower(s), " ")
}

func parseVariantLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func buildRewritePrompt(query string, strategy domain.RewriteStrategy, maxVariants int) string {
	var instruction string
	switch strategy {
	case domain.RewriteRefinement:
		instruction = "Rewrite the search query below as a single more specific, cleaner query with the same meaning."
	case domain.RewriteDecomposition:
		instruction = fmt.Sprintf("Split the compound question below into up to %d standalone sub-questions that can be searched independently.", maxVariants)
	case domain.RewriteMultiPerspective:
		instruction = fmt.Sprintf("Rewrite the search query below from up to %d different angles (for example technical versus conceptual) to diversify retrieval.", maxVariants)
	default:
		instruction = fmt.Sprintf("Expand the search query below into up to %d variants that add synonyms and closely related terms to broaden recall.", maxVariants)
	}

	return fmt.Sprintf(`%s
Return one query per line, plain text, no numbering, no commentary.

Query:
%s`, instruction, query)
}

// heuristicVariants is the deterministic fallback used when no model is
// wired or the model call fails.
func heuristicVariants(query string, strategy domain.RewriteStrategy) []string {
	switch strategy {
	case domain.RewriteRefinement:
		refined := refineQuery(query)
		if refined == "" || refined == query {
			return nil
		}
		return []string{refined}
	case domain.RewriteDecomposition:
		return decomposeQuery(query)
	case domain.RewriteMultiPerspective:
		keywords := strings.Join(contentTokens(query), " ")
		if keywords == "" {
			return nil
		}
		return []string{
			keywords + " technical implementation details",
			keywords + " concept overview",
		}
	default:
		keywords := contentTokens(query)
		if len(keywords) == 0 {
			return nil
		}
		out := []string{strings.Join(keywords, " ")}
		if related := relatedTermsFor(keywords); len(related) > 0 {
			out = append(out, query+" "+strings.Join(related, " "))
		}
		return out
	}
}

func refineQuery(query string) string {
	refined := strings.Join(strings.Fields(query), " ")
	lower := strings.ToLower(refined)
	for _, filler := range []string{"please ", "can you ", "could you ", "i want to know ", "tell me "} {
		if strings.HasPrefix(lower, filler) {
			refined = refined[len(filler):]
			lower = lower[len(filler):]
		}
	}
	return strings.TrimSpace(refined)
}

func decomposeQuery(query string) []string {
	parts := strings.FieldsFunc(query, func(r rune) bool {
		return r == '?' || r == ';'
	})
	if len(parts) < 2 {
		parts = strings.Split(query, " and ")
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(splitAlphaNumLower(part)) < 3 {
			continue
		}
		out = append(out, part)
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

var relatedTerms = map[string]string{
	"error":   "failure",
	"fix":     "resolve",
	"install": "setup",
	"delete":  "remove",
	"create":  "add",
	"price":   "cost",
	"refund":  "return",
	"policy":  "terms",
	"login":   "sign in",
	"update":  "upgrade",
}

func relatedTermsFor(keywords []string) []string {
	out := make([]string, 0, 2)
	for _, keyword := range keywords {
		if term, ok := relatedTerms[keyword]; ok {
			out = append(out, term)
		}
	}
	return out
}
