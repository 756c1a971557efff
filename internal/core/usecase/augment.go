package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akoval/chatrag/internal/core/domain"
)

const (
	// DefaultContextTokenBudget caps how much retrieved text is spliced
	// into the system prompt when the caller passes no budget.
	DefaultContextTokenBudget = 2048
	// MinContextTokenBudget is the floor applied to any requested budget.
	MinContextTokenBudget = 200

	// charsPerToken is a heuristic, not a tokenizer: 1 token ~ 4 characters.
	charsPerToken = 4
	// minSnippetChars keeps per-document snippets from degenerating.
	minSnippetChars = 200

	contextInstructionHeader = "Use the following retrieved context to answer the user's question. If the context does not contain relevant information, say so instead of guessing."
)

// BuildAugmentedSystemPrompt splices budget-clipped document snippets into
// the base system prompt. Documents are consumed in the given (score) order;
// each gets at most half of the remaining budget, with a snippet floor, and
// once the budget is exhausted later documents are skipped entirely. The
// [Sources] list still covers every input document.
func BuildAugmentedSystemPrompt(baseSystem string, docs []domain.RetrievedDocument, budgetTokens int) string {
	remaining := budgetTokens
	if remaining <= 0 {
		remaining = DefaultContextTokenBudget
	}
	if remaining < MinContextTokenBudget {
		remaining = MinContextTokenBudget
	}

	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		if remaining <= 0 {
			break
		}
		allocChars := remaining / 2 * charsPerToken
		if allocChars < minSnippetChars {
			allocChars = minSnippetChars
		}
		snippet := truncateChars(doc.Content, allocChars)
		remaining -= estimateTokens(snippet)
		blocks = append(blocks, fmt.Sprintf("Source: %s (%.1f%%)\n%s", doc.FileName, doc.Score*100, snippet))
	}

	sections := []string{
		baseSystem,
		contextInstructionHeader,
		section("[Retrieved Context]", strings.Join(blocks, "\n\n")),
		section("[Sources]", strings.Join(SourceLines(docs), "\n")),
	}
	return joinNonEmpty(sections, "\n\n")
}

// SourceLines lists every searched document, with a deep link when known.
func SourceLines(docs []domain.RetrievedDocument) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.URL != "" {
			out = append(out, fmt.Sprintf("- %s (%s)", doc.FileName, doc.URL))
			continue
		}
		out = append(out, "- "+doc.FileName)
	}
	return out
}

func estimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// truncateChars slices to at most limit bytes without splitting a rune.
func truncateChars(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func section(header, body string) string {
	if body == "" {
		return header
	}
	return header + "\n" + body
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, sep)
}
