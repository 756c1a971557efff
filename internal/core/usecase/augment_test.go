package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akoval/chatrag/internal/core/domain"
)

func TestBuildAugmentedSystemPromptWithoutDocuments(t *testing.T) {
	got := BuildAugmentedSystemPrompt("Base", nil, 0)
	want := "Base\n\n" + contextInstructionHeader + "\n\n[Retrieved Context]\n\n[Sources]"
	if got != want {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestBuildAugmentedSystemPromptWithoutBase(t *testing.T) {
	got := BuildAugmentedSystemPrompt("", nil, 0)
	want := contextInstructionHeader + "\n\n[Retrieved Context]\n\n[Sources]"
	if got != want {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestBuildAugmentedSystemPromptPreservesDocumentOrder(t *testing.T) {
	docs := []domain.RetrievedDocument{
		doc("first", 0.9, "first content block"),
		doc("second", 0.5, "second content block"),
		doc("third", 0.2, "third content block"),
	}
	prompt := BuildAugmentedSystemPrompt("Base", docs, 0)

	positions := make([]int, len(docs))
	for i, d := range docs {
		positions[i] = strings.Index(prompt, d.Content)
		if positions[i] < 0 {
			t.Fatalf("document %s missing from prompt", d.FileID)
		}
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] < positions[i-1] {
			t.Fatalf("documents out of order in prompt:\n%s", prompt)
		}
	}

	if !strings.Contains(prompt, "Source: first.md (90.0%)") {
		t.Fatalf("expected score annotation in prompt:\n%s", prompt)
	}
}

func TestBuildAugmentedSystemPromptSkipsAfterBudgetExhaustion(t *testing.T) {
	docs := []domain.RetrievedDocument{
		doc("one", 0.9, strings.Repeat("a", 2000)),
		doc("two", 0.8, strings.Repeat("b", 2000)),
		doc("three", 0.7, strings.Repeat("c", 2000)),
		doc("four", 0.6, strings.Repeat("d", 2000)),
	}
	prompt := BuildAugmentedSystemPrompt("Base", docs, 200)

	// 200 tokens: doc one takes 400 chars (100 tokens), doc two 200 chars
	// (50 tokens), doc three 200 chars (50 tokens), doc four is skipped.
	if strings.Contains(prompt, "dddd") {
		t.Fatalf("expected fourth document content skipped:\n%s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("a", 400)) {
		t.Fatal("expected first document snippet at half the budget")
	}
	if strings.Contains(prompt, strings.Repeat("a", 401)) {
		t.Fatal("expected first document snippet clipped to allocation")
	}

	// Every searched document stays listed even when its content did not fit.
	for _, name := range []string{"- one.md", "- two.md", "- three.md", "- four.md"} {
		if !strings.Contains(prompt, name) {
			t.Fatalf("expected %q in sources:\n%s", name, prompt)
		}
	}
}

func TestBuildAugmentedSystemPromptAppliesBudgetFloor(t *testing.T) {
	docs := []domain.RetrievedDocument{
		doc("one", 0.9, strings.Repeat("x", 1000)),
	}
	prompt := BuildAugmentedSystemPrompt("Base", docs, 50)

	// A 50-token request is floored to 200 tokens, half of which is 400 chars.
	if !strings.Contains(prompt, strings.Repeat("x", 400)) {
		t.Fatal("expected snippet sized from the floored budget")
	}
	if strings.Contains(prompt, strings.Repeat("x", 401)) {
		t.Fatal("expected snippet clipped at the floored allocation")
	}
}

func TestSourceLines(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{FileName: "guide.md", URL: "https://files.example.com/guide"},
		{FileName: "notes.md"},
	}
	lines := SourceLines(docs)

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "- guide.md (https://files.example.com/guide)" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if lines[1] != "- notes.md" {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestTruncateCharsDoesNotSplitRunes(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := truncateChars(s, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != "é" {
		t.Fatalf("expected single rune kept, got %q", got)
	}
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tc := range cases {
		if got := estimateTokens(tc.in); got != tc.want {
			t.Fatalf("estimateTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
