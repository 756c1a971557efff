package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akoval/chatrag/internal/core/domain"
)

func newTestUseCase(backend *fakeBackend, defaultStoreID string) *RetrievalUseCase {
	if backend == nil {
		pipeline := NewRetrievalPipeline(nil, NewQueryRewriter(nil, 4), NewReranker(nil, nil), time.Second)
		return NewRetrievalUseCase(nil, pipeline, defaultStoreID, 0, time.Minute)
	}
	return NewRetrievalUseCase(backend, newTestPipeline(backend), defaultStoreID, 0, time.Minute)
}

func TestRetrieveWithoutBackendReturnsEmpty(t *testing.T) {
	uc := newTestUseCase(nil, "")

	docs := uc.Retrieve(context.Background(), "any question", domain.RetrievalOptions{})
	if docs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestRetrieveEmptyQueryReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{stores: []domain.VectorStoreInfo{{ID: "vs_1"}}}
	uc := newTestUseCase(backend, "")

	docs := uc.Retrieve(context.Background(), "   ", domain.RetrievalOptions{})
	if len(docs) != 0 {
		t.Fatalf("expected no documents for blank query, got %d", len(docs))
	}
	if backend.queryCalls != 0 {
		t.Fatalf("expected no backend calls for blank query, got %d", backend.queryCalls)
	}
}

func TestRetrieveResolvesAndCachesStore(t *testing.T) {
	backend := &fakeBackend{
		stores: []domain.VectorStoreInfo{
			{ID: "vs_new", Name: "newest"},
			{ID: "vs_old", Name: "older"},
		},
		results: map[string][]domain.RawSearchResult{
			"question": {{FileID: "a", Score: 0.9, Content: "answer"}},
		},
	}
	uc := newTestUseCase(backend, "")

	docs := uc.Retrieve(context.Background(), "question", domain.RetrievalOptions{})
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	if backend.lastStoreID != "vs_new" {
		t.Fatalf("expected most recent store, got %q", backend.lastStoreID)
	}

	uc.Retrieve(context.Background(), "question", domain.RetrievalOptions{})
	if backend.listCalls != 1 {
		t.Fatalf("expected store list cached, got %d list calls", backend.listCalls)
	}
}

func TestRetrieveExplicitStoreSkipsResolution(t *testing.T) {
	backend := &fakeBackend{
		results: map[string][]domain.RawSearchResult{
			"question": {{FileID: "a", Score: 0.9, Content: "answer"}},
		},
	}
	uc := newTestUseCase(backend, "")

	uc.Retrieve(context.Background(), "question", domain.RetrievalOptions{VectorStoreID: "vs_explicit"})
	if backend.listCalls != 0 {
		t.Fatalf("expected no store listing, got %d calls", backend.listCalls)
	}
	if backend.lastStoreID != "vs_explicit" {
		t.Fatalf("expected explicit store used, got %q", backend.lastStoreID)
	}
}

func TestRetrieveListStoresFailureReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("upstream down")}
	uc := newTestUseCase(backend, "")

	docs := uc.Retrieve(context.Background(), "question", domain.RetrievalOptions{})
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty result on backend failure, got %v", docs)
	}
}

func TestRetrieveNoStoresListedReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{}
	uc := newTestUseCase(backend, "")

	docs := uc.Retrieve(context.Background(), "question", domain.RetrievalOptions{})
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty result without stores, got %v", docs)
	}
	if backend.queryCalls != 0 {
		t.Fatalf("expected no search without a store, got %d calls", backend.queryCalls)
	}
}

func TestAugmentedPromptIncludesContextAndSources(t *testing.T) {
	backend := &fakeBackend{
		results: map[string][]domain.RawSearchResult{
			"question": {{FileID: "a", FileName: "guide.md", Score: 0.9, Content: "the answer text"}},
		},
	}
	uc := newTestUseCase(backend, "vs_1")

	result := uc.AugmentedPrompt(context.Background(), "You are helpful.", "question", 0, domain.RetrievalOptions{})
	if len(result.Sources) != 1 {
		t.Fatalf("expected one source, got %d", len(result.Sources))
	}
	if !strings.Contains(result.Prompt, "the answer text") {
		t.Fatalf("expected document content in prompt:\n%s", result.Prompt)
	}
	if !strings.Contains(result.Prompt, "- guide.md") {
		t.Fatalf("expected source listing in prompt:\n%s", result.Prompt)
	}
	if !strings.HasPrefix(result.Prompt, "You are helpful.") {
		t.Fatalf("expected base system prompt first:\n%s", result.Prompt)
	}
}
