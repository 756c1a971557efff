package usecase

import (
	"context"
	"sync"

	"github.com/akoval/chatrag/internal/core/domain"
)

type fakeBackend struct {
	mu          sync.Mutex
	stores      []domain.VectorStoreInfo
	listErr     error
	listCalls   int
	results     map[string][]domain.RawSearchResult
	queryErr    map[string]error
	queryCalls  int
	lastStoreID string
}

func (f *fakeBackend) ListStores(_ context.Context) ([]domain.VectorStoreInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.stores, nil
}

func (f *fakeBackend) Query(_ context.Context, storeID, query string, _ map[string]any, _ int) ([]domain.RawSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastStoreID = storeID
	if err, ok := f.queryErr[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

type fakeRunner struct {
	response string
	err      error
	calls    int
}

func (f *fakeRunner) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeEmbedder struct {
	queryVector []float32
	vectors     [][]float32
	err         error
	calls       int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.vectors) >= len(texts) {
		return f.vectors[:len(texts)], nil
	}
	return f.vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.queryVector, nil
}

type fakeScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(_ context.Context, _ string, doc domain.RetrievedDocument) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[doc.FileID], nil
}

func doc(fileID string, score float64, content string) domain.RetrievedDocument {
	return domain.RetrievedDocument{
		FileID:   fileID,
		FileName: fileID + ".md",
		Score:    score,
		Content:  content,
	}
}
