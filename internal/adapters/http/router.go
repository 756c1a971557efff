package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/core/ports"
	"github.com/akoval/chatrag/internal/observability/metrics"
)

const serviceName = "chatrag-api"

type Router struct {
	retrieval   ports.RetrievalService
	metrics     *metrics.ServerMetrics
	limiter     *rateLimiter
	stopLimiter func()
}

func NewRouter(retrieval ports.RetrievalService, m *metrics.ServerMetrics, rateRPS float64, rateBurst int) *Router {
	limiter, stop := newRateLimiter(rateRPS, rateBurst)
	return &Router{
		retrieval:   retrieval,
		metrics:     m,
		limiter:     limiter,
		stopLimiter: stop,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/augment", rt.augment)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = rt.limiter.middleware(mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

// Close stops the rate limiter's eviction goroutine.
func (rt *Router) Close() {
	if rt.stopLimiter != nil {
		rt.stopLimiter()
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrievalRequest struct {
	Query           string   `json:"query"`
	TopK            int      `json:"top_k"`
	VectorStoreID   string   `json:"vector_store_id"`
	FileTypes       []string `json:"file_types"`
	RewriteStrategy string   `json:"rewrite_strategy"`
	Reranking       bool     `json:"reranking"`
	RerankingMethod string   `json:"reranking_method"`
}

func (req retrievalRequest) options() domain.RetrievalOptions {
	opts := domain.RetrievalOptions{
		TopK:          req.TopK,
		VectorStoreID: req.VectorStoreID,
		FileTypes:     req.FileTypes,
		Reranking:     req.Reranking,
	}
	if strings.TrimSpace(req.RewriteStrategy) != "" {
		opts.RewriteStrategy = domain.ParseRewriteStrategy(req.RewriteStrategy)
	}
	if req.Reranking {
		opts.RerankMethod = domain.ParseRerankMethod(req.RerankingMethod)
	}
	return opts
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req retrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	docs := rt.retrieval.Retrieve(r.Context(), req.Query, req.options())
	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, "retrieve", len(docs), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) augment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		retrievalRequest
		System       string `json:"system"`
		BudgetTokens int    `json:"budget_tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	result := rt.retrieval.AugmentedPrompt(r.Context(), req.System, req.Query, req.BudgetTokens, req.options())
	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, "augment", len(result.Sources), time.Since(start))
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
