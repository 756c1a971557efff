package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.APIPort)
	}
	if cfg.VectorBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected vector base url %q", cfg.VectorBaseURL)
	}
	if cfg.SearchTimeoutSeconds != 8 {
		t.Fatalf("expected search timeout 8, got %d", cfg.SearchTimeoutSeconds)
	}
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.ContextTokenBudget != 2048 {
		t.Fatalf("expected token budget 2048, got %d", cfg.ContextTokenBudget)
	}
	if cfg.OllamaEnabled {
		t.Fatal("expected ollama disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "15")
	t.Setenv("OLLAMA_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("VECTOR_STORE_ID", "vs_fixed")

	cfg := Load()

	if cfg.APIPort != "9090" {
		t.Fatalf("expected port override, got %q", cfg.APIPort)
	}
	if cfg.SearchTimeoutSeconds != 15 {
		t.Fatalf("expected timeout override, got %d", cfg.SearchTimeoutSeconds)
	}
	if !cfg.OllamaEnabled {
		t.Fatal("expected ollama enabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if cfg.VectorStoreID != "vs_fixed" {
		t.Fatalf("expected store id override, got %q", cfg.VectorStoreID)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "not-a-number")
	t.Setenv("OLLAMA_ENABLED", "maybe")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg := Load()

	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected fallback top k, got %d", cfg.RetrievalTopK)
	}
	if cfg.OllamaEnabled {
		t.Fatal("expected fallback ollama flag")
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected fallback rps, got %v", cfg.RateLimitRPS)
	}
}
