package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	VectorBaseURL        string
	VectorFileBaseURL    string
	VectorAPIKey         string
	VectorStoreID        string
	SearchTimeoutSeconds int
	StoreCacheTTLSeconds int

	OllamaEnabled    bool
	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	RetrievalTopK      int
	RewriteMaxVariants int
	ContextTokenBudget int

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		VectorBaseURL:        mustEnv("VECTOR_BASE_URL", "https://api.openai.com/v1"),
		VectorFileBaseURL:    mustEnv("VECTOR_FILE_BASE_URL", ""),
		VectorAPIKey:         mustEnv("VECTOR_API_KEY", ""),
		VectorStoreID:        mustEnv("VECTOR_STORE_ID", ""),
		SearchTimeoutSeconds: mustEnvInt("SEARCH_TIMEOUT_SECONDS", 8),
		StoreCacheTTLSeconds: mustEnvInt("STORE_CACHE_TTL_SECONDS", 300),

		OllamaEnabled:    mustEnvBool("OLLAMA_ENABLED", false),
		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		RetrievalTopK:      mustEnvInt("RETRIEVAL_TOP_K", 5),
		RewriteMaxVariants: mustEnvInt("REWRITE_MAX_VARIANTS", 4),
		ContextTokenBudget: mustEnvInt("CONTEXT_TOKEN_BUDGET", 2048),

		RateLimitRPS:   mustEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: mustEnvInt("RATE_LIMIT_BURST", 20),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
