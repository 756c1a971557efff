package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akoval/chatrag/internal/infrastructure/resilience"
)

func TestCompleteTrimsResponse(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"response": "  hello there \n"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1:8b", "nomic-embed-text", nil)
	out, err := client.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/api/generate" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["model"] != "llama3.1:8b" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	if gotBody["stream"] != false {
		t.Fatalf("expected streaming disabled, got %v", gotBody["stream"])
	}
	if out != "hello there" {
		t.Fatalf("expected trimmed response, got %q", out)
	}
}

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2, 0.3]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", nil)
	vector, err := client.EmbedQuery(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := New("http://localhost:0", "gen", "embed", nil)
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil result without input, got %v", vectors)
	}
}

func TestCompleteServerErrorIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", nil)
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}

	var statusErr *resilience.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code %d", statusErr.StatusCode)
	}
}
