// Package searchapi talks to an OpenAI-style vector-store search API:
// list stores, then query one store by id with a text query.
package searchapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akoval/chatrag/internal/core/domain"
	"github.com/akoval/chatrag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	fileBaseURL string
	apiKey      string
	httpClient  *http.Client
	exec        *resilience.Executor
}

// New builds a backend client. fileBaseURL, when set, is used to derive a
// deep link per result file. exec may be nil to call without retries.
func New(baseURL, fileBaseURL, apiKey string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		fileBaseURL: strings.TrimRight(fileBaseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		exec:        exec,
	}
}

// ListStores returns the known vector stores, most recent first.
func (c *Client) ListStores(ctx context.Context) ([]domain.VectorStoreInfo, error) {
	var response struct {
		Data []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			CreatedAt int64  `json:"created_at"`
		} `json:"data"`
	}

	err := c.execute(ctx, "list stores", func(ctx context.Context) error {
		return c.getJSON(ctx, "/vector_stores?order=desc&limit=20", &response)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.VectorStoreInfo, 0, len(response.Data))
	for _, store := range response.Data {
		out = append(out, domain.VectorStoreInfo{
			ID:        store.ID,
			Name:      store.Name,
			CreatedAt: store.CreatedAt,
		})
	}
	return out, nil
}

// Query runs a similarity search against one store. limit bounds the raw
// result count requested from the backend.
func (c *Client) Query(ctx context.Context, storeID, query string, filters map[string]any, limit int) ([]domain.RawSearchResult, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, fmt.Errorf("store id is required")
	}
	if limit <= 0 {
		limit = 10
	}

	payload := map[string]any{
		"query":           query,
		"max_num_results": limit,
	}
	if len(filters) > 0 {
		payload["filters"] = filters
	}

	var response struct {
		Data []struct {
			FileID     string         `json:"file_id"`
			ID         string         `json:"id"`
			Filename   string         `json:"filename"`
			Score      float64        `json:"score"`
			Attributes map[string]any `json:"attributes"`
			Content    []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/vector_stores/%s/search", url.PathEscape(storeID))
	err := c.execute(ctx, "store search", func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, &response)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawSearchResult, 0, len(response.Data))
	for _, item := range response.Data {
		parts := make([]string, 0, len(item.Content))
		for _, part := range item.Content {
			if part.Type != "" && part.Type != "text" {
				continue
			}
			parts = append(parts, part.Text)
		}

		out = append(out, domain.RawSearchResult{
			FileID:     item.FileID,
			ID:         item.ID,
			FileName:   item.Filename,
			Score:      item.Score,
			Content:    strings.Join(parts, "\n"),
			URL:        c.fileURL(item.FileID),
			Attributes: item.Attributes,
		})
	}
	return out, nil
}

func (c *Client) fileURL(fileID string) string {
	if c.fileBaseURL == "" || fileID == "" {
		return ""
	}
	return c.fileBaseURL + "/" + url.PathEscape(fileID)
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.exec == nil {
		return fn(ctx)
	}
	return c.exec.Execute(ctx, "vector "+operation, fn, resilience.ClassifyHTTPError)
}
