package textmoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Embedding defaults.
const (
	DefaultModel     = "nomic-embed-text"
	DefaultOllamaURL = "http://localhost:11434"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// Embed stores an embedding of the custom text along with the model name.
func (d *Document) Embed(ctx context.Context, e Embedder, model string) error {
	text := gjson.GetBytes(d.raw, KeyText)
	if !text.Exists() {
		return ErrNoText
	}
	if model == "" {
		model = DefaultModel
	}
	vec, err := e.Embed(ctx, model, text.String())
	if err != nil {
		return fmt.Errorf("embed with %s: %w", model, err)
	}
	if err := d.set(KeyEmbedding, vec); err != nil {
		return err
	}
	return d.set(KeyEmbeddingModel, model)
}

// OllamaClient calls an Ollama server's embeddings endpoint.
type OllamaClient struct {
	baseURL string
	client  *http.Client
}

// NewOllamaClient creates a client for baseURL. An empty URL selects the
// local default.
func NewOllamaClient(baseURL string, client *http.Client) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Embedder.
func (c *OllamaClient) Embed(ctx context.Context, model, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request embeddings: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings: unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out embeddingResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings: empty vector")
	}
	return out.Embedding, nil
}
