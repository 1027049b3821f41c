// Package llm talks to a local Ollama instance. Two capabilities are
// exposed: free-form text generation (used by the retrieval pipeline and
// chat-title generation) and text embedding (used for similarity search over
// the reference corpus).
//
// Both are plain JSON-over-HTTP round-trips; Ollama has no official Go SDK
// and needs none.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sentinel errors for backend failures. The retrieval pipeline swallows them
// behind its fixed fallback response; other callers may surface them.
var (
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
	ErrEmbeddingUnavailable  = errors.New("embedding backend unavailable")
)

// Client is an Ollama API client bound to one chat model and one embedding
// model. The zero value is not usable; construct with NewClient.
type Client struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
	HTTPClient *http.Client
}

// NewClient builds a client with a generous timeout; local model inference
// routinely takes tens of seconds.
func NewClient(baseURL, chatModel, embedModel string) *Client {
	return &Client{
		BaseURL:    baseURL,
		ChatModel:  chatModel,
		EmbedModel: embedModel,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate sends a single-turn prompt to the chat model and returns the
// response text. Any transport or backend failure is reported as
// ErrGenerationUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	tr := otel.Tracer("llm/Client")
	ctx, span := tr.Start(ctx, "ollama.Generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", c.ChatModel)))
	defer span.End()

	payload := chatRequest{
		Model:    c.ChatModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	body, err := c.post(ctx, "/api/chat", payload, ErrGenerationUnavailable)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGenerationUnavailable, err)
	}
	return resp.Message.Content, nil
}

// Embed returns a unit-length embedding vector for the given text. Cosine
// ranking downstream assumes normalized vectors. Failures are reported as
// ErrEmbeddingUnavailable.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	tr := otel.Tracer("llm/Client")
	ctx, span := tr.Start(ctx, "ollama.Embed",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", c.EmbedModel)))
	defer span.End()

	payload := embedRequest{Model: c.EmbedModel, Prompt: text}
	body, err := c.post(ctx, "/api/embeddings", payload, ErrEmbeddingUnavailable)
	if err != nil {
		return nil, err
	}
	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingUnavailable)
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return normalize(vec), nil
}

// post performs one JSON round-trip and maps every failure onto the given
// sentinel.
func (c *Client) post(ctx context.Context, path string, payload any, sentinel error) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", sentinel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", sentinel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", sentinel, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, body)
	}
	return body, nil
}

// normalize scales a vector to unit magnitude. Zero vectors are returned
// unchanged; cosine ranking rejects them later.
func normalize(vec []float32) []float32 {
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	mag = math.Sqrt(mag)
	if mag == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / mag)
	}
	return out
}
