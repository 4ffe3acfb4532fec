package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

// ErrUnavailable marks model-runtime failures so callers can fall back to
// deterministic paths instead of failing the request.
var ErrUnavailable = errors.New("model runtime unavailable")

// Client talks to a local Ollama-compatible runtime over its REST API.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

type client struct {
	http           *http.Client
	baseURL        string
	chatModel      string
	embeddingModel string
	logger         *logger.Logger
}

// NewClient builds a model client from config. The HTTP timeout bounds every
// call so a wedged runtime cannot stall the pipeline.
func NewClient(cfg config.ModelConfig, logg *logger.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("model base url is required")
	}
	if cfg.ChatModel == "" || cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("chat and embedding model names are required")
	}
	return &client{
		http:           &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logg,
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Chat sends a system+user prompt pair and returns the assistant reply. The
// runtime is asked for JSON-formatted output.
func (c *client) Chat(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
		Format: "json",
	}
	var out chatResponse
	if err := c.post(ctx, "/api/chat", payload, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

// Embed returns the embedding vector for a single input text.
func (c *client) Embed(ctx context.Context, text string) ([]float64, error) {
	payload := embedRequest{Model: c.embeddingModel, Input: text}
	var out embedResponse
	if err := c.post(ctx, "/api/embed", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrUnavailable)
	}
	return out.Embeddings[0], nil
}

func (c *client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding model request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn(ctx, fmt.Sprintf("model runtime unreachable: %v", err))
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return nil
}
