// ABOUTME: Streaming chat client for an Ollama-compatible backend.
// ABOUTME: Decodes NDJSON from POST /api/chat into a channel of raw text fragments.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const fragmentBuffer = 16

// OllamaClient talks to an Ollama server's /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewOllamaClient creates a client for the given base URL and model.
// timeout bounds one whole generation; a stream with no progress past it is
// cut off and surfaced as a failure. Pass nil logger for default.
func NewOllamaClient(baseURL, model string, timeout time.Duration, logger *slog.Logger) *OllamaClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger.With("component", "backend"),
	}
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Model    string      `json:"model"`
	Messages []Turn      `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

// chatChunk is one NDJSON line of the streamed response.
type chatChunk struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat sends the prompt and streams back raw text fragments.
// Returns ErrUnavailable if the backend cannot be reached or rejects the
// request; mid-stream failures arrive as a terminal Err fragment wrapping
// ErrInterrupted.
func (c *OllamaClient) Chat(ctx context.Context, turns []Turn, temperature float64) (<-chan Fragment, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: turns,
		Stream:   true,
		Options:  chatOptions{Temperature: temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	out := make(chan Fragment, fragmentBuffer)
	go c.stream(ctx, cancel, resp.Body, out)
	return out, nil
}

// stream decodes NDJSON chunks until done, error, or cancellation.
func (c *OllamaClient) stream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, out chan<- Fragment) {
	defer cancel()
	defer close(out)
	defer body.Close()

	dec := json.NewDecoder(body)
	for {
		var chunk chatChunk
		if err := dec.Decode(&chunk); err != nil {
			// EOF before a done chunk means the backend hung up mid-stream.
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			c.logger.Warn("chat stream broke", "error", err)
			c.emit(ctx, out, Fragment{Err: fmt.Errorf("%w: %v", ErrInterrupted, err)})
			return
		}

		if chunk.Message.Content != "" {
			if !c.emit(ctx, out, Fragment{Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			return
		}
	}
}

// emit sends a fragment unless the consumer is gone. Reports whether the
// send happened.
func (c *OllamaClient) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
