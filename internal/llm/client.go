// Package llm is the client for the external chat-completion provider. It
// speaks the OpenAI-style /chat/completions wire format and classifies every
// failure into a FailureKind before it leaves this package.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is what the chat service depends on; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg config.ProviderConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			// The per-request context carries the real deadline; this is a
			// backstop against a nil context slipping through.
			Timeout: cfg.Timeout + 5*time.Second,
		},
		log: log,
	}
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type providerErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", &ProviderError{Kind: FailureTimeout, Detail: err.Error()}
		}
		return "", &ProviderError{Kind: FailureUnknown, Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ProviderError{Kind: FailureUnknown, Status: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var errBody providerErrorBody
		_ = json.Unmarshal(raw, &errBody)
		provErr := &ProviderError{
			Kind:   classify(resp.StatusCode, errBody.Error.Code),
			Status: resp.StatusCode,
			Code:   errBody.Error.Code,
			Detail: errBody.Error.Message,
		}
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("code", errBody.Error.Code).
			Str("kind", string(provErr.Kind)).
			Dur("latency", time.Since(start)).
			Msg("provider request failed")
		return "", provErr
	}

	var completion completionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", &ProviderError{Kind: FailureUnknown, Status: resp.StatusCode, Detail: err.Error()}
	}
	if len(completion.Choices) == 0 {
		return "", &ProviderError{Kind: FailureUnknown, Status: resp.StatusCode, Detail: "empty choices"}
	}

	c.log.Debug().
		Dur("latency", time.Since(start)).
		Int("messages", len(messages)).
		Msg("provider completion ok")

	return completion.Choices[0].Message.Content, nil
}
