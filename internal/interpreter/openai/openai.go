// Package openai adapts an OpenAI-compatible chat completions endpoint to
// the interpreter.VisionModel contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"parking-sign-backend/config"
	"parking-sign-backend/internal/interpreter"
)

// ErrEmptyChoices is returned when the endpoint answers without a choice.
var ErrEmptyChoices = errors.New("model returned no choices")

// RetryConfig holds retry configuration for model requests.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig allows one retry after a short pause.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       2,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
	}
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Model calls a vision-capable chat model.
type Model struct {
	client    chatCompleter
	model     string
	maxTokens int
	retry     RetryConfig
}

// New builds a Model from the vision configuration.
func New(cfg config.VisionConfig) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}

	return &Model{
		client:    goopenai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     retry,
	}, nil
}

// WithRetry replaces the retry policy.
func (m *Model) WithRetry(retry RetryConfig) *Model {
	m.retry = retry
	return m
}

// Complete sends the prompt and the image as one user message and returns
// the text of the first choice.
func (m *Model) Complete(ctx context.Context, req interpreter.ImageRequest) (string, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    req.ImageDataURI,
							Detail: goopenai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}
	if req.JSONOutput {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	backoff := m.retry.BackoffBase
	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		resp, err := m.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", ErrEmptyChoices
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if !isTransient(err) || attempt == m.retry.MaxAttempts {
			break
		}

		log.Printf("Vision model attempt %d/%d failed, retrying in %s: %v", attempt, m.retry.MaxAttempts, backoff, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * m.retry.BackoffMultiplier)
		if backoff > m.retry.MaxBackoff {
			backoff = m.retry.MaxBackoff
		}
	}
	return "", fmt.Errorf("vision model request failed: %w", lastErr)
}

// isTransient reports whether a retry may succeed: rate limiting, server
// errors and network failures. Auth and request errors are fatal.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
