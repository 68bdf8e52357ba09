// Package llm is a client for an OpenAI-compatible chat completions gateway.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"callcenter-insights-go/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

const requestTimeout = 30 * time.Second

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call. JSONMode asks the gateway to constrain
// output to a JSON object.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []Message       `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Format      *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the chat request and returns the assistant content. Server
// errors are retried with exponential backoff; 4xx responses are permanent.
func (c *Client) Complete(ctx context.Context, req Request) (string, Usage, error) {
	if c.apiKey == "" {
		return "", Usage{}, fmt.Errorf("llm: api key not configured")
	}
	log := logger.New().WithComponent("llm").WithField("model", req.Model)

	payload := wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		payload.Format = &responseFormat{Type: "json_object"}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	var content string
	var usage Usage
	var lastErr error

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("llm client error: status %d body=%s", resp.StatusCode, truncate(body, 200))
			return backoff.Permanent(lastErr)
		}

		var parsed wireResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("llm: decode response: %w", err)
			return lastErr
		}
		if parsed.Error != nil {
			lastErr = fmt.Errorf("llm: %s", parsed.Error.Message)
			return lastErr
		}
		if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
			lastErr = fmt.Errorf("llm: empty completion")
			return lastErr
		}
		content = parsed.Choices[0].Message.Content
		usage = parsed.Usage
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 60 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return "", Usage{}, fmt.Errorf("llm completion failed: %w", lastErr)
		}
		return "", Usage{}, fmt.Errorf("llm completion failed: %w", err)
	}
	return content, usage, nil
}

// ExtractJSON returns the first balanced JSON object inside s, or "" when none
// exists. Used to salvage structured output from chatty model responses.
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
