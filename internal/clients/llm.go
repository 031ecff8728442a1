package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

// claudeCascade orders models most capable first; a 400 from any of them
// means the request itself is bad and aborts the cascade.
var claudeCascade = []string{
	"claude-sonnet-4-5-20250929",
	"claude-3-5-sonnet-latest",
	"claude-3-5-sonnet-20241022",
	"claude-3-haiku-20240307",
}

const openAIFallbackModel = "gpt-4o-mini"

// LLMClient produces a single JSON object per call. GenerateJSON reports
// which model actually answered so callers can attribute cost.
type LLMClient interface {
	GenerateJSON(ctx context.Context, system, user string, maxTokens int) (map[string]any, string, error)
}

type llmClient struct {
	log        *logger.Logger
	claudeKey  string
	openAIKey  string
	httpClient *http.Client
}

func NewLLMClient(log *logger.Logger) (LLMClient, error) {
	claudeKey := os.Getenv("CLAUDE_KEY")
	if claudeKey == "" {
		return nil, fmt.Errorf("missing CLAUDE_KEY")
	}
	return &llmClient{
		log:        log.With("service", "LLMClient"),
		claudeKey:  claudeKey,
		openAIKey:  os.Getenv("OPENAI_KEY"),
		httpClient: &http.Client{Timeout: 240 * time.Second},
	}, nil
}

func (c *llmClient) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (map[string]any, string, error) {
	if maxTokens <= 0 {
		maxTokens = 5000
	}
	var lastErr error
	for _, model := range claudeCascade {
		obj, err := c.callClaude(ctx, model, system, user, maxTokens)
		if err == nil {
			return obj, model, nil
		}
		lastErr = err
		c.log.Warn("Claude model failed", "model", model, "error", truncate(err.Error(), 120))
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
			break
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}

	if c.openAIKey != "" {
		c.log.Info("Falling back to OpenAI")
		obj, err := c.callOpenAI(ctx, system, user)
		if err == nil {
			return obj, openAIFallbackModel, nil
		}
		c.log.Error("OpenAI fallback failed", "error", truncate(err.Error(), 120))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no language model available: %w", apperr.ErrBackendPermanent)
	}
	return nil, "", fmt.Errorf("all language models failed: %w", lastErr)
}

func (c *llmClient) callClaude(ctx context.Context, model, system, user string, maxTokens int) (map[string]any, error) {
	payload := map[string]any{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": 0.7,
		"system":      system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.claudeKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 500)}
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode claude response: %w", err)
	}
	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	jsonText := ExtractJSONObject(text.String())
	if jsonText == "" {
		return nil, fmt.Errorf("claude returned no JSON object: %w", apperr.ErrBackendTransient)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, fmt.Errorf("parse claude JSON: %w", err)
	}
	return obj, nil
}

func (c *llmClient) callOpenAI(ctx context.Context, system, user string) (map[string]any, error) {
	payload := map[string]any{
		"model":           openAIFallbackModel,
		"temperature":     0.0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.openAIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 500)}
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices: %w", apperr.ErrBackendTransient)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &obj); err != nil {
		return nil, fmt.Errorf("parse openai JSON: %w", err)
	}
	return obj, nil
}

// ExtractJSONObject pulls the first balanced JSON object out of model output,
// tolerating markdown fences and surrounding prose.
func ExtractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.IndexByte(s, '{')
	if start == -1 {
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
