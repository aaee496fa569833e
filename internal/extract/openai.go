package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/osusumeapp/osusume-server/internal/filter"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 15 * time.Second
	maxResponseBytes     = 1 << 20
)

// OpenAIOptions configures an OpenAI-compatible chat completions endpoint.
type OpenAIOptions struct {
	// BaseURL includes the version prefix, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI extracts candidates with an OpenAI-compatible chat model.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	prompt  string
	http    *http.Client
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI extractor. The system prompt lists the vocabulary's genres.
func NewOpenAI(opts OpenAIOptions, genres GenreLister, logger *slog.Logger) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key required", ErrExtraction)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultOpenAITimeout
	}

	return &OpenAI{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   opts.Model,
		prompt:  systemPrompt(genres.Genres()),
		http:    &http.Client{Timeout: opts.Timeout},
		logger:  logger,
	}, nil
}

// Name implements Named.
func (o *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract implements Extractor. Malformed keys in the model's answer are dropped; an
// answer without any JSON object is an error.
func (o *OpenAI) Extract(ctx context.Context, text string) (filter.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return filter.Candidate{}, nil
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: o.prompt},
			{Role: "user", Content: "USER_REQUEST: " + text},
		},
		Temperature:    0,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return filter.Candidate{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return filter.Candidate{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return filter.Candidate{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return filter.Candidate{}, fmt.Errorf("%w: read response: %v", ErrExtraction, err)
	}

	var out chatCompletionResponse
	decodeErr := json.Unmarshal(payload, &out)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(payload))
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return filter.Candidate{}, fmt.Errorf("%w: status %d: %s", ErrExtraction, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return filter.Candidate{}, fmt.Errorf("%w: decode response: %v", ErrExtraction, decodeErr)
	}
	if len(out.Choices) == 0 {
		return filter.Candidate{}, fmt.Errorf("%w: no choices", ErrExtraction)
	}

	content := out.Choices[0].Message.Content
	c, errs := filter.ParseCandidate([]byte(content))
	if c.IsZero() && len(errs) > 0 {
		return filter.Candidate{}, fmt.Errorf("%w: unusable answer: %v", ErrExtraction, errs[0])
	}
	for _, e := range errs {
		o.logger.Debug("dropped extracted field", "error", e)
	}
	return c, nil
}
