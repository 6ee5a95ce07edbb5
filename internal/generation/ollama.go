package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

const ollamaChatPath = "/api/chat"

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Ollama sends chat requests to an Ollama server.
type Ollama struct {
	client  *resty.Client
	baseURL string
	model   string
	logger  hclog.Logger
}

// NewOllama creates an Ollama generator using client for transport.
func NewOllama(client *resty.Client, baseURL, model string, logger hclog.Logger) *Ollama {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Ollama{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		logger:  logger,
	}
}

func (o *Ollama) Name() string { return ProviderOllama }

// Generate sends one non-streaming chat request.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	body := ollamaRequest{
		Model:   o.model,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
	}
	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, ollamaMessage{Role: "user", Content: req.User})

	var result ollamaResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		ForceContentType("application/json").
		Post(o.baseURL + ollamaChatPath)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode(), strings.TrimSpace(firstNonEmpty(result.Error, resp.String())))
	}

	o.logger.Debug("ollama answered", "model", o.model, "status", resp.StatusCode(), "chars", len(result.Message.Content))
	if strings.TrimSpace(result.Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return result.Message.Content, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
