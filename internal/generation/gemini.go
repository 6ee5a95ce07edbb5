package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/genai"

	"github.com/explainify/explainify/pkg/shared/config"
)

// Gemini generates text through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger hclog.Logger
}

// NewGemini creates a Gemini generator. A non-default BaseURL in cfg is used as
// the API endpoint.
func NewGemini(ctx context.Context, cfg config.LLM, logger hclog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultOllamaURL {
		clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientConfig.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, logger: logger}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

// Generate sends the prompt with the system instruction and temperature of req.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	g.logger.Debug("gemini answered", "model", g.model, "chars", len(text))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
