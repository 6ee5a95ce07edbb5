// Package generation talks to the text-generation services used to select lines
// and to write explanations.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/httpclient"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

var (
	ErrUnknownProvider = errors.New("unknown generation provider")
	ErrEmptyResponse   = errors.New("empty response from generation service")
)

// Request is one prompt sent to a model.
type Request struct {
	System      string
	User        string
	Temperature float32
}

// Generator produces a free-text answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// New creates the generator selected by cfg.LLM.Provider.
func New(ctx context.Context, cfg *config.Config, logger hclog.Logger) (Generator, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case ProviderOllama:
		restyConfig := httpclient.ApplyHttpClientConfig(&cfg.HTTPClient)
		restyConfig.RetryCount = cfg.LLM.RetryCount
		restyConfig.Timeout = cfg.LLM.Timeout
		client := httpclient.NewRestyClient(logger, restyConfig)
		return NewOllama(client, cfg.LLM.BaseURL, cfg.LLM.Model, logger), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg.LLM, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.LLM.Provider)
	}
}
