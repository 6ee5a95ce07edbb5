package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/explainify/explainify/pkg/shared/config"
)

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ollamaChatPath {
			t.Errorf("path = %q, want %q", r.URL.Path, ollamaChatPath)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected a non-streaming request")
		}
		if req.Model != "mistral:7b" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "which lines?" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		if req.Options.Temperature != 0.6 {
			t.Errorf("temperature = %v", req.Options.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaResponse{Message: ollamaMessage{Role: "assistant", Content: "[]"}, Done: true})
	}))
	defer server.Close()

	o := NewOllama(resty.New(), server.URL+"/", "mistral:7b", nil)
	got, err := o.Generate(context.Background(), Request{System: "You are a security analyst.", User: "which lines?", Temperature: 0.6})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != "[]" {
		t.Fatalf("answer = %q, want %q", got, "[]")
	}
}

func TestOllamaErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.Header.Get("X-Case"), "empty") {
			json.NewEncoder(w).Encode(ollamaResponse{Done: true})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'x' not found"}`))
	}))
	defer server.Close()

	o := NewOllama(resty.New(), server.URL, "x", nil)
	_, err := o.Generate(context.Background(), Request{User: "q"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected a not found error, got %v", err)
	}

	o = NewOllama(resty.New().SetHeader("X-Case", "empty"), server.URL, "x", nil)
	_, err = o.Generate(context.Background(), Request{User: "q"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := body["systemInstruction"]; !ok {
			t.Error("expected a system instruction")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"the fix escapes input"}]}}]}`))
	}))
	defer server.Close()

	g, err := NewGemini(context.Background(), config.LLM{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("NewGemini error: %v", err)
	}
	got, err := g.Generate(context.Background(), Request{System: "sys", User: "explain", Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != "the fix escapes input" {
		t.Fatalf("answer = %q", got)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	_, err := New(context.Background(), cfg, nil)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	cfg.LLM.Provider = "Ollama"
	g, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if g.Name() != ProviderOllama {
		t.Fatalf("name = %q", g.Name())
	}
}
