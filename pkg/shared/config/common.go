package config

import (
	"crypto/tls"
	"time"
)

const (
	DefaultPatchesFolder   = "patch_data"
	DefaultDownloadsFolder = "file_downloads"
	DefaultResultsFolder   = "results"

	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "mistral:7b"
	DefaultGeminiModel = "gemini-2.0-flash"

	DefaultGitHubAPIURL = "https://api.github.com/"
	DefaultGitHubRawURL = "https://raw.githubusercontent.com/"
)

// BaseHTTPConfig holds common HTTP client configuration settings.
type BaseHTTPConfig struct {
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	Timeout          time.Duration
	TLSClientConfig  *tls.Config
	Proxy            string
}

// RestyHttpClientConfig holds additional configuration settings for the resty http client.
type RestyHttpClientConfig struct {
	BaseHTTPConfig
	Debug bool
}

// General base configuration applicable to all HTTP clients.
func DefaultHttpConfig() BaseHTTPConfig {
	return BaseHTTPConfig{
		RetryCount:       3,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 5 * time.Second,
		Timeout:          30 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12, // Enforce a minimum TLS version
		},
		Proxy: "",
	}
}

// DefaultRestyConfig function returns a specific http config to Resty
func DefaultRestyConfig() RestyHttpClientConfig {
	baseConfig := DefaultHttpConfig()
	return RestyHttpClientConfig{
		BaseHTTPConfig: baseConfig,
		Debug:          false,
	}
}

// Default returns the configuration used when no config file is given.
// Folders are left empty and resolved by ValidateConfig.
func Default() *Config {
	return &Config{
		Logger: Logger{Level: "INFO"},
		Normalize: Normalize{
			SARIFPathPrefix: DefaultDownloadsFolder,
		},
		Context: Context{
			SourceWindow: Window{Lead: 5, Trail: 2},
			ReportWindow: Window{Lead: 3, Trail: 2},
		},
		LLM: LLM{
			Provider:           "ollama",
			Model:              DefaultOllamaModel,
			BaseURL:            DefaultOllamaURL,
			Temperature:        0.6,
			ExplainTemperature: 0.7,
		},
		LineSelection: LineSelection{
			MaxLinesPerHunk: 10,
		},
		GitHub: GitHub{
			APIURL:           DefaultGitHubAPIURL,
			RawURL:           DefaultGitHubRawURL,
			MinMessageLength: 50,
		},
	}
}
