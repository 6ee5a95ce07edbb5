package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/explainify/explainify/pkg/shared/files"
)

var knownProviders = map[string]bool{
	"ollama": true,
	"gemini": true,
}

// ValidateConfig applies environment overrides and checks that the configuration has valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidatePaths(cfg); err != nil {
		return fmt.Errorf("YAML global config: paths directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateContextConfig(&cfg.Context); err != nil {
		return fmt.Errorf("YAML global config: context directive is invalid: %w", err)
	}
	if err := ValidateLLMConfig(&cfg.LLM); err != nil {
		return fmt.Errorf("YAML global config: llm directive is invalid: %w", err)
	}
	if err := ValidateLineSelectionConfig(&cfg.LineSelection); err != nil {
		return fmt.Errorf("YAML global config: line_selection directive is invalid: %w", err)
	}
	if err := ValidateGitClientConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	applyGitHubEnv(&cfg.GitHub)
	return nil
}

// ValidatePaths resolves the working folders from the environment or the home folder.
// Folders are not created here; commands create what they write to.
func ValidatePaths(cfg *Config) error {
	if home := os.Getenv("EXPLAINIFY_HOME"); home != "" {
		cfg.Paths.HomeFolder = home
	} else if cfg.Paths.HomeFolder == "" {
		cfg.Paths.HomeFolder = "."
	}

	expandedHome, err := files.ExpandPath(cfg.Paths.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand home path %q: %w", cfg.Paths.HomeFolder, err)
	}
	cfg.Paths.HomeFolder = expandedHome

	if err := updateFolder(&cfg.Paths.PatchesFolder, "EXPLAINIFY_PATCHES_FOLDER", DefaultPatchesFolder, cfg); err != nil {
		return fmt.Errorf("failed to update patches folder: %w", err)
	}
	if err := updateFolder(&cfg.Paths.DownloadsFolder, "EXPLAINIFY_DOWNLOADS_FOLDER", DefaultDownloadsFolder, cfg); err != nil {
		return fmt.Errorf("failed to update downloads folder: %w", err)
	}
	if err := updateFolder(&cfg.Paths.ResultsFolder, "EXPLAINIFY_RESULTS_FOLDER", DefaultResultsFolder, cfg); err != nil {
		return fmt.Errorf("failed to update results folder: %w", err)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	return validateProxy(&httpConfig.Proxy)
}

// ValidateContextConfig checks the context windows.
func ValidateContextConfig(c *Context) error {
	windows := map[string]Window{
		"source_window": c.SourceWindow,
		"report_window": c.ReportWindow,
	}
	for name, w := range windows {
		if w.Lead < 0 || w.Trail < 0 {
			return fmt.Errorf("%s lead and trail must not be negative: lead=%d trail=%d", name, w.Lead, w.Trail)
		}
	}
	return nil
}

// ValidateLLMConfig checks the text generation settings and fills provider specific defaults.
func ValidateLLMConfig(llm *LLM) error {
	llm.Provider = strings.ToLower(strings.TrimSpace(llm.Provider))
	if !knownProviders[llm.Provider] {
		return fmt.Errorf("unknown provider %q", llm.Provider)
	}
	if llm.RetryCount < 0 || llm.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", llm.RetryCount)
	}
	if err := validateDuration(llm.Timeout, "timeout", 1*time.Hour); err != nil {
		return err
	}

	switch llm.Provider {
	case "ollama":
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			llm.BaseURL = host
		}
		if err := validateHost(&llm.BaseURL); err != nil {
			return err
		}
	case "gemini":
		if llm.APIKey == "" {
			llm.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
		if llm.Model == DefaultOllamaModel {
			llm.Model = DefaultGeminiModel
		}
	}
	return nil
}

// ValidateLineSelectionConfig checks the line selection limits.
func ValidateLineSelectionConfig(ls *LineSelection) error {
	if ls.MaxLinesPerHunk <= 0 {
		return fmt.Errorf("max_lines_per_hunk must be positive: %d", ls.MaxLinesPerHunk)
	}
	if ls.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative: %d", ls.BatchSize)
	}
	return nil
}

// ValidateGitClientConfig checks the git clone settings.
func ValidateGitClientConfig(g *GitClient) error {
	if g.Depth < 0 {
		return fmt.Errorf("depth must not be negative: %d", g.Depth)
	}
	return validateDuration(g.Timeout, "timeout", 1*time.Hour)
}

func applyGitHubEnv(gh *GitHub) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" && gh.Token == "" {
		gh.Token = token
	}
	gh.APIURL = SetThen(gh.APIURL, DefaultGitHubAPIURL)
	gh.RawURL = SetThen(gh.RawURL, DefaultGitHubRawURL)
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// updateFolder sets a folder from its environment variable, or from the home folder when unset.
func updateFolder(folder *string, envVar, defaultSubFolder string, cfg *Config) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = filepath.Join(GetHome(cfg), defaultSubFolder)
	}

	expanded, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expanded
	return nil
}
