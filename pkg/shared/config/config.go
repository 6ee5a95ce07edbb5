package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	Paths         Paths         `yaml:"paths"`
	Logger        Logger        `yaml:"logger"`
	HTTPClient    HTTPClient    `yaml:"http_client"`
	Normalize     Normalize     `yaml:"normalize"`
	Context       Context       `yaml:"context"`
	LLM           LLM           `yaml:"llm"`
	LineSelection LineSelection `yaml:"line_selection"`
	GitHub        GitHub        `yaml:"github"`
	GitClient     GitClient     `yaml:"git_client"`
	Storage       Storage       `yaml:"storage"`
}

// Paths holds the working folders of a dataset run.
type Paths struct {
	HomeFolder      string `yaml:"home_folder"`
	PatchesFolder   string `yaml:"patches"`
	DownloadsFolder string `yaml:"downloads"`
	ResultsFolder   string `yaml:"results"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      *bool  `yaml:"json_format"`
	DisableTime     *bool  `yaml:"disable_time"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Normalize configures report normalization.
type Normalize struct {
	// SARIFPathPrefix is prepended to SARIF artifact URIs, which are relative
	// to the folder the SARIF scanner was started in.
	SARIFPathPrefix string `yaml:"sarif_path_prefix"`
}

// Window is a number of context lines taken before and after a finding.
type Window struct {
	Lead  int `yaml:"lead"`
	Trail int `yaml:"trail"`
}

type Context struct {
	SourceWindow Window `yaml:"source_window"`
	ReportWindow Window `yaml:"report_window"`
}

type LLM struct {
	Provider           string        `yaml:"provider"`
	Model              string        `yaml:"model"`
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	Temperature        float32       `yaml:"temperature"`
	ExplainTemperature float32       `yaml:"explain_temperature"`
	Timeout            time.Duration `yaml:"timeout"`
	RetryCount         int           `yaml:"retry_count"`
}

type LineSelection struct {
	MaxLinesPerHunk int `yaml:"max_lines_per_hunk"`
	BatchSize       int `yaml:"batch_size"`
}

type GitHub struct {
	Token            string `yaml:"token"`
	APIURL           string `yaml:"api_url"`
	RawURL           string `yaml:"raw_url"`
	MinMessageLength int    `yaml:"min_message_length"`
}

// GitClient configures commit reads from git clones.
type GitClient struct {
	Timeout time.Duration `yaml:"timeout"`
	Depth   int           `yaml:"depth"`
}

type Storage struct {
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// LoadConfig reads the YAML file at configPath on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	return cfg, nil
}
