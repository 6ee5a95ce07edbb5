package normalizer

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/pkg/shared/config"
)

// DefaultMessage is used for findings whose report carries no message.
const DefaultMessage = "No description provided."

var ErrUnknownTool = errors.New("unknown tool")

var cweID = regexp.MustCompile(`(?i)^CWE-\d+`)

// Options tune how report paths are normalized.
type Options struct {
	// SARIFPathPrefix is joined in front of SARIF artifact URIs.
	SARIFPathPrefix string
}

// OptionsFromConfig builds Options from the global configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{SARIFPathPrefix: config.DefaultDownloadsFolder}
	}
	return Options{SARIFPathPrefix: cfg.Normalize.SARIFPathPrefix}
}

// Normalizer converts tool specific reports into findings grouped by project.
type Normalizer struct {
	opts   Options
	logger hclog.Logger
}

// New creates a Normalizer.
func New(logger hclog.Logger, opts Options) *Normalizer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Normalize decodes raw as a report of the given tool. Only a report that cannot be
// decoded at all is an error; missing fields degrade to defaults.
func (n *Normalizer) Normalize(tool findings.Tool, raw []byte) (findings.Collection, error) {
	switch tool {
	case findings.SARIFScanner:
		return n.normalizeSARIF(raw)
	case findings.PatternScanner:
		return n.normalizeSemgrep(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
}

// NormalizeFile reads the report at path and normalizes it.
func (n *Normalizer) NormalizeFile(tool findings.Tool, path string) (findings.Collection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %q: %w", path, err)
	}
	return n.Normalize(tool, raw)
}

// newFinding applies the shared path, project and default handling.
func newFinding(tool findings.Tool, id int, file string, start, end int, message, cwe string) findings.Finding {
	file = findings.NormalizePath(file)
	if end < start {
		end = start
	}
	if strings.TrimSpace(message) == "" {
		message = DefaultMessage
	}
	return findings.Finding{
		ID:        id,
		Tool:      tool,
		Project:   findings.ProjectKey(file),
		File:      file,
		StartLine: start,
		EndLine:   end,
		Message:   message,
		CWE:       normalizeCWE(cwe),
	}
}

// normalizeCWE keeps the CWE identifier of entries like "CWE-89: Improper Neutralization ...".
func normalizeCWE(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return findings.UnknownCWE
	}
	if id := cweID.FindString(raw); id != "" {
		return strings.ToUpper(id)
	}
	return raw
}
