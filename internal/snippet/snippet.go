// Package snippet cuts bounded windows of source lines around a finding.
package snippet

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/encoding/unicode"

	"github.com/explainify/explainify/pkg/shared/config"
)

// Unreadable is returned instead of context when a source file cannot be read.
const Unreadable = "Could not read source file."

// Window is the number of lines kept before and after the finding range.
type Window struct {
	Lead  int
	Trail int
}

// WindowFromConfig converts a configured window.
func WindowFromConfig(w config.Window) Window {
	return Window{Lead: w.Lead, Trail: w.Trail}
}

// Extractor reads source files and cuts windows around line ranges.
type Extractor struct {
	Window Window
	logger hclog.Logger
}

// NewExtractor creates an Extractor for 0-based start lines.
func NewExtractor(w Window, logger hclog.Logger) *Extractor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Extractor{Window: w, logger: logger}
}

// NewReportExtractor creates an Extractor for 1-based report lines. They are
// used as slice bounds unchanged, so the window starts at start-Lead.
func NewReportExtractor(w Window, logger hclog.Logger) *Extractor {
	return NewExtractor(w, logger)
}

// Lines returns lines[max(0, start-Lead) : min(len, end+Trail)] joined back together.
// Lines keep their terminators.
func (e *Extractor) Lines(lines []string, start, end int) string {
	from := start - e.Window.Lead
	if from < 0 {
		from = 0
	}
	to := end + e.Window.Trail
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return ""
	}
	return strings.Join(lines[from:to], "")
}

// File reads path and returns the window around start..end. Invalid UTF-8 is
// replaced with U+FFFD. When the file cannot be read Unreadable is returned.
func (e *Extractor) File(path string, start, end int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("failed to read source file", "path", path, "error", err)
		return Unreadable
	}
	text, err := Decode(data)
	if err != nil {
		e.logger.Warn("failed to decode source file", "path", path, "error", err)
		return Unreadable
	}
	return e.Lines(SplitLines(text), start, end)
}

// Decode converts data to valid UTF-8, substituting invalid sequences.
func Decode(data []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SplitLines splits text after every "\n" so that joining the result gives text back.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
