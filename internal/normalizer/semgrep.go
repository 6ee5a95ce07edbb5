package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/explainify/explainify/internal/findings"
)

type semgrepReport struct {
	Results []json.RawMessage `json:"results"`
}

type semgrepPosition struct {
	Line int `json:"line"`
}

type semgrepResult struct {
	CheckID string           `json:"check_id"`
	Path    string           `json:"path"`
	Start   *semgrepPosition `json:"start"`
	End     *semgrepPosition `json:"end"`
	Extra   struct {
		Message  string `json:"message"`
		Lines    string `json:"lines"`
		Metadata struct {
			CWE weaknessList `json:"cwe"`
		} `json:"metadata"`
	} `json:"extra"`
}

// weaknessList accepts both a list of CWE entries and a single string.
type weaknessList []string

func (w *weaknessList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*w = weaknessList{single}
		return nil
	}
	// Unexpected shapes degrade to no weakness.
	*w = nil
	return nil
}

func (w weaknessList) first() string {
	if len(w) == 0 {
		return ""
	}
	return w[0]
}

func (n *Normalizer) normalizeSemgrep(raw []byte) (findings.Collection, error) {
	var report semgrepReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to decode pattern scanner report: %w", err)
	}

	out := findings.Collection{}
	if report.Results == nil {
		n.logger.Warn("pattern scanner report has no results list")
		return out, nil
	}

	for i, item := range report.Results {
		id := i + 1

		var result semgrepResult
		if err := json.Unmarshal(item, &result); err != nil {
			n.logger.Warn("skipping malformed pattern scanner result", "id", id, "error", err)
			continue
		}

		start := 0
		if result.Start != nil {
			start = result.Start.Line
		}
		end := start
		if result.End != nil && result.End.Line > 0 {
			end = result.End.Line
		}

		f := newFinding(findings.PatternScanner, id, result.Path, start, end, result.Extra.Message, result.Extra.Metadata.CWE.first())
		f.CodeSnippet = result.Extra.Lines
		out.Add(f)
	}

	n.logger.Debug("normalized pattern scanner report", "results", len(report.Results), "projects", len(out))
	return out, nil
}
