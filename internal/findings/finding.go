package findings

import (
	"path"
	"strings"
)

// Tool identifies the static analysis tool a finding came from.
type Tool string

const (
	// SARIFScanner is a scanner reporting in SARIF (Snyk Code).
	SARIFScanner Tool = "sarif-scanner"
	// PatternScanner is a pattern based scanner reporting in Semgrep JSON.
	PatternScanner Tool = "pattern-scanner"
)

// UnknownCWE is used when a report does not declare a weakness for a finding.
const UnknownCWE = "unknown"

// Tools lists the supported tools in a stable order.
var Tools = []Tool{SARIFScanner, PatternScanner}

// ParseTool maps a tool name or a common alias to a Tool.
func ParseTool(name string) (Tool, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(SARIFScanner), "sarif", "snyk":
		return SARIFScanner, true
	case string(PatternScanner), "semgrep", "pattern":
		return PatternScanner, true
	}
	return "", false
}

// Finding is the tool-independent record every report is normalized into.
type Finding struct {
	ID          int    `json:"id"`
	Tool        Tool   `json:"tool"`
	Project     string `json:"project"`
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Message     string `json:"message"`
	CWE         string `json:"cwe"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// Resolvable reports whether the finding has both a file and a start line.
func (f Finding) Resolvable() bool {
	return f.File != "" && f.StartLine > 0
}

// Collection maps a project key to its findings in report order.
type Collection map[string][]Finding

// Add appends f under its project key.
func (c Collection) Add(f Finding) {
	c[f.Project] = append(c[f.Project], f)
}

// Len returns the number of findings over all projects.
func (c Collection) Len() int {
	n := 0
	for _, fs := range c {
		n += len(fs)
	}
	return n
}

// NormalizePath converts a report path to a forward slash relative path.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.TrimPrefix(p, "file://")
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if p == "." {
		return ""
	}
	return p
}

// ProjectKey derives the project of a normalized path: the second segment when the
// path has more than one, otherwise the first one.
func ProjectKey(p string) string {
	segments := strings.Split(p, "/")
	if len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}
