package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/explainify/explainify/internal/correlation"
	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/pkg/shared/files"
)

// Mode constants
const (
	ModeSingleURL = "single-url"
	ModeFlags     = "flags"
)

// DetermineMode determines the mode based on the provided arguments.
func DetermineMode(args []string) string {
	if len(args) > 0 {
		return ModeSingleURL
	}
	return ModeFlags
}

// ResultPath returns where a command writes its result. An empty output means
// <resultsFolder>/<name>; an output naming a folder gets name appended.
func ResultPath(output, resultsFolder, name string) string {
	if output == "" {
		return filepath.Join(resultsFolder, name)
	}
	full, _, err := files.DetermineFileFullPath(output, name)
	if err != nil {
		return output
	}
	return full
}

// ParseFindingPaths maps tool names given on the command line to tools.
func ParseFindingPaths(paths map[string]string) (map[findings.Tool]string, error) {
	out := make(map[findings.Tool]string, len(paths))
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tool, ok := findings.ParseTool(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		if _, dup := out[tool]; dup {
			return nil, fmt.Errorf("tool %q given twice", tool)
		}
		if paths[name] == "" {
			return nil, fmt.Errorf("no findings file for tool %q", name)
		}
		out[tool] = paths[name]
	}
	return out, nil
}

// LoadIndices reads normalized findings files and indexes them per tool.
func LoadIndices(paths map[findings.Tool]string) (map[findings.Tool]correlation.LocationIndex, error) {
	indices := make(map[findings.Tool]correlation.LocationIndex, len(paths))
	for tool, path := range paths {
		var c findings.Collection
		if err := files.ReadJSON(path, &c); err != nil {
			return nil, fmt.Errorf("failed to load %s findings: %w", tool, err)
		}
		indices[tool] = correlation.BuildIndex(c)
	}
	return indices, nil
}
