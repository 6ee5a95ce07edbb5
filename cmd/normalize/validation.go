package normalize

import (
	"fmt"
	"strings"

	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/pkg/shared/files"
)

// validate checks the normalize flags and returns the selected tool.
func validate(o *RunOptions) (findings.Tool, error) {
	if strings.TrimSpace(o.Tool) == "" {
		return "", fmt.Errorf("--tool is required")
	}
	tool, ok := findings.ParseTool(o.Tool)
	if !ok {
		return "", fmt.Errorf("unknown tool %q, expected sarif or semgrep", o.Tool)
	}
	if strings.TrimSpace(o.Input) == "" {
		return "", fmt.Errorf("--input is required")
	}
	if err := files.ValidatePath(o.Input); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	return tool, nil
}
