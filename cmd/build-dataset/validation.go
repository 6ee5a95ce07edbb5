package builddataset

import (
	"fmt"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/pkg/shared/files"
)

// validate checks the build-dataset flags and returns the findings file of every tool.
func validate(o *RunOptions) (map[findings.Tool]string, error) {
	paths, err := cmdutil.ParseFindingPaths(o.Findings)
	if err != nil {
		return nil, err
	}
	if len(paths) < 2 {
		return nil, fmt.Errorf("--findings must name at least two tools, got %d", len(paths))
	}

	switch o.Window {
	case "":
		o.Window = WindowReport
	case WindowSource, WindowReport:
	default:
		return nil, fmt.Errorf("unknown window %q, use %q or %q", o.Window, WindowSource, WindowReport)
	}

	if o.Selections != "" {
		if err := files.ValidatePath(o.Selections); err != nil {
			return nil, fmt.Errorf("invalid selections path: %w", err)
		}
	}
	return paths, nil
}
