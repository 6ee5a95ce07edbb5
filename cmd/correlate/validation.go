package correlate

import (
	"fmt"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/findings"
)

// validate checks the correlate flags and returns the findings file of every tool.
func validate(o *RunOptions) (map[findings.Tool]string, error) {
	paths, err := cmdutil.ParseFindingPaths(o.Findings)
	if err != nil {
		return nil, err
	}
	if len(paths) < 2 {
		return nil, fmt.Errorf("--findings must name at least two tools, got %d", len(paths))
	}
	return paths, nil
}
