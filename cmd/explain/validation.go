package explain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/explainify/explainify/pkg/shared/files"
)

var cweID = regexp.MustCompile(`^CWE-\d+$`)

// validate checks the explain flags. selections is the resolved dataset path.
func validate(o *RunOptions, selections string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %s", strings.Join(args, " "))
	}
	if err := files.ValidatePath(selections); err != nil {
		return fmt.Errorf("invalid selections path: %w", err)
	}
	if o.Dataset != "" {
		if err := files.ValidatePath(o.Dataset); err != nil {
			return fmt.Errorf("invalid dataset path: %w", err)
		}
	}
	if o.CWE != "" && !cweID.MatchString(o.CWE) {
		return fmt.Errorf("'cwe' must look like CWE-89, got %q", o.CWE)
	}
	return nil
}
