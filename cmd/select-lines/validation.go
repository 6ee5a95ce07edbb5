package selectlines

import (
	"fmt"
	"strings"
)

// validate checks the select-lines flags.
func validate(o *RunOptions, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %s", strings.Join(args, " "))
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("'batch-size' cannot be negative")
	}
	if o.MaxLines < 0 {
		return fmt.Errorf("'max-lines' cannot be negative")
	}
	return nil
}
