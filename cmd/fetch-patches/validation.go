package fetchpatches

import (
	"fmt"
	"os"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/pkg/shared/files"
	"github.com/explainify/explainify/pkg/shared/vcsurl"
)

// validate checks the fetch-patches flags for the given mode.
func validate(o *RunOptions, mode string, args []string) error {
	if o.Limit < 0 {
		return fmt.Errorf("'limit' cannot be negative")
	}
	if o.RepoPath != "" && o.Clone {
		return fmt.Errorf("'repo-path' and 'clone' cannot be used together")
	}
	if o.RepoPath != "" {
		info, err := os.Stat(o.RepoPath)
		if err != nil {
			return fmt.Errorf("invalid repository path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("repository path %q is not a directory", o.RepoPath)
		}
	}

	switch mode {
	case cmdutil.ModeSingleURL:
		if len(args) != 1 {
			return fmt.Errorf("exactly one commit URL is expected, got %d", len(args))
		}
		if o.CommitList != "" {
			return fmt.Errorf("a commit URL and 'commit-list' cannot be used together")
		}
		if _, err := vcsurl.ParseCommitURL(o.URL); err != nil {
			return err
		}
	case cmdutil.ModeFlags:
		if o.CommitList == "" {
			return fmt.Errorf("either a commit URL or 'commit-list' is required")
		}
		if o.CVEID != "" {
			return fmt.Errorf("'cve' applies to a single commit URL only")
		}
		if err := files.ValidatePath(o.CommitList); err != nil {
			return fmt.Errorf("invalid commit list: %w", err)
		}
	default:
		return fmt.Errorf("invalid mode: %s", mode)
	}
	return nil
}
