// Package acquire downloads CVE fixing commits and stores their per-file diffs
// and file versions for the later pipeline stages.
package acquire

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/pkg/shared/files"
)

// Source stores one commit. Filtered commits return an error wrapping ErrSkipped.
type Source interface {
	Fetch(ctx context.Context, ref CommitRef) (Commit, error)
}

// CommitRef is one commit link, optionally tagged with the CVE it fixes.
type CommitRef struct {
	CVEID string `json:"cve_id"`
	URL   string `json:"url"`
}

// ChangedFile is one file of a fetched commit.
type ChangedFile struct {
	Filename string `json:"filename"`
	OldURL   string `json:"old_url"`
	NewURL   string `json:"new_url"`
	Diff     string `json:"diff"`
}

// Commit is the summary of one stored commit.
type Commit struct {
	CVEID         string        `json:"cve_id"`
	Repo          string        `json:"repo"`
	CommitHash    string        `json:"commit_hash"`
	CommitMessage string        `json:"commit_message"`
	FilesChanged  []ChangedFile `json:"files_changed"`
}

// ReadCommitList reads "cve;url" lines. Blank lines and lines starting with '#'
// are ignored; a line with only a URL gets an empty CVE id.
func ReadCommitList(path string) ([]CommitRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open commit list %q: %w", path, err)
	}
	defer f.Close()

	return parseCommitList(f)
}

func parseCommitList(r io.Reader) ([]CommitRef, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var refs []CommitRef
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse commit list: %w", err)
		}

		switch {
		case len(record) == 1 && strings.TrimSpace(record[0]) != "":
			refs = append(refs, CommitRef{URL: strings.TrimSpace(record[0])})
		case len(record) >= 2 && strings.TrimSpace(record[1]) != "":
			refs = append(refs, CommitRef{CVEID: strings.TrimSpace(record[0]), URL: strings.TrimSpace(record[1])})
		}
	}
	return refs, nil
}

// SaveCommits writes the commit summaries as indented JSON.
func SaveCommits(path string, commits []Commit) error {
	return files.WriteJSON(path, commits)
}

// Run fetches refs in order until limit commits were stored; limit 0 means all.
// Failing commits are logged and skipped.
func Run(ctx context.Context, src Source, refs []CommitRef, limit int, logger hclog.Logger) []Commit {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var commits []Commit
	for _, ref := range refs {
		if limit > 0 && len(commits) >= limit {
			logger.Info("commit limit reached", "limit", limit)
			break
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("commit fetching interrupted", "error", err)
			break
		}
		commit, err := src.Fetch(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrSkipped) {
				logger.Info("skipping commit", "url", ref.URL, "reason", err)
			} else {
				logger.Error("failed to fetch commit", "url", ref.URL, "error", err)
			}
			continue
		}
		commits = append(commits, commit)
	}
	return commits
}

// DownloadPath is where a file version is stored: <downloads>/<owner>/<old|new>/<basename>.
func DownloadPath(downloads, owner, version, name string) string {
	return filepath.Join(downloads, owner, version, path.Base(name))
}

// saveFile writes data to target, which must stay inside the downloads folder.
// Failures are logged only.
func saveFile(downloads, target string, data []byte, logger hclog.Logger) {
	target, err := files.EnsureWithinRoot(downloads, target)
	if err != nil {
		logger.Warn("refusing to save file outside the downloads folder", "error", err)
		return
	}
	if err := files.CreateFolderIfNotExists(filepath.Dir(target)); err != nil {
		logger.Warn("failed to create download folder", "path", target, "error", err)
		return
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		logger.Warn("failed to save file", "path", target, "error", err)
		return
	}
	logger.Debug("file saved", "path", target)
}
