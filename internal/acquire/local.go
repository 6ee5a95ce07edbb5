package acquire

import (
	"context"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/git"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/files"
	"github.com/explainify/explainify/pkg/shared/vcsurl"
)

// LocalFetcher reads commits from git clones instead of the GitHub API.
// With RepoPath set every commit is read from that clone; otherwise each
// repository is cloned into <downloads>/repos/<owner>/<repo>.
type LocalFetcher struct {
	git      *git.Client
	store    *patchstore.Store
	opts     Options
	repoPath string
	repos    map[string]*gogit.Repository
	logger   hclog.Logger
}

// NewLocalFetcher creates a LocalFetcher.
func NewLocalFetcher(client *git.Client, repoPath string, store *patchstore.Store, opts Options, logger hclog.Logger) *LocalFetcher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LocalFetcher{
		git:      client,
		store:    store,
		opts:     opts,
		repoPath: repoPath,
		repos:    make(map[string]*gogit.Repository),
		logger:   logger,
	}
}

// Fetch stores one commit. Filtered commits return an error wrapping ErrSkipped.
func (f *LocalFetcher) Fetch(ctx context.Context, ref CommitRef) (Commit, error) {
	u, err := vcsurl.ParseCommitURL(ref.URL)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	owner, repoName, sha := u.Owner(), u.Repository, u.CommitSHA

	repo, err := f.repository(ctx, u)
	if err != nil {
		return Commit{}, err
	}
	change, err := f.git.CommitPatches(ctx, repo, sha)
	if err != nil {
		return Commit{}, fmt.Errorf("failed to diff commit %s/%s@%s: %w", owner, repoName, sha, err)
	}

	message := CleanMessage(change.Message)
	if reason := SkipReason(message, f.opts.MinMessageLength); reason != "" {
		return Commit{}, fmt.Errorf("%w: %s", ErrSkipped, reason)
	}
	if len(change.Files) == 0 {
		return Commit{}, fmt.Errorf("%w: no files changed", ErrSkipped)
	}

	commit := Commit{
		CVEID:         ref.CVEID,
		Repo:          repoName,
		CommitHash:    change.Hash,
		CommitMessage: message,
	}
	records := make(map[string]patchstore.PatchRecord, len(change.Files))
	for _, file := range change.Files {
		diff := patchstore.Sanitize(file.Diff)
		commit.FilesChanged = append(commit.FilesChanged, ChangedFile{
			Filename: file.Path,
			Diff:     diff,
		})
		records[file.Path] = patchstore.PatchRecord{
			CVEID:   ref.CVEID,
			Repo:    repoName,
			Diff:    diff,
			Message: message,
		}

		if file.Old != nil {
			saveFile(f.opts.DownloadsFolder, DownloadPath(f.opts.DownloadsFolder, owner, "old", file.Path), file.Old, f.logger)
		}
		if file.New != nil {
			saveFile(f.opts.DownloadsFolder, DownloadPath(f.opts.DownloadsFolder, owner, "new", file.Path), file.New, f.logger)
		}
	}

	if err := f.store.SavePatches(owner, records); err != nil {
		return Commit{}, err
	}
	f.logger.Info("commit stored", "owner", owner, "repo", repoName, "commit", change.Hash, "files", len(records))
	return commit, nil
}

func (f *LocalFetcher) repository(ctx context.Context, u *vcsurl.VCSURL) (*gogit.Repository, error) {
	key := f.repoPath
	if key == "" {
		key = u.HTTPRepoLink
	}
	if repo, ok := f.repos[key]; ok {
		return repo, nil
	}

	var (
		repo *gogit.Repository
		err  error
	)
	if f.repoPath != "" {
		repo, err = f.git.Open(f.repoPath)
	} else {
		var target string
		target, err = files.EnsureWithinRoot(f.opts.DownloadsFolder, filepath.Join(f.opts.DownloadsFolder, "repos", u.Owner(), u.Repository))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSkipped, err)
		}
		repo, err = f.git.Clone(ctx, u.HTTPRepoLink, target)
	}
	if err != nil {
		return nil, err
	}
	f.repos[key] = repo
	return repo, nil
}
