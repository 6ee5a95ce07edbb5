package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sourcegraph/go-diff/diff"
)

// FileChange is one file touched by a commit. Old is nil for added files and
// New is nil for deleted ones.
type FileChange struct {
	Path string
	Diff string
	Old  []byte
	New  []byte
}

// CommitChange is a commit diffed against its first parent.
type CommitChange struct {
	Hash    string
	Parent  string
	Message string
	Files   []FileChange
}

// CommitPatches diffs the commit sha against its first parent. The per file
// diffs hold only the hunks, starting at the first "@@" header, the way the
// GitHub API reports them. Commits or parents missing from a shallow clone are
// fetched from origin.
func (c *Client) CommitPatches(ctx context.Context, repo *git.Repository, sha string) (*CommitChange, error) {
	hash, err := c.resolveCommit(ctx, repo, sha)
	if err != nil {
		return nil, err
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", sha, err)
	}
	if commit.NumParents() == 0 {
		return nil, fmt.Errorf("%s: %w", sha, ErrNoParent)
	}
	parentHash := commit.ParentHashes[0]
	if err := c.ensureCommitPresent(ctx, repo, parentHash); err != nil {
		return nil, fmt.Errorf("failed to resolve parent of %s: %w", sha, err)
	}
	parent, err := repo.CommitObject(parentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent of %s: %w", sha, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load commit tree: %w", err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load parent tree: %w", err)
	}

	patch, err := parentTree.PatchContext(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	parsed, err := diff.ParseMultiFileDiff([]byte(patch.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	change := &CommitChange{
		Hash:    hash.String(),
		Parent:  parentHash.String(),
		Message: commit.Message,
	}
	for _, fd := range parsed {
		// binary files and pure renames carry no hunks
		if fd == nil || len(fd.Hunks) == 0 {
			continue
		}
		oldPath, newPath := diffPath(fd.OrigName), diffPath(fd.NewName)
		path := newPath
		if path == "" {
			path = oldPath
		}

		body, err := diff.PrintHunks(fd.Hunks)
		if err != nil {
			return nil, fmt.Errorf("failed to print hunks of %q: %w", path, err)
		}
		fc := FileChange{Path: path, Diff: string(body)}
		if fc.Old, err = fileContents(parentTree, oldPath); err != nil {
			return nil, err
		}
		if fc.New, err = fileContents(tree, newPath); err != nil {
			return nil, err
		}
		change.Files = append(change.Files, fc)
	}

	c.logger.Debug("commit diffed", "commit", change.Hash, "parent", change.Parent, "files", len(change.Files))
	return change, nil
}

// fileContents returns the blob at path, or nil when path is empty or absent.
func fileContents(tree *object.Tree, path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	file, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return []byte(contents), nil
}

// resolveCommit turns sha into a commit hash, fetching it when a full hash is
// not available locally. Abbreviated hashes are only resolved from local objects.
func (c *Client) resolveCommit(ctx context.Context, repo *git.Repository, sha string) (plumbing.Hash, error) {
	if h, err := repo.ResolveRevision(plumbing.Revision(sha)); err == nil {
		return *h, nil
	}
	if !plumbing.IsHash(sha) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrShortCommitSHA, sha)
	}
	hash := plumbing.NewHash(sha)
	if err := c.ensureCommitPresent(ctx, repo, hash); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve commit %q: %w", sha, err)
	}
	return hash, nil
}

func (c *Client) ensureCommitPresent(ctx context.Context, repo *git.Repository, hash plumbing.Hash) error {
	if _, err := repo.CommitObject(hash); err != nil {
		c.logger.Debug("commit missing locally, attempting fetch", "hash", hash.String())
		if err := c.fetchCommit(ctx, repo, hash); err != nil {
			return err
		}
	}
	return nil
}

// fetchCommit fetches hash and its parent from the first available remote.
func (c *Client) fetchCommit(ctx context.Context, repo *git.Repository, hash plumbing.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	remoteName := origin
	if _, err := repo.Remote(remoteName); err != nil {
		remotes, rErr := repo.Remotes()
		if rErr != nil || len(remotes) == 0 {
			return fmt.Errorf("no remotes available to fetch commit %s", hash.String())
		}
		remoteName = remotes[0].Config().Name
	}

	tmpRef := plumbing.ReferenceName(tmpRefPrefix + hash.String())
	refspec := config.RefSpec(fmt.Sprintf("+%s:%s", hash.String(), tmpRef.String()))
	defer func() {
		_ = repo.Storer.RemoveReference(tmpRef)
	}()

	c.logger.Debug("fetching commit", "remote", remoteName, "hash", hash.String())
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		Auth:       c.auth,
		Progress:   c.output(),
		Depth:      2,
		RefSpecs:   []config.RefSpec{refspec},
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Warn("fetch commit failed", "hash", hash.String(), "error", err)
		return err
	}

	if _, err := repo.CommitObject(hash); err != nil {
		return err
	}
	c.logger.Debug("commit fetched", "hash", hash.String())
	return nil
}
