package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hashicorp/go-hclog"
)

func TestCommitPatches(t *testing.T) {
	repoDir, baseHash, headHash := setupDiffRepo(t)
	client := newTestGitClient()

	repo, err := client.Open(repoDir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	change, err := client.CommitPatches(context.Background(), repo, headHash)
	if err != nil {
		t.Fatalf("CommitPatches returned error: %v", err)
	}

	if change.Parent != baseHash {
		t.Fatalf("unexpected parent: want %s got %s", baseHash, change.Parent)
	}
	if !strings.HasPrefix(change.Message, "fix unsafe query") {
		t.Fatalf("unexpected message %q", change.Message)
	}

	byPath := make(map[string]FileChange)
	for _, fc := range change.Files {
		byPath[fc.Path] = fc
	}
	if len(byPath) != 3 {
		t.Fatalf("expected 3 changed files, got %d: %v", len(byPath), change.Files)
	}

	data := byPath["src/data.txt"]
	if !strings.HasPrefix(data.Diff, "@@ -1,3 +1,4 @@") {
		t.Fatalf("diff does not start with the hunk header:\n%s", data.Diff)
	}
	if !strings.Contains(data.Diff, "-beta\n+beta2\n") {
		t.Fatalf("diff misses the changed line:\n%s", data.Diff)
	}
	if string(data.Old) != "alpha\nbeta\ngamma\n" {
		t.Fatalf("unexpected old contents %q", data.Old)
	}
	if string(data.New) != "alpha\nbeta2\ngamma\ndelta\n" {
		t.Fatalf("unexpected new contents %q", data.New)
	}

	added := byPath["new.txt"]
	if added.Old != nil {
		t.Fatalf("added file has old contents %q", added.Old)
	}
	if !strings.HasPrefix(added.Diff, "@@ ") || !strings.Contains(added.Diff, "+onlyline\n") {
		t.Fatalf("unexpected diff for added file:\n%s", added.Diff)
	}

	removed := byPath["gone.txt"]
	if removed.New != nil {
		t.Fatalf("deleted file has new contents %q", removed.New)
	}
	if string(removed.Old) != "bye\n" {
		t.Fatalf("unexpected old contents of deleted file %q", removed.Old)
	}
}

func TestCommitPatchesErrors(t *testing.T) {
	repoDir, baseHash, _ := setupDiffRepo(t)
	client := newTestGitClient()

	repo, err := client.Open(filepath.Join(repoDir, "src"))
	if err != nil {
		t.Fatalf("Open from a subfolder returned error: %v", err)
	}

	if _, err := client.CommitPatches(context.Background(), repo, baseHash); !errors.Is(err, ErrNoParent) {
		t.Fatalf("expected ErrNoParent for the root commit, got %v", err)
	}
	if _, err := client.CommitPatches(context.Background(), repo, "not-a-sha"); !errors.Is(err, ErrShortCommitSHA) {
		t.Fatalf("expected ErrShortCommitSHA, got %v", err)
	}
}

func TestOpenOutsideRepository(t *testing.T) {
	client := newTestGitClient()
	if _, err := client.Open(t.TempDir()); err == nil {
		t.Fatalf("expected an error for a folder outside any repository")
	}
}

func TestCloneReusesExistingClone(t *testing.T) {
	originDir, _, headHash := setupDiffRepo(t)
	client := newTestGitClient()
	target := filepath.Join(t.TempDir(), "clone")

	repo, err := client.Clone(context.Background(), originDir, target)
	if err != nil {
		t.Fatalf("Clone returned error: %v", err)
	}
	if _, err := repo.CommitObject(plumbing.NewHash(headHash)); err != nil {
		t.Fatalf("head commit missing from clone: %v", err)
	}

	if _, err := client.Clone(context.Background(), originDir, target); err != nil {
		t.Fatalf("second Clone returned error: %v", err)
	}

	otherDir, _, _ := setupDiffRepo(t)
	if _, err := client.Clone(context.Background(), otherDir, target); !errors.Is(err, ErrDifferentRepo) {
		t.Fatalf("expected ErrDifferentRepo, got %v", err)
	}
}

func TestCloneReusesCloneWithSSHOrigin(t *testing.T) {
	target := filepath.Join(t.TempDir(), "clone")
	repo, err := git.PlainInit(target, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: origin,
		URLs: []string{"git@github.com:acme/shop.git"},
	}); err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}

	client := newTestGitClient()
	if _, err := client.Clone(context.Background(), "https://github.com/acme/shop", target); err != nil {
		t.Fatalf("expected the ssh origin to match, got %v", err)
	}
	if _, err := client.Clone(context.Background(), "https://github.com/acme/billing", target); !errors.Is(err, ErrDifferentRepo) {
		t.Fatalf("expected ErrDifferentRepo, got %v", err)
	}
}

func TestSameRemote(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"https://github.com/acme/shop", "git@github.com:acme/shop.git", true},
		{"https://gitlab.com/gnome/libs/glib", "ssh://git@gitlab.com/gnome/libs/glib.git", true},
		{"https://git.example.org/team/app/", "https://git.example.org/team/app", true},
		{"https://github.com/acme/shop", "https://github.com/acme/billing", false},
		{"https://github.com/acme/shop", "https://gitlab.com/acme/shop", false},
		{"https://github.com/acme", "https://github.com/acme", true},
		{"https://github.com/acme", "git@github.com:acme.git", false},
		{"/tmp/origin", "/tmp/other", false},
	}
	for _, tc := range cases {
		if got := sameRemote(tc.a, tc.b); got != tc.want {
			t.Errorf("sameRemote(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

// setupDiffRepo initialises a temporary repository with two commits and returns
// the repo path along with base and head commit hashes.
func setupDiffRepo(t *testing.T) (string, string, string) {
	t.Helper()

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	baseFiles := map[string]string{
		"src/data.txt": "alpha\nbeta\ngamma\n",
		"gone.txt":     "bye\n",
	}
	baseHash := commitFiles(t, wt, baseFiles, nil, "base commit")

	headFiles := map[string]string{
		"src/data.txt": "alpha\nbeta2\ngamma\ndelta\n",
		"new.txt":      "onlyline\n",
	}
	headHash := commitFiles(t, wt, headFiles, []string{"gone.txt"}, "fix unsafe query\n\nescape beta before use\n")

	return repoDir, baseHash.String(), headHash.String()
}

func newTestGitClient() *Client {
	return &Client{
		logger:  hclog.NewNullLogger(),
		timeout: time.Minute,
	}
}

func commitFiles(t *testing.T, wt *git.Worktree, files map[string]string, removed []string, message string) plumbing.Hash {
	t.Helper()

	for path, content := range files {
		abs := filepath.Join(wt.Filesystem.Root(), path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", abs, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", abs, err)
		}
		if _, err := wt.Add(path); err != nil {
			t.Fatalf("add %s: %v", path, err)
		}
	}
	for _, path := range removed {
		if _, err := wt.Remove(path); err != nil {
			t.Fatalf("remove %s: %v", path, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}
