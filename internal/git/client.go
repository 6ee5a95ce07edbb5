package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/pkg/shared/files"
	log "github.com/explainify/explainify/pkg/shared/logger"
	"github.com/explainify/explainify/pkg/shared/vcsurl"
)

const (
	origin         = "origin"
	tmpRefPrefix   = "refs/explainify/tmp/"
	defaultTimeout = 10 * time.Minute
)

// Options configures a Client.
type Options struct {
	// Token is sent as HTTP basic auth password, the way GitHub accepts tokens for git.
	Token   string
	Timeout time.Duration
	// Depth limits clones; 0 clones the full history.
	Depth int
}

// Client reads commits from local clones and fetches what is missing.
type Client struct {
	logger  hclog.Logger
	auth    transport.AuthMethod
	timeout time.Duration
	depth   int
}

// New creates a git client.
func New(logger hclog.Logger, opts Options) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Client{
		logger:  logger,
		timeout: opts.Timeout,
		depth:   opts.Depth,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if opts.Token != "" {
		logger.Debug("using token authentication for git")
		c.auth = &http.BasicAuth{Username: "x-access-token", Password: opts.Token}
	}
	return c
}

// Open opens the repository containing path, which may be a subfolder of the worktree.
func (c *Client) Open(path string) (*git.Repository, error) {
	expanded, err := files.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	root, err := findGitRepositoryPath(expanded)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", root, err)
	}
	c.logger.Debug("repository opened", "path", root)
	return repo, nil
}

// Clone clones cloneURL into targetFolder without a checkout. An existing
// clone of the same remote is reused.
func (c *Client) Clone(ctx context.Context, cloneURL, targetFolder string) (*git.Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := files.CreateFolderIfNotExists(targetFolder); err != nil {
		return nil, err
	}

	c.logger.Info("cloning repository", "url", cloneURL, "targetFolder", targetFolder)
	repo, err := git.PlainCloneContext(ctx, targetFolder, false, &git.CloneOptions{
		URL:        cloneURL,
		Auth:       c.auth,
		Progress:   c.output(),
		Depth:      c.depth,
		NoCheckout: true,
		Tags:       git.NoTags,
	})
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(targetFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to open existing repository %q: %w", targetFolder, err)
		}
		if err := checkRemote(repo, cloneURL); err != nil {
			return nil, err
		}
		c.logger.Debug("reusing existing clone", "targetFolder", targetFolder)
		return repo, nil
	}
	if err != nil {
		c.logger.Error("failed to clone repository", "url", cloneURL, "error", err)
		return nil, fmt.Errorf("failed to clone %q: %w", cloneURL, err)
	}
	return repo, nil
}

func (c *Client) output() io.Writer {
	return io.MultiWriter(log.GetLoggerOutput(c.logger), os.Stderr)
}

// checkRemote makes sure repo was cloned from cloneURL.
func checkRemote(repo *git.Repository, cloneURL string) error {
	remote, err := repo.Remote(origin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDifferentRepo, err)
	}
	for _, u := range remote.Config().URLs {
		if sameRemote(u, cloneURL) {
			return nil
		}
	}
	return fmt.Errorf("%w: origin is %v", ErrDifferentRepo, remote.Config().URLs)
}

// sameRemote reports whether two remote URLs name the same repository, so an
// ssh origin matches its https link. Local paths must be equal.
func sameRemote(a, b string) bool {
	if a == b {
		return true
	}
	ua, err := vcsurl.Parse(a)
	if err != nil {
		return false
	}
	ub, err := vcsurl.Parse(b)
	if err != nil {
		return false
	}
	return ua.Repository != "" &&
		strings.EqualFold(ua.ParsedURL.Hostname(), ub.ParsedURL.Hostname()) &&
		ua.Namespace == ub.Namespace &&
		ua.Repository == ub.Repository
}
