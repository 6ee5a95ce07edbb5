package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-github/v57/github"
	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/httpclient"
	"github.com/explainify/explainify/pkg/shared/vcsurl"
)

// ErrSkipped marks commits that are left out on purpose.
var ErrSkipped = errors.New("commit skipped")

// Options configures a Fetcher.
type Options struct {
	Token            string
	APIURL           string
	RawURL           string
	DownloadsFolder  string
	MinMessageLength int
}

// OptionsFromConfig reads the fetcher settings from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Token:            cfg.GitHub.Token,
		APIURL:           cfg.GitHub.APIURL,
		RawURL:           cfg.GitHub.RawURL,
		DownloadsFolder:  cfg.Paths.DownloadsFolder,
		MinMessageLength: cfg.GitHub.MinMessageLength,
	}
}

// Fetcher reads commits from the GitHub API, stores their diffs in a patch store
// and downloads both versions of every changed file.
type Fetcher struct {
	github *github.Client
	http   *resty.Client
	store  *patchstore.Store
	opts   Options
	logger hclog.Logger
}

// NewFetcher creates a Fetcher. The GitHub client shares the transport of restyClient.
func NewFetcher(restyClient *resty.Client, store *patchstore.Store, opts Options, logger hclog.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if restyClient == nil {
		restyClient = httpclient.NewRestyClient(logger, config.DefaultRestyConfig())
	}

	// own copy, WithAuthToken replaces the transport in place
	httpClient := *restyClient.GetClient()
	client := github.NewClient(&httpClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.APIURL != "" && opts.APIURL != config.DefaultGitHubAPIURL {
		base, err := url.Parse(withSlash(opts.APIURL))
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.APIURL, err)
		}
		client.BaseURL = base
	}
	if opts.RawURL == "" {
		opts.RawURL = config.DefaultGitHubRawURL
	}

	return &Fetcher{
		github: client,
		http:   restyClient,
		store:  store,
		opts:   opts,
		logger: logger,
	}, nil
}

// Fetch stores one commit. Filtered commits return an error wrapping ErrSkipped.
func (f *Fetcher) Fetch(ctx context.Context, ref CommitRef) (Commit, error) {
	u, err := vcsurl.ParseCommitURL(ref.URL)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	owner, repo, sha := u.Owner(), u.Repository, u.CommitSHA

	rc, _, err := f.github.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return Commit{}, fmt.Errorf("failed to get commit %s/%s@%s: %w", owner, repo, sha, err)
	}

	message := CleanMessage(rc.GetCommit().GetMessage())
	if reason := SkipReason(message, f.opts.MinMessageLength); reason != "" {
		return Commit{}, fmt.Errorf("%w: %s", ErrSkipped, reason)
	}
	if len(rc.Files) == 0 {
		return Commit{}, fmt.Errorf("%w: no files changed", ErrSkipped)
	}
	if len(rc.Parents) == 0 || rc.Parents[0].GetSHA() == "" {
		return Commit{}, fmt.Errorf("%w: no parent commit", ErrSkipped)
	}
	parent := rc.Parents[0].GetSHA()

	commit := Commit{
		CVEID:         ref.CVEID,
		Repo:          repo,
		CommitHash:    sha,
		CommitMessage: message,
	}
	records := make(map[string]patchstore.PatchRecord, len(rc.Files))
	for _, file := range rc.Files {
		name := file.GetFilename()
		if name == "" {
			continue
		}
		diff := patchstore.Sanitize(file.GetPatch())
		changed := ChangedFile{
			Filename: name,
			OldURL:   f.rawURL(owner, repo, parent, name),
			NewURL:   f.rawURL(owner, repo, sha, name),
			Diff:     diff,
		}
		commit.FilesChanged = append(commit.FilesChanged, changed)
		records[name] = patchstore.PatchRecord{
			CVEID:   ref.CVEID,
			Repo:    repo,
			Diff:    diff,
			Message: message,
		}

		f.download(ctx, changed.OldURL, f.downloadPath(owner, "old", name))
		f.download(ctx, changed.NewURL, f.downloadPath(owner, "new", name))
	}

	if err := f.store.SavePatches(owner, records); err != nil {
		return Commit{}, err
	}
	f.logger.Info("commit stored", "owner", owner, "repo", repo, "commit", sha, "files", len(records))
	return commit, nil
}

func (f *Fetcher) rawURL(owner, repo, ref, name string) string {
	return withSlash(f.opts.RawURL) + path.Join(owner, repo, ref, name)
}

func (f *Fetcher) downloadPath(owner, version, name string) string {
	return DownloadPath(f.opts.DownloadsFolder, owner, version, name)
}

// download stores the body of rawURL at target. Failures are logged only, a
// missing old version is normal for added files.
func (f *Fetcher) download(ctx context.Context, rawURL, target string) {
	resp, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		f.logger.Warn("failed to download file", "url", rawURL, "error", err)
		return
	}
	if resp.IsError() {
		f.logger.Warn("failed to download file", "url", rawURL, "status", resp.StatusCode())
		return
	}
	saveFile(f.opts.DownloadsFolder, target, resp.Body(), f.logger)
}

// CleanMessage puts a commit message on one line and removes the list separator.
func CleanMessage(message string) string {
	message = strings.ReplaceAll(message, "\r\n", " ")
	message = strings.ReplaceAll(message, "\n", " ")
	return patchstore.Sanitize(message)
}

// SkipReason tells why a commit message is not used, or "" when it is.
func SkipReason(message string, minLength int) string {
	if len(message) < minLength {
		return "commit message is too short"
	}
	if strings.Contains(strings.ToLower(message), "merge commit") {
		return "merge commit"
	}
	return ""
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
