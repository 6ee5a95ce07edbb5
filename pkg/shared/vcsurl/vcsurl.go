package vcsurl

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

type VCSType int

const (
	UnknownVCS VCSType = iota // UnknownVCS means that the type of VCS is unknown and not specified and should be determined from the URL
	GenericVCS                // Generic means that we should use generic handler
	Github                    // Github means that the VCS is Github
	Gitlab                    // Gitlab means that the VCS is Gitlab
)

// ErrNotCommitURL is returned by ParseCommitURL for links that do not name a commit.
var ErrNotCommitURL = errors.New("not a commit URL")

var gitSSHURL = regexp.MustCompile(`^git@([^:]+)\:(.*)$`)

// getPathDirs splits the URL path into non-empty segments.
func GetPathDirs(path string) []string {
	var pathDirs []string
	for _, dir := range strings.Split(path, "/") {
		if dir != "" {
			pathDirs = append(pathDirs, dir)
		}
	}
	return pathDirs
}

// define allows schemes: http, https and ssh
var validSchemes = []string{"http", "https", "ssh"}

// function to check whether the scheme is valid
func isValidScheme(scheme string) bool {
	for _, validScheme := range validSchemes {
		if scheme == validScheme {
			return true
		}
	}
	return false
}

// VCSURL represents a parsed VCS URL
type VCSURL struct {
	VCSType       VCSType
	Namespace     string
	Repository    string
	Branch        string
	PullRequestId string
	// CommitSHA is set for links to a single commit.
	CommitSHA    string
	HTTPRepoLink string
	SSHRepoLink  string
	ParsedURL    *url.URL
	Raw          string
}

// Owner returns the first namespace segment, the account owning the repository.
func (u *VCSURL) Owner() string {
	owner, _, _ := strings.Cut(u.Namespace, "/")
	return owner
}

// determineVCSType determines the VCS type based on the hostname
func determineVCSType(host string) (VCSType, error) {
	if strings.Contains(host, "github") {
		return Github, nil
	} else if strings.Contains(host, "gitlab") {
		return Gitlab, nil
	}
	return GenericVCS, fmt.Errorf("unknown VCS type for host: %q", host)
}

// Parse parses a VCS URL and returns a VCSURL struct for unknown VCS Type
func Parse(raw string) (*VCSURL, error) {
	return ParseForVCSType(raw, UnknownVCS)
}

// ParseForVCSType parses a VCS URL and returns a VCSURL struct for a specific VCS Type
func ParseForVCSType(raw string, vcsType VCSType) (*VCSURL, error) {
	vcsURL, err := preparse(raw, vcsType)
	if err != nil {
		return nil, err
	}
	return parseRepository(*vcsURL)
}

// parseRepository handles the URL based on the VCS type.
func parseRepository(u VCSURL) (*VCSURL, error) {
	switch u.VCSType {
	case Github:
		return parseGithub(u)
	case Gitlab:
		return parseGitlab(u)
	default:
		return handleGenericVCS(u)
	}
}

// ParseCommitURL parses a link to one commit. Supported forms are
// <host>/<owner>/<repo>/commit/<sha>, .../commits/<sha>,
// .../pull/<id>/commits/<sha> and the GitLab <namespace>/<repo>/-/commit/<sha>.
// The part before the commit segment is parsed as a repository link of the
// detected VCS type.
func ParseCommitURL(raw string) (*VCSURL, error) {
	u, err := preparse(strings.TrimSpace(raw), UnknownVCS)
	if err != nil {
		return nil, err
	}

	pathDirs := GetPathDirs(u.ParsedURL.Path)
	commitIndex := -1
	for i := 2; i+1 < len(pathDirs); i++ {
		if pathDirs[i] == "commit" || pathDirs[i] == "commits" {
			commitIndex = i
			break
		}
	}
	if commitIndex < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotCommitURL, raw)
	}

	repoDirs := pathDirs[:commitIndex]
	if len(repoDirs) >= 3 && repoDirs[len(repoDirs)-1] == "-" {
		repoDirs = repoDirs[:len(repoDirs)-1]
	}

	repoURL := *u.ParsedURL
	repoURL.Path = "/" + strings.Join(repoDirs, "/")
	repoURL.RawPath, repoURL.RawQuery, repoURL.Fragment = "", "", ""
	repo := *u
	repo.ParsedURL = &repoURL

	parsed, err := parseRepository(repo)
	if err != nil {
		return nil, err
	}
	if parsed.Repository == "" {
		return nil, fmt.Errorf("%w: no repository in %q", ErrNotCommitURL, raw)
	}

	parsed.CommitSHA = pathDirs[commitIndex+1]
	parsed.ParsedURL = u.ParsedURL
	return parsed, nil
}

func preparse(raw string, vcsType VCSType) (*VCSURL, error) {
	var vcsURL VCSURL
	vcsURL.Raw = raw

	// preparse special type of URLs like "git@<host>:<path>"
	target := raw
	if parts := gitSSHURL.FindStringSubmatch(target); len(parts) == 3 {
		target = fmt.Sprintf("ssh://%s/%s", parts[1], parts[2])
	}

	// strip .git suffix from the URL
	target = strings.TrimSuffix(target, ".git")

	parsedURL, err := url.ParseRequestURI(target)
	if err != nil {
		return nil, err
	}
	vcsURL.ParsedURL = parsedURL

	if !isValidScheme(vcsURL.ParsedURL.Scheme) {
		return nil, fmt.Errorf("invalid scheme: %q", vcsURL.Raw)
	}

	// determine VCS type either from the input or from the URL Hostname
	effectiveVCSType := vcsType
	if effectiveVCSType == UnknownVCS {
		effectiveVCSType, _ = determineVCSType(vcsURL.ParsedURL.Hostname())
	}
	vcsURL.VCSType = effectiveVCSType
	return &vcsURL, nil
}

func handleGenericVCS(u VCSURL) (*VCSURL, error) {
	pathDirs := GetPathDirs(u.ParsedURL.Path)

	// Case of working with the whole VCS
	if len(pathDirs) == 0 {
		return &u, nil
	}

	// Case of working with the whole project
	if len(pathDirs) == 1 {
		u.Namespace = pathDirs[0]
		return &u, nil
	}

	// Case of working with the certain repo
	u.Namespace = path.Join(pathDirs[0 : len(pathDirs)-1]...)
	u.Repository = pathDirs[len(pathDirs)-1]
	buildGenericURLs(&u)
	return &u, nil
}

// parseGitlab processes Gitlab URLs to extract repository information.
func parseGitlab(u VCSURL) (*VCSURL, error) {
	pathDirs := GetPathDirs(u.ParsedURL.Path)

	// Search for "merge_requests" in pathDirs (excluding the first three segments)
	mergeRequestIndex, branchIndex := -1, -1
	for i := 3; i < len(pathDirs); i++ {
		if pathDirs[i] == "merge_requests" {
			mergeRequestIndex = i
			break
		} else if pathDirs[i] == "tree" {
			branchIndex = i
			break
		}
	}

	switch {
	// Case of working with the whole VCS - https://gitlab.com/
	case len(pathDirs) == 0:
		return &u, nil
	// Case for working with a root group - https://gitlab.com/<group_name>
	case len(pathDirs) == 1:
		u.Namespace = pathDirs[0]
		return &u, nil
	// Case for working with a specific repository - https://gitlab.com/<group>/<subgroup>/.../<project>
	default:
		if mergeRequestIndex > 2 && mergeRequestIndex+1 < len(pathDirs) && pathDirs[mergeRequestIndex-1] == "-" {
			// MR fetching case - https://gitlab.com/<group_name>/../<project_name>/-/merge_requests/<id>
			u.Namespace = path.Join(pathDirs[:mergeRequestIndex-2]...)
			u.Repository = pathDirs[mergeRequestIndex-2]
			u.PullRequestId = pathDirs[mergeRequestIndex+1]
		} else if branchIndex > 2 && pathDirs[branchIndex-1] == "-" {
			// Repo + Branch fetching case - https://gitlab.com/<group_name>/<project_name>/-/tree/<branch_name>
			u.Namespace = path.Join(pathDirs[:branchIndex-2]...)
			u.Repository = pathDirs[branchIndex-2]
			u.Branch = strings.Join(pathDirs[branchIndex+1:], "/")
		} else {
			u.Namespace = path.Join(pathDirs[:len(pathDirs)-1]...)
			u.Repository = pathDirs[len(pathDirs)-1]
		}

		buildGenericURLs(&u)
		return &u, nil
	}
}

// parseGithub processes Github URLs to extract repository information.
func parseGithub(u VCSURL) (*VCSURL, error) {
	pathDirs := GetPathDirs(u.ParsedURL.Path)

	switch {
	// Case of working with the whole VCS - https://github.com/
	case len(pathDirs) == 0:
		return &u, nil
	// Case for working with a whole project - https://github.com/<project_name>
	case len(pathDirs) == 1:
		u.Namespace = pathDirs[0]
		return &u, nil
	// PR fetching case - https://github.com/<project_name>/<repo_name>/pull/<id>
	// Case for working with a specific repo with a branch https://github.com/<project_name>/<repo_name>/tree/<branch_name>
	case len(pathDirs) > 3:
		u.Namespace = pathDirs[0]
		u.Repository = pathDirs[1]
		if pathDirs[2] == "pull" {
			u.PullRequestId = pathDirs[3]
		} else if pathDirs[2] == "tree" {
			u.Branch = strings.Join(pathDirs[3:], "/")
		}
		buildGenericURLs(&u)
		return &u, nil
	// Case for working with a specific repo - https://github.com/<project_name>/<repo_name>/
	default:
		u.Namespace = pathDirs[0]
		u.Repository = pathDirs[1]
		buildGenericURLs(&u)
		return &u, nil
	}
}

// buildGenericURLs sets the HTTP and SSH URLs for repositories.
func buildGenericURLs(u *VCSURL) {
	u.HTTPRepoLink = fmt.Sprintf("https://%s/%s/%s", u.ParsedURL.Hostname(), u.Namespace, u.Repository)
	u.SSHRepoLink = fmt.Sprintf("ssh://git@%s/%s/%s.git", u.ParsedURL.Hostname(), u.Namespace, u.Repository)
}
