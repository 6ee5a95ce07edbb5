package vcsurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateParse(t *testing.T, expected *VCSURL, got *VCSURL) {
	assert.Equal(t, expected.Namespace, got.Namespace, "Namespace mismatch")
	assert.Equal(t, expected.Repository, got.Repository, "Repository mismatch")
	assert.Equal(t, expected.HTTPRepoLink, got.HTTPRepoLink, "HTTPRepoLink mismatch")
	assert.Equal(t, expected.SSHRepoLink, got.SSHRepoLink, "SSHRepoLink mismatch")
	assert.Equal(t, expected.Raw, got.Raw, "Raw input mismatch")
	assert.Equal(t, expected.PullRequestId, got.PullRequestId, "PullRequestId mismatch")
	assert.Equal(t, expected.CommitSHA, got.CommitSHA, "CommitSHA mismatch")
	assert.Equal(t, expected.VCSType, got.VCSType, "VCSType mismatch")
	assert.NotNil(t, got.ParsedURL, "ParsedURL should not be nil")
}

func TestParseGitURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected VCSURL
	}{
		{
			name:  "GitHub git URL",
			input: "git@github.com:apache/struts.git",
			expected: VCSURL{
				Namespace:    "apache",
				Repository:   "struts",
				HTTPRepoLink: "https://github.com/apache/struts",
				SSHRepoLink:  "ssh://git@github.com/apache/struts.git",
				Raw:          "git@github.com:apache/struts.git",
				VCSType:      Github,
			},
		},
		{
			name:  "Github HTTP URL",
			input: "https://github.com/apache/struts/",
			expected: VCSURL{
				Namespace:    "apache",
				Repository:   "struts",
				HTTPRepoLink: "https://github.com/apache/struts",
				SSHRepoLink:  "ssh://git@github.com/apache/struts.git",
				Raw:          "https://github.com/apache/struts/",
				VCSType:      Github,
			},
		},
		{
			name:  "Github PR URL",
			input: "https://github.com/apache/struts/pull/812",
			expected: VCSURL{
				Namespace:     "apache",
				Repository:    "struts",
				HTTPRepoLink:  "https://github.com/apache/struts",
				SSHRepoLink:   "ssh://git@github.com/apache/struts.git",
				Raw:           "https://github.com/apache/struts/pull/812",
				PullRequestId: "812",
				VCSType:       Github,
			},
		},
		{
			name:  "GitLab web URL",
			input: "https://gitlab.com/gnutls/gnutls",
			expected: VCSURL{
				Namespace:    "gnutls",
				Repository:   "gnutls",
				HTTPRepoLink: "https://gitlab.com/gnutls/gnutls",
				SSHRepoLink:  "ssh://git@gitlab.com/gnutls/gnutls.git",
				Raw:          "https://gitlab.com/gnutls/gnutls",
				VCSType:      Gitlab,
			},
		},
		{
			name:  "Generic HTTPS URL",
			input: "https://git.example.org/team/tools/scanner.git",
			expected: VCSURL{
				Namespace:    "team/tools",
				Repository:   "scanner",
				HTTPRepoLink: "https://git.example.org/team/tools/scanner",
				SSHRepoLink:  "ssh://git@git.example.org/team/tools/scanner.git",
				Raw:          "https://git.example.org/team/tools/scanner.git",
				VCSType:      GenericVCS,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			assert.NoError(t, err, "Parse should not return an error")

			validateParse(t, &tc.expected, got)
		})
	}
}

func TestParseCommitURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected VCSURL
	}{
		{
			name:  "GitHub commit",
			input: "https://github.com/apache/struts/commit/9b0e4ef1c7e8",
			expected: VCSURL{
				Namespace:    "apache",
				Repository:   "struts",
				CommitSHA:    "9b0e4ef1c7e8",
				HTTPRepoLink: "https://github.com/apache/struts",
				SSHRepoLink:  "ssh://git@github.com/apache/struts.git",
				Raw:          "https://github.com/apache/struts/commit/9b0e4ef1c7e8",
				VCSType:      Github,
			},
		},
		{
			name:  "GitHub commits form",
			input: "https://github.com/apache/struts/commits/9b0e4ef1c7e8",
			expected: VCSURL{
				Namespace:    "apache",
				Repository:   "struts",
				CommitSHA:    "9b0e4ef1c7e8",
				HTTPRepoLink: "https://github.com/apache/struts",
				SSHRepoLink:  "ssh://git@github.com/apache/struts.git",
				Raw:          "https://github.com/apache/struts/commits/9b0e4ef1c7e8",
				VCSType:      Github,
			},
		},
		{
			name:  "GitHub commit inside a pull request",
			input: "https://www.github.com/apache/struts/pull/812/commits/9b0e4ef1c7e8",
			expected: VCSURL{
				Namespace:     "apache",
				Repository:    "struts",
				PullRequestId: "812",
				CommitSHA:     "9b0e4ef1c7e8",
				HTTPRepoLink:  "https://www.github.com/apache/struts",
				SSHRepoLink:   "ssh://git@www.github.com/apache/struts.git",
				Raw:           "https://www.github.com/apache/struts/pull/812/commits/9b0e4ef1c7e8",
				VCSType:       Github,
			},
		},
		{
			name:  "GitLab commit in a subgroup",
			input: "https://gitlab.com/gnome/libs/glib/-/commit/ab12cd",
			expected: VCSURL{
				Namespace:    "gnome/libs",
				Repository:   "glib",
				CommitSHA:    "ab12cd",
				HTTPRepoLink: "https://gitlab.com/gnome/libs/glib",
				SSHRepoLink:  "ssh://git@gitlab.com/gnome/libs/glib.git",
				Raw:          "https://gitlab.com/gnome/libs/glib/-/commit/ab12cd",
				VCSType:      Gitlab,
			},
		},
		{
			name:  "GitLab commit inside a merge request",
			input: "https://gitlab.com/gnutls/gnutls/-/merge_requests/7/commits/ab12cd",
			expected: VCSURL{
				Namespace:     "gnutls",
				Repository:    "gnutls",
				PullRequestId: "7",
				CommitSHA:     "ab12cd",
				HTTPRepoLink:  "https://gitlab.com/gnutls/gnutls",
				SSHRepoLink:   "ssh://git@gitlab.com/gnutls/gnutls.git",
				Raw:           "https://gitlab.com/gnutls/gnutls/-/merge_requests/7/commits/ab12cd",
				VCSType:       Gitlab,
			},
		},
		{
			name:  "Self-hosted commit in a nested namespace",
			input: "https://git.example.org/platform/core/api/commit/77aa01",
			expected: VCSURL{
				Namespace:    "platform/core",
				Repository:   "api",
				CommitSHA:    "77aa01",
				HTTPRepoLink: "https://git.example.org/platform/core/api",
				SSHRepoLink:  "ssh://git@git.example.org/platform/core/api.git",
				Raw:          "https://git.example.org/platform/core/api/commit/77aa01",
				VCSType:      GenericVCS,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommitURL(tc.input)
			require.NoError(t, err)

			validateParse(t, &tc.expected, got)
		})
	}
}

func TestParseCommitURLErrors(t *testing.T) {
	for _, input := range []string{
		"https://github.com/apache/struts",
		"https://github.com/apache/struts/commit/",
		"https://github.com/commit/abc",
		"ftp://github.com/apache/struts/commit/abc",
		"not a url",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseCommitURL(input)
			assert.Error(t, err)
		})
	}
}

func TestParseCommitURLSentinel(t *testing.T) {
	_, err := ParseCommitURL("https://github.com/apache/struts/pull/812")
	assert.ErrorIs(t, err, ErrNotCommitURL)
}

func TestOwner(t *testing.T) {
	u, err := ParseCommitURL("https://gitlab.com/gnome/libs/glib/-/commit/ab12cd")
	require.NoError(t, err)
	assert.Equal(t, "gnome", u.Owner())
}
