package fetchpatches

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/explainify/explainify/internal/acquire"
	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/git"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/httpclient"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the fetch-patches command.
type RunOptions struct {
	CommitList string `json:"commit_list,omitempty"`
	CVEID      string `json:"cve_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	RepoPath   string `json:"repo_path,omitempty"`
	Clone      bool   `json:"clone,omitempty"`
	Patches    string `json:"patches,omitempty"`
	Output     string `json:"output,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleFetchPatchesUsage = `  # Fetch a single fixing commit through the GitHub API
  explainify fetch-patches --cve CVE-2021-44228 https://github.com/apache/logging-log4j2/commit/c77b3cb

  # Fetch the first 50 commits of a list with cve_id;commit_url rows
  explainify fetch-patches --commit-list commits.csv --limit 50

  # Diff commits in a local clone instead of calling the API
  explainify fetch-patches --commit-list commits.csv --repo-path ~/src/logging-log4j2

  # Clone every repository into the downloads folder and diff locally
  explainify fetch-patches --commit-list commits.csv --clone`

	// FetchPatchesCmd fills the patch store from fixing commits.
	FetchPatchesCmd = &cobra.Command{
		Use:                   "fetch-patches [--cve CVE-ID] [--limit N] [--repo-path PATH | --clone] [--output PATH] {--commit-list PATH | URL}",
		Short:                 "Download fixing commits into the patch store",
		Example:               exampleFetchPatchesUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runFetchPatches,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runFetchPatches(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "fetch-patches")

	mode := cmdutil.DetermineMode(args)
	if mode == cmdutil.ModeSingleURL {
		opts.URL = args[0]
	}
	if err := validate(&opts, mode, args); err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	refs, err := commitRefs(mode)
	if err != nil {
		lg.Error("failed to read commit list", "path", opts.CommitList, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	patchesFolder := config.SetThen(opts.Patches, AppConfig.Paths.PatchesFolder)
	store := patchstore.NewStore(patchesFolder, lg.Named("patches"))

	src, err := newSource(store, lg)
	if err != nil {
		lg.Error("failed to create commit source", "error", err)
		return errors.NewCommandError(opts, nil, err, 1)
	}

	commits := acquire.Run(cmd.Context(), src, refs, opts.Limit, lg)

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, "commits.json")
	if err := acquire.SaveCommits(output, commits); err != nil {
		lg.Error("failed to write commit summary", "output", output, "error", err)
		return errors.NewCommandError(opts, commits, err, 2)
	}

	lg.Info("fetch-patches command completed successfully", "requested", len(refs), "stored", len(commits), "output", output)
	return nil
}

func commitRefs(mode string) ([]acquire.CommitRef, error) {
	if mode == cmdutil.ModeSingleURL {
		return []acquire.CommitRef{{CVEID: opts.CVEID, URL: opts.URL}}, nil
	}
	return acquire.ReadCommitList(opts.CommitList)
}

// newSource diffs in git when a repository path or cloning is requested and
// falls back to the GitHub API otherwise.
func newSource(store *patchstore.Store, lg hclog.Logger) (acquire.Source, error) {
	fetchOpts := acquire.OptionsFromConfig(AppConfig)
	if opts.RepoPath == "" && !opts.Clone {
		return acquire.NewFetcher(httpclient.InitializeRestyClient(lg.Named("http"), AppConfig), store, fetchOpts, lg)
	}

	client := git.New(lg.Named("git"), git.Options{
		Token:   AppConfig.GitHub.Token,
		Timeout: AppConfig.GitClient.Timeout,
		Depth:   AppConfig.GitClient.Depth,
	})
	return acquire.NewLocalFetcher(client, opts.RepoPath, store, fetchOpts, lg), nil
}

func init() {
	FetchPatchesCmd.Flags().StringVar(&opts.CommitList, "commit-list", "", "File with cve_id;commit_url rows.")
	FetchPatchesCmd.Flags().StringVar(&opts.CVEID, "cve", "", "CVE identifier of the commit given as argument.")
	FetchPatchesCmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of commits to store; 0 stores all.")
	FetchPatchesCmd.Flags().StringVar(&opts.RepoPath, "repo-path", "", "Local clone to diff commits in instead of using the GitHub API.")
	FetchPatchesCmd.Flags().BoolVar(&opts.Clone, "clone", false, "Clone repositories into the downloads folder and diff commits locally.")
	FetchPatchesCmd.Flags().StringVar(&opts.Patches, "patches", "", "Folder for <owner>_patch.json documents. Defaults to the configured patches folder.")
	FetchPatchesCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the commit summary. Defaults to <results>/commits.json.")
	FetchPatchesCmd.Flags().BoolP("help", "h", false, "Show help for the fetch-patches command.")
}
