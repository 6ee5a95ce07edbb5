package builddataset

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/correlation"
	"github.com/explainify/explainify/internal/dataset"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/internal/snippet"
	"github.com/explainify/explainify/pkg/shared"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// Context windows
const (
	WindowSource = "source"
	WindowReport = "report"
)

// RunOptions holds flags for the build-dataset command.
type RunOptions struct {
	Findings   map[string]string `json:"findings,omitempty"`
	Selections string            `json:"selections,omitempty"`
	Window     string            `json:"window,omitempty"`
	Patches    string            `json:"patches,omitempty"`
	Downloads  string            `json:"downloads,omitempty"`
	Output     string            `json:"output,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleBuildDatasetUsage = `  # Build dataset records from two normalized findings files
  explainify build-dataset --findings sarif=results/sarif-scanner_findings.json --findings semgrep=results/pattern-scanner_findings.json

  # Attach the selected lines and use the wider source window
  explainify build-dataset -f sarif=snyk.json,semgrep=semgrep.json --selections results/relevant_lines.json --window source`

	// BuildDatasetCmd joins agreed findings with their diffs and source context.
	BuildDatasetCmd = &cobra.Command{
		Use:                   "build-dataset --findings TOOL=PATH [--findings TOOL=PATH...] [--selections PATH] [--window source|report] [--output PATH]",
		Short:                 "Build dataset records from agreed findings, fixing hunks and source context",
		Example:               exampleBuildDatasetUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runBuildDataset,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runBuildDataset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "build-dataset")

	paths, err := validate(&opts)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	indices, err := cmdutil.LoadIndices(paths)
	if err != nil {
		lg.Error("failed to load findings", "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	var selections lineselect.Dataset
	if opts.Selections != "" {
		selections, err = lineselect.LoadDataset(opts.Selections)
		if err != nil {
			lg.Error("failed to load line selections", "error", err)
			return errors.NewCommandError(opts, nil, err, 2)
		}
	}

	patchesFolder := config.SetThen(opts.Patches, AppConfig.Paths.PatchesFolder)
	downloads := config.SetThen(opts.Downloads, AppConfig.Paths.DownloadsFolder)

	store := patchstore.NewStore(patchesFolder, lg.Named("patches"))
	c := correlation.NewCorrelator(indices, store, lg)
	c.Process()

	builder := dataset.NewBuilder(newExtractor(opts.Window, lg), downloads, store, selections, lg)
	records := builder.Build(c.Agreements())

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, "dataset.json")
	if err := dataset.Save(output, records); err != nil {
		lg.Error("failed to write dataset", "output", output, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	lg.Info("build-dataset command completed successfully", "records", len(records), "output", output)
	return nil
}

// newExtractor picks the context window. Both use the finding lines as slice
// bounds and differ only in how many lines they keep around them.
func newExtractor(window string, lg hclog.Logger) *snippet.Extractor {
	if window == WindowSource {
		return snippet.NewExtractor(snippet.WindowFromConfig(AppConfig.Context.SourceWindow), lg.Named("snippet"))
	}
	return snippet.NewReportExtractor(snippet.WindowFromConfig(AppConfig.Context.ReportWindow), lg.Named("snippet"))
}

func init() {
	BuildDatasetCmd.Flags().StringToStringVarP(&opts.Findings, "findings", "f", nil, "Normalized findings per tool as TOOL=PATH. Repeat for every tool.")
	BuildDatasetCmd.Flags().StringVar(&opts.Selections, "selections", "", "Line selection dataset written by select-lines.")
	BuildDatasetCmd.Flags().StringVar(&opts.Window, "window", WindowReport, "Context window: source (5 lines before the finding) or report (3 lines before).")
	BuildDatasetCmd.Flags().StringVar(&opts.Patches, "patches", "", "Folder with <owner>_patch.json documents. Defaults to the configured patches folder.")
	BuildDatasetCmd.Flags().StringVar(&opts.Downloads, "downloads", "", "Folder with downloaded file versions. Defaults to the configured downloads folder.")
	BuildDatasetCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the dataset file. Defaults to <results>/dataset.json.")
	BuildDatasetCmd.Flags().BoolP("help", "h", false, "Show help for the build-dataset command.")
}
