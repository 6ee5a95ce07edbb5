package correlate

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/correlation"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/files"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the correlate command.
type RunOptions struct {
	Findings  map[string]string `json:"findings,omitempty"`
	Patches   string            `json:"patches,omitempty"`
	Output    string            `json:"output,omitempty"`
	Exclusive bool              `json:"exclusive,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleCorrelateUsage = `  # Correlate SARIF and Semgrep findings against the patch store
  explainify correlate --findings sarif=results/sarif-scanner_findings.json --findings semgrep=results/pattern-scanner_findings.json

  # Also write the findings only one of the tools reported
  explainify correlate --findings sarif=snyk.json,semgrep=semgrep.json --exclusive --output results/correlation.json`

	// CorrelateCmd intersects the findings of several tools.
	CorrelateCmd = &cobra.Command{
		Use:                   "correlate --findings TOOL=PATH [--findings TOOL=PATH...] [--patches PATH] [--exclusive] [--output PATH]",
		Short:                 "Keep the finding locations all tools agree on and join them with their fixing patch",
		Example:               exampleCorrelateUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runCorrelate,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "correlate")

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

	patchesFolder := opts.Patches
	if patchesFolder == "" {
		patchesFolder = AppConfig.Paths.PatchesFolder
	}
	store := patchstore.NewStore(patchesFolder, lg.Named("patches"))

	c := correlation.NewCorrelator(indices, store, lg)
	c.Process()
	result := correlation.NewResult(c, opts.Exclusive)

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, "correlation.json")
	if err := files.WriteJSON(output, result); err != nil {
		lg.Error("failed to write correlation result", "output", output, "error", err)
		return errors.NewCommandError(opts, result, err, 2)
	}

	lg.Info("correlate command completed successfully", "agreed", len(c.Agreed()), "agreements", len(result.Agreements), "output", output)
	return nil
}

func init() {
	CorrelateCmd.Flags().StringToStringVarP(&opts.Findings, "findings", "f", nil, "Normalized findings per tool as TOOL=PATH. Repeat for every tool.")
	CorrelateCmd.Flags().StringVar(&opts.Patches, "patches", "", "Folder with <owner>_patch.json documents. Defaults to the configured patches folder.")
	CorrelateCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the correlation file. Defaults to <results>/correlation.json.")
	CorrelateCmd.Flags().BoolVar(&opts.Exclusive, "exclusive", false, "Also write the findings reported by one tool only.")
	CorrelateCmd.Flags().BoolP("help", "h", false, "Show help for the correlate command.")
}
