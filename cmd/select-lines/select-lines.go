package selectlines

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/generation"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the select-lines command.
type RunOptions struct {
	Patches   string `json:"patches,omitempty"`
	Output    string `json:"output,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	MaxLines  int    `json:"max_lines,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleSelectLinesUsage = `  # Select the important lines of every patch document with the configured model
  explainify select-lines

  # Only send the first 5 documents and write to a custom file
  explainify select-lines --batch-size 5 --output results/lines_batch.json`

	// SelectLinesCmd asks a model for the important lines of every patch document.
	SelectLinesCmd = &cobra.Command{
		Use:                   "select-lines [--patches PATH] [--batch-size N] [--max-lines N] [--output PATH]",
		Short:                 "Ask a model for the most important lines of every CVE fix",
		Example:               exampleSelectLinesUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runSelectLines,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runSelectLines(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "select-lines")

	if err := validate(&opts, args); err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	selCfg := lineselect.ConfigFrom(AppConfig)
	if cmd.Flags().Changed("batch-size") {
		selCfg.BatchSize = opts.BatchSize
	}
	if cmd.Flags().Changed("max-lines") {
		selCfg.MaxLinesPerHunk = opts.MaxLines
	}

	gen, err := generation.New(cmd.Context(), AppConfig, lg.Named("generation"))
	if err != nil {
		lg.Error("failed to create generator", "error", err)
		return errors.NewCommandError(opts, nil, err, 1)
	}

	patchesFolder := opts.Patches
	if patchesFolder == "" {
		patchesFolder = AppConfig.Paths.PatchesFolder
	}
	store := patchstore.NewStore(patchesFolder, lg.Named("patches"))

	dataset, err := lineselect.NewSelector(gen, selCfg, lg).Run(cmd.Context(), store)
	if err != nil {
		lg.Error("line selection failed", "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, "relevant_lines.json")
	if err := dataset.Save(output); err != nil {
		lg.Error("failed to write line selection dataset", "output", output, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	lg.Info("select-lines command completed successfully", "documents", len(dataset), "output", output)
	return nil
}

func init() {
	SelectLinesCmd.Flags().StringVar(&opts.Patches, "patches", "", "Folder with <owner>_patch.json documents. Defaults to the configured patches folder.")
	SelectLinesCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the dataset file. Defaults to <results>/relevant_lines.json.")
	SelectLinesCmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "Maximum number of documents sent to the model; 0 sends all.")
	SelectLinesCmd.Flags().IntVar(&opts.MaxLines, "max-lines", 0, "Number of lines per patch the prompt calls too many.")
	SelectLinesCmd.Flags().BoolP("help", "h", false, "Show help for the select-lines command.")
}
