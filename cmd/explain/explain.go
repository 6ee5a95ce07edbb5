package explain

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/dataset"
	explainer "github.com/explainify/explainify/internal/explain"
	"github.com/explainify/explainify/internal/generation"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the explain command.
type RunOptions struct {
	Selections string `json:"selections,omitempty"`
	Dataset    string `json:"dataset,omitempty"`
	CWE        string `json:"cwe,omitempty"`
	Patches    string `json:"patches,omitempty"`
	Output     string `json:"output,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleExplainUsage = `  # Explain every entry of the default line selection dataset
  explainify explain

  # Take the weakness of each fix from a built dataset
  explainify explain --selections results/relevant_lines.json --dataset results/dataset.json

  # Use one weakness for all fixes
  explainify explain --cwe CWE-79 --output results/xss_explanations.json`

	// ExplainCmd asks a model to explain every selected fix.
	ExplainCmd = &cobra.Command{
		Use:                   "explain [--selections PATH] [--dataset PATH] [--cwe CWE-ID] [--output PATH]",
		Short:                 "Write a model explanation for every CVE fix with selected lines",
		Example:               exampleExplainUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runExplain,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runExplain(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "explain")

	selectionsPath := cmdutil.ResultPath(opts.Selections, AppConfig.Paths.ResultsFolder, "relevant_lines.json")
	if err := validate(&opts, selectionsPath, args); err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	selections, err := lineselect.LoadDataset(selectionsPath)
	if err != nil {
		lg.Error("failed to load line selections", "path", selectionsPath, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	var cwes map[string]string
	if opts.Dataset != "" {
		records, err := dataset.Load(opts.Dataset)
		if err != nil {
			lg.Error("failed to load dataset records", "path", opts.Dataset, "error", err)
			return errors.NewCommandError(opts, nil, err, 2)
		}
		cwes = explainer.CWEsFromRecords(records)
	}

	gen, err := generation.New(cmd.Context(), AppConfig, lg.Named("generation"))
	if err != nil {
		lg.Error("failed to create generator", "error", err)
		return errors.NewCommandError(opts, nil, err, 1)
	}

	patchesFolder := config.SetThen(opts.Patches, AppConfig.Paths.PatchesFolder)
	store := patchstore.NewStore(patchesFolder, lg.Named("patches"))

	e := explainer.NewExplainer(gen, store, cwes, opts.CWE, AppConfig.LLM.ExplainTemperature, lg)
	explanations, runErr := e.Run(cmd.Context(), selections)

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, "explanations.json")
	if err := explanations.Save(output); err != nil {
		lg.Error("failed to write explanations", "output", output, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}
	if runErr != nil {
		lg.Error("explanation stopped early", "written", len(explanations), "output", output, "error", runErr)
		return errors.NewCommandError(opts, nil, runErr, 2)
	}

	lg.Info("explain command completed successfully", "documents", len(explanations), "output", output)
	return nil
}

func init() {
	ExplainCmd.Flags().StringVar(&opts.Selections, "selections", "", "Line selection dataset. Defaults to <results>/relevant_lines.json.")
	ExplainCmd.Flags().StringVar(&opts.Dataset, "dataset", "", "Dataset records to take the weakness of each fix from.")
	ExplainCmd.Flags().StringVar(&opts.CWE, "cwe", "", "Weakness used for fixes without a known one.")
	ExplainCmd.Flags().StringVar(&opts.Patches, "patches", "", "Folder with <owner>_patch.json documents. Defaults to the configured patches folder.")
	ExplainCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the explanations file. Defaults to <results>/explanations.json.")
	ExplainCmd.Flags().BoolP("help", "h", false, "Show help for the explain command.")
}
