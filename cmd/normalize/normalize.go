package normalize

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/explainify/explainify/internal/cmd"
	"github.com/explainify/explainify/internal/normalizer"
	"github.com/explainify/explainify/pkg/shared"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/files"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the normalize command.
type RunOptions struct {
	Tool       string `json:"tool,omitempty"`
	Input      string `json:"input,omitempty"`
	Output     string `json:"output,omitempty"`
	PathPrefix string `json:"path_prefix,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleNormalizeUsage = `  # Normalize a SARIF report
  explainify normalize --tool sarif --input snyk.sarif --output results/snyk_findings.json

  # Normalize a Semgrep JSON report
  explainify normalize --tool semgrep --input semgrep.json

  # Override the prefix joined in front of SARIF artifact paths
  explainify normalize --tool sarif --input snyk.sarif --path-prefix file_downloads`

	// NormalizeCmd converts a scanner report into the common findings format.
	NormalizeCmd = &cobra.Command{
		Use:                   "normalize --tool TOOL --input PATH [--output PATH] [--path-prefix PATH]",
		Short:                 "Convert a SARIF or Semgrep report into normalized findings",
		Example:               exampleNormalizeUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runNormalize,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runNormalize(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "normalize")

	tool, err := validate(&opts)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	nOpts := normalizer.OptionsFromConfig(AppConfig)
	if cmd.Flags().Changed("path-prefix") {
		nOpts.SARIFPathPrefix = opts.PathPrefix
	}

	collection, err := normalizer.New(lg, nOpts).NormalizeFile(tool, opts.Input)
	if err != nil {
		lg.Error("failed to normalize report", "input", opts.Input, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	output := cmdutil.ResultPath(opts.Output, AppConfig.Paths.ResultsFolder, string(tool)+"_findings.json")
	if err := files.WriteJSON(output, collection); err != nil {
		lg.Error("failed to write findings", "output", output, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	lg.Info("normalize command completed successfully", "tool", tool, "projects", len(collection), "findings", collection.Len(), "output", output)
	return nil
}

func init() {
	NormalizeCmd.Flags().StringVarP(&opts.Tool, "tool", "t", "", "Report format: sarif (Snyk Code) or semgrep.")
	NormalizeCmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Path to the scanner report.")
	NormalizeCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the findings file. Defaults to <results>/<tool>_findings.json.")
	NormalizeCmd.Flags().StringVar(&opts.PathPrefix, "path-prefix", "", "Folder joined in front of SARIF artifact paths.")
	NormalizeCmd.Flags().BoolP("help", "h", false, "Show help for the normalize command.")
}
