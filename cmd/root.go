package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	builddataset "github.com/explainify/explainify/cmd/build-dataset"
	"github.com/explainify/explainify/cmd/correlate"
	"github.com/explainify/explainify/cmd/explain"
	fetchpatches "github.com/explainify/explainify/cmd/fetch-patches"
	"github.com/explainify/explainify/cmd/normalize"
	selectlines "github.com/explainify/explainify/cmd/select-lines"
	"github.com/explainify/explainify/cmd/upload"
	"github.com/explainify/explainify/cmd/version"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "explainify [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Explainify builds explanation datasets from CVE fixes and static analysis findings.",
		Long: `Explainify collects CVE fixing commits, correlates findings of several static analysis
	tools on the fixed files and builds a dataset of diffs, source context and important lines
	that a language model turns into vulnerability explanations.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")

	rootCmd.AddCommand(normalize.NormalizeCmd)
	rootCmd.AddCommand(correlate.CorrelateCmd)
	rootCmd.AddCommand(selectlines.SelectLinesCmd)
	rootCmd.AddCommand(builddataset.BuildDatasetCmd)
	rootCmd.AddCommand(fetchpatches.FetchPatchesCmd)
	rootCmd.AddCommand(explain.ExplainCmd)
	rootCmd.AddCommand(upload.UploadCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		var cmdErr *errors.CommandError
		if stderrors.As(err, &cmdErr) && cmdErr.ExitCode != 0 {
			return cmdErr.ExitCode
		}
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}

	if cfgFile == "" {
		cfgFile = "config.yml"
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			cfgFile = ""
		}
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v \n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	normalize.Init(AppConfig)
	correlate.Init(AppConfig)
	selectlines.Init(AppConfig)
	builddataset.Init(AppConfig)
	fetchpatches.Init(AppConfig)
	explain.Init(AppConfig)
	upload.Init(AppConfig)
	version.Init(AppConfig)
}
