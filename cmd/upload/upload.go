package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/explainify/explainify/internal/publish"
	"github.com/explainify/explainify/pkg/shared"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/errors"
	"github.com/explainify/explainify/pkg/shared/logger"
)

// RunOptions holds flags for the upload command.
type RunOptions struct {
	Input       string `json:"input,omitempty"`
	Destination string `json:"destination,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// newPublisher is replaced in tests.
	newPublisher = func(ctx context.Context, storage config.Storage, lg hclog.Logger) (*publish.Publisher, error) {
		return publish.New(ctx, storage, lg)
	}

	exampleUploadUsage = `  # Upload the explanations to the configured bucket and prefix
  explainify upload --input results/explanations.json

  # Upload to an explicit location; a trailing slash keeps the file name
  explainify upload --input results/dataset.json --destination s3://datasets/cve/2024/`

	// UploadCmd copies a result file to S3.
	UploadCmd = &cobra.Command{
		Use:                   "upload --input PATH [--destination s3://BUCKET/KEY]",
		Short:                 "Upload a result file to S3",
		Example:               exampleUploadUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runUpload,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runUpload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "upload")

	bucket, key, err := validate(&opts, AppConfig.Storage, args)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(opts, nil, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	p, err := newPublisher(cmd.Context(), AppConfig.Storage, lg.Named("s3"))
	if err != nil {
		lg.Error("failed to create publisher", "error", err)
		return errors.NewCommandError(opts, nil, err, 1)
	}

	var location string
	if bucket == "" {
		location, err = p.Upload(cmd.Context(), opts.Input)
	} else {
		location, err = p.UploadTo(cmd.Context(), opts.Input, bucket, key)
	}
	if err != nil {
		lg.Error("upload failed", "input", opts.Input, "error", err)
		return errors.NewCommandError(opts, nil, err, 2)
	}

	fmt.Fprintln(cmd.OutOrStdout(), location)
	lg.Info("upload command completed successfully", "input", opts.Input, "location", location)
	return nil
}

// destinationKey appends the input file name to keys that name a folder.
func destinationKey(key, input string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return key + filepath.Base(input)
	}
	return key
}

func init() {
	UploadCmd.Flags().StringVarP(&opts.Input, "input", "i", "", "The file to upload.")
	UploadCmd.Flags().StringVar(&opts.Destination, "destination", "", "Target as s3://bucket/key. Defaults to the configured bucket and prefix.")
	UploadCmd.Flags().BoolP("help", "h", false, "Show help for the upload command.")
}
