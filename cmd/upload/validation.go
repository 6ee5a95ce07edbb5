package upload

import (
	"fmt"
	"strings"

	"github.com/explainify/explainify/internal/publish"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/files"
)

// validate checks the upload flags. It returns the explicit bucket and key, or
// empty strings when the configured storage is used.
func validate(o *RunOptions, storage config.Storage, args []string) (string, string, error) {
	if len(args) > 0 {
		return "", "", fmt.Errorf("unexpected positional arguments: %s", strings.Join(args, " "))
	}
	if o.Input == "" {
		return "", "", fmt.Errorf("'input' flag must be specified")
	}
	if err := files.ValidatePath(o.Input); err != nil {
		return "", "", fmt.Errorf("invalid input path: %w", err)
	}

	if o.Destination == "" {
		if storage.S3Bucket == "" {
			return "", "", fmt.Errorf("no 'destination' given and storage.s3_bucket is not configured")
		}
		return "", "", nil
	}
	bucket, key, err := publish.ParseS3URL(o.Destination)
	if err != nil {
		return "", "", err
	}
	return bucket, destinationKey(key, o.Input), nil
}
