// Package publish uploads result files to S3.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/pkg/shared/config"
)

var ErrInvalidS3URL = errors.New("invalid S3 URL")

// Uploader is the part of the S3 upload manager used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Publisher uploads files to one bucket.
type Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   hclog.Logger
}

// New creates a Publisher from the default AWS credential chain.
func New(ctx context.Context, storage config.Storage, logger hclog.Logger) (*Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if storage.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(storage.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	return NewWithUploader(uploader, storage.S3Bucket, storage.S3Prefix, logger), nil
}

// NewWithUploader creates a Publisher around an existing uploader.
func NewWithUploader(uploader Uploader, bucket, prefix string, logger hclog.Logger) *Publisher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// Key returns the object key for a local file: <prefix>/<basename>.
func (p *Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Upload sends localPath to the configured bucket under Key(localPath).
func (p *Publisher) Upload(ctx context.Context, localPath string) (string, error) {
	return p.UploadTo(ctx, localPath, p.bucket, p.Key(localPath))
}

// UploadTo sends localPath to bucket/key and returns the s3:// URL of the object.
func (p *Publisher) UploadTo(ctx context.Context, localPath, bucket, key string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("%w: bucket is not set", ErrInvalidS3URL)
	}
	if key == "" {
		return "", fmt.Errorf("%w: key is not set", ErrInvalidS3URL)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer f.Close()

	p.logger.Info("uploading results", "path", localPath, "bucket", bucket, "key", key)
	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		p.logger.Error("failed to upload results file", "path", localPath, "error", err)
		return "", fmt.Errorf("failed to upload %q: %w", localPath, err)
	}

	location := "s3://" + bucket + "/" + key
	p.logger.Info("uploaded results", "location", location, "url", result.Location)
	return location, nil
}

// ParseS3URL splits s3://bucket/key. A key ending in "/" or an empty key is
// returned as is; callers append the file name.
func ParseS3URL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidS3URL, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3URL, raw)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func contentType(localPath string) string {
	if strings.EqualFold(filepath.Ext(localPath), ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}
