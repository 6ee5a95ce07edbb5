package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	f.contentType = aws.ToString(input.ContentType)
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &manager.UploadOutput{Location: "https://" + f.bucket + ".s3.amazonaws.com/" + f.key}, nil
}

func writeResult(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	return path
}

func TestUploadUsesPrefix(t *testing.T) {
	up := &fakeUploader{}
	p := NewWithUploader(up, "cve-data", "/runs/2024/", nil)

	location, err := p.Upload(context.Background(), writeResult(t))
	require.NoError(t, err)
	assert.Equal(t, "s3://cve-data/runs/2024/dataset.json", location)
	assert.Equal(t, "cve-data", up.bucket)
	assert.Equal(t, "runs/2024/dataset.json", up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, "[]", string(up.body))
}

func TestUploadErrors(t *testing.T) {
	path := writeResult(t)

	_, err := NewWithUploader(&fakeUploader{}, "", "", nil).Upload(context.Background(), path)
	assert.ErrorIs(t, err, ErrInvalidS3URL)

	_, err = NewWithUploader(&fakeUploader{}, "b", "", nil).Upload(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = NewWithUploader(&fakeUploader{err: errors.New("denied")}, "b", "", nil).Upload(context.Background(), path)
	assert.ErrorContains(t, err, "denied")
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://cve-data/runs/dataset.json")
	require.NoError(t, err)
	assert.Equal(t, "cve-data", bucket)
	assert.Equal(t, "runs/dataset.json", key)

	for _, raw := range []string{"https://cve-data/x", "s3:///x", "::"} {
		_, _, err := ParseS3URL(raw)
		assert.ErrorIs(t, err, ErrInvalidS3URL, raw)
	}
}
