package storage

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/ingest"
)

type fakeObjects struct {
	objects map[string]string
	lastKey string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = *in.Key
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, stderrors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestFetch(t *testing.T) {
	client := &fakeObjects{objects: map[string]string{"cv/alice.txt": "Go developer"}}
	f := NewS3FetcherWithClient(client, "uploads", 0)

	data, err := f.Fetch(context.Background(), "cv/alice.txt")
	require.NoError(t, err)
	assert.Equal(t, "Go developer", string(data))
	assert.Equal(t, "cv/alice.txt", client.lastKey)
}

func TestFetchMissingKey(t *testing.T) {
	f := NewS3FetcherWithClient(&fakeObjects{}, "uploads", 0)

	_, err := f.Fetch(context.Background(), "nope")
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStorageFailed, appErr.Code)
	assert.Equal(t, "nope", appErr.Context["key"])
}

func TestFetchRejectsOversizedObject(t *testing.T) {
	client := &fakeObjects{objects: map[string]string{"big": strings.Repeat("x", 11)}}
	f := NewS3FetcherWithClient(client, "uploads", 10)

	_, err := f.Fetch(context.Background(), "big")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	client.objects["fits"] = strings.Repeat("x", 10)
	data, err := f.Fetch(context.Background(), "fits")
	require.NoError(t, err)
	assert.Len(t, data, 10)
}

func TestLoadDocument(t *testing.T) {
	client := &fakeObjects{objects: map[string]string{"jd/backend.txt": "  We need Go and Kafka.  "}}
	f := NewS3FetcherWithClient(client, "uploads", 0)

	doc, err := f.LoadDocument(context.Background(), "jd/backend.txt", ingest.MimeText)
	require.NoError(t, err)
	assert.Equal(t, "We need Go and Kafka.", doc.Text)
	assert.Equal(t, "s3://uploads/jd/backend.txt", doc.Source)

	_, err = f.LoadDocument(context.Background(), "jd/backend.txt", "image/png")
	assert.True(t, errors.IsValidation(err))
}

func TestNewS3FetcherRequiresBucket(t *testing.T) {
	_, err := NewS3Fetcher(context.Background(), config.StorageConfig{}, 0)
	require.Error(t, err)
}
