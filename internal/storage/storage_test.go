package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalBucket(t *testing.T) *LocalBucket {
	t.Helper()
	bucket, err := NewLocalBucket(Config{
		Bucket:   "portfolio-thumbnails",
		BasePath: t.TempDir(),
		BaseURL:  "https://kaede.example.com/",
	})
	require.NoError(t, err)
	return bucket
}

func TestLocalBucketUploadAndRemove(t *testing.T) {
	bucket := newTestLocalBucket(t)
	ctx := context.Background()

	require.NoError(t, bucket.Upload(ctx, "1700000000000_cover.png", strings.NewReader("png-bytes"), "image/png"))

	data, err := os.ReadFile(filepath.Join(bucket.Dir(), "1700000000000_cover.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	err = bucket.Upload(ctx, "1700000000000_cover.png", strings.NewReader("again"), "image/png")
	assert.ErrorIs(t, err, ErrObjectExists)

	require.NoError(t, bucket.Remove(ctx, "1700000000000_cover.png", "never-existed.png"))
	_, err = os.Stat(filepath.Join(bucket.Dir(), "1700000000000_cover.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalBucketRejectsTraversal(t *testing.T) {
	bucket := newTestLocalBucket(t)

	err := bucket.Upload(context.Background(), "../escape.png", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidObjectName)
	assert.ErrorIs(t, bucket.Remove(context.Background(), ".."), ErrInvalidObjectName)
}

func TestLocalBucketPublicURL(t *testing.T) {
	bucket := newTestLocalBucket(t)

	got := bucket.PublicURL("1700000000000_my_cover.png")
	assert.Equal(t, "https://kaede.example.com/storage/v1/object/public/portfolio-thumbnails/1700000000000_my_cover.png", got)
	assert.Equal(t, "1700000000000_my_cover.png", ObjectNameFromURL(got))
}

func TestObjectNameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "https://cdn.example.com/a/b/c.png", want: "c.png"},
		{in: "https://cdn.example.com/a/b/c%20d.png?v=2", want: "c d.png"},
		{in: "https://cdn.example.com/", want: ""},
		{in: "plain-name.jpg", want: "plain-name.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectNameFromURL(tt.in), tt.in)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(Config{Type: "ftp", Bucket: "b"})
	assert.Error(t, err)

	_, err = New(Config{Type: "local"})
	assert.Error(t, err)
}

type fakeS3 struct {
	s3iface.S3API
	headErr error
	deleted []string
}

func (f *fakeS3) HeadObjectWithContext(aws.Context, *s3.HeadObjectInput, ...request.Option) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, f.headErr
}

func (f *fakeS3) DeleteObjectsWithContext(_ aws.Context, in *s3.DeleteObjectsInput, _ ...request.Option) (*s3.DeleteObjectsOutput, error) {
	for _, obj := range in.Delete.Objects {
		f.deleted = append(f.deleted, aws.StringValue(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestS3BucketRefusesExistingKey(t *testing.T) {
	fake := &fakeS3{}
	bucket := newS3Bucket(fake, nil, Config{Bucket: "thumbs", PublicURL: "https://cdn.example.com/thumbs/"})

	err := bucket.Upload(context.Background(), "a.png", strings.NewReader("x"), "image/png")
	assert.True(t, errors.Is(err, ErrObjectExists))
	assert.Equal(t, "https://cdn.example.com/thumbs/a.png", bucket.PublicURL("a.png"))
}

func TestS3BucketRemoveBatches(t *testing.T) {
	fake := &fakeS3{}
	bucket := newS3Bucket(fake, nil, Config{Bucket: "thumbs", Endpoint: "http://minio:9000"})

	require.NoError(t, bucket.Remove(context.Background(), "a.png", "b.png"))
	assert.Equal(t, []string{"a.png", "b.png"}, fake.deleted)
	assert.Equal(t, "http://minio:9000/thumbs/c.png", bucket.PublicURL("c.png"))

	require.NoError(t, bucket.Remove(context.Background()))
}
