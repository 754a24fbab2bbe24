package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Bucket stores objects in an S3 compatible bucket (AWS, R2, MinIO).
type S3Bucket struct {
	client    s3iface.S3API
	uploader  *s3manager.Uploader
	bucket    string
	publicURL string
}

// NewS3Bucket creates an S3 backed bucket.
func NewS3Bucket(cfg Config) (*S3Bucket, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}

	client := s3.New(sess)
	return newS3Bucket(client, s3manager.NewUploaderWithClient(client), cfg), nil
}

func newS3Bucket(client s3iface.S3API, uploader *s3manager.Uploader, cfg Config) *S3Bucket {
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
		}
	}

	return &S3Bucket{
		client:    client,
		uploader:  uploader,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}
}

// Upload stores the object unless one with the same key already exists.
func (b *S3Bucket) Upload(ctx context.Context, name string, r io.Reader, contentType string) error {
	if err := validateName(name); err != nil {
		return err
	}

	_, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(name),
	})
	if err == nil {
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to check object: %w", err)
	}

	input := &s3manager.UploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(name),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

// PublicURL returns PublicURL/<name>.
func (b *S3Bucket) PublicURL(name string) string {
	return fmt.Sprintf("%s/%s", b.publicURL, url.PathEscape(name))
}

// Remove deletes objects with a single DeleteObjects call.
func (b *S3Bucket) Remove(ctx context.Context, names ...string) error {
	objects := make([]*s3.ObjectIdentifier, 0, len(names))
	for _, name := range names {
		if err := validateName(name); err != nil {
			return err
		}
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(name)})
	}
	if len(objects) == 0 {
		return nil
	}

	out, err := b.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}

	var errs []error
	for _, failed := range out.Errors {
		errs = append(errs, fmt.Errorf("failed to delete %s: %s", aws.StringValue(failed.Key), aws.StringValue(failed.Message)))
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchKey:
			return true
		}
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode() == 404
	}
	return false
}
