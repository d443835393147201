package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rohits-web03/mediadrop/internal/config"
)

// ObjectStorage writes saved files to an S3-compatible bucket (R2, MinIO, S3).
type ObjectStorage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewObjectStorage builds the client from static credentials. R2_ENDPOINT
// wins over the endpoint derived from R2_ACCOUNT_ID.
func NewObjectStorage(cfg config.R2Config) (*ObjectStorage, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("object storage: bucket name is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return &ObjectStorage{client: client, bucket: cfg.BucketName, prefix: cfg.Prefix}, nil
}

// ObjectKey places name under the configured prefix.
func (o *ObjectStorage) ObjectKey(name string) string {
	if o.prefix == "" {
		return name
	}
	return path.Join(o.prefix, name)
}

// PutObject uploads body in one request, so a failed call leaves no partial object.
func (o *ObjectStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(o.ObjectKey(key)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := o.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// GeneratePresignedGetURL creates a presigned URL for downloading a saved file.
func (o *ObjectStorage) GeneratePresignedGetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	presigner := s3.NewPresignClient(o.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.ObjectKey(key)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// VerifyObjectExists reports whether key exists in the bucket.
func (o *ObjectStorage) VerifyObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.ObjectKey(key)),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
