// Package s3store keeps blobs in an S3-compatible bucket, one object
// per blob id under an optional key prefix. Credentials come from the
// default AWS chain unless a static key pair is configured; a custom
// endpoint and path-style addressing support non-AWS implementations.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/agentrunner/internal/storage"
)

const defaultRegion = "us-east-1"

// Config configures an S3-compatible blob store.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Store is a storage.Store writing one bucket object per blob.
type Store struct {
	api    *s3.Client
	bucket string
	prefix string
}

// New builds a Store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}

	awsCfg, err := resolveAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3store: resolve aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// resolveAWSConfig loads the default credential chain, overridden by a
// static key pair when one is configured.
func resolveAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// Put uploads data as the object for id and returns an s3:// reference.
func (s *Store) Put(ctx context.Context, id string, data io.Reader, opts storage.PutOptions) (string, error) {
	key := s.objectKey(id)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if opts.MimeType != "" {
		input.ContentType = aws.String(opts.MimeType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3store: put %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Get downloads the object for id.
func (s *Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	key := s.objectKey(id)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3store: blob not found: %s", id)
		}
		return nil, fmt.Errorf("s3store: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes the object for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := s.objectKey(id)
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3store: delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether id names an object in the bucket.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	key := s.objectKey(id)
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("s3store: head %s: %w", key, err)
	}
}

// Close releases resources. The S3 client holds none that need closing.
func (s *Store) Close() error { return nil }

func (s *Store) objectKey(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

// isNotFound classifies an S3 API error by its wire code. HeadObject
// reports a missing key as "NotFound"; the other object calls use
// "NoSuchKey".
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	default:
		return false
	}
}
