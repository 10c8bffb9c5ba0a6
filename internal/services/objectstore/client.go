package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"spool/internal/config"
	"spool/internal/services"
)

// API is the slice of the S3 client the store uses; tests substitute fakes.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores finished recordings in an S3 bucket keyed by filename.
type Client struct {
	api    API
	bucket string
}

// NewClient builds an S3-backed client from configuration.
func NewClient(ctx context.Context, cfg config.ObjectStore) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "new", "bucket required", nil)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Client{api: api, bucket: cfg.Bucket}, nil
}

// NewWithAPI wraps an existing S3 API implementation (used by tests).
func NewWithAPI(api API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// Put uploads body under key with the given content type. Anything other
// than a clean 200-class acknowledgment from the store is a failure.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Delete removes the object stored under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("delete", key, err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func classify(operation, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return services.Wrap(services.ErrRemoteRejected, "objectstore", operation,
			fmt.Sprintf("key %s: %s", key, apiErr.ErrorCode()), err)
	}
	return services.Wrap(services.ErrTransport, "objectstore", operation,
		fmt.Sprintf("key %s", key), err)
}
