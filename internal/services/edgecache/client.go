package edgecache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"spool/internal/config"
	"spool/internal/services"
)

// API is the slice of the CloudFront client used for invalidations.
type API interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Client purges cached copies of deleted recordings from the CDN.
type Client struct {
	api            API
	distributionID string
	now            func() time.Time
}

// NewClient builds a CloudFront-backed client. The returned client is nil
// (and invalidations become no-ops) when no distribution is configured.
func NewClient(ctx context.Context, store config.ObjectStore, cache config.EdgeCache) (*Client, error) {
	if strings.TrimSpace(cache.DistributionID) == "" {
		return nil, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(store.Region),
	}
	if store.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(store.AccessKey, store.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Client{
		api:            cloudfront.NewFromConfig(awsCfg),
		distributionID: cache.DistributionID,
		now:            time.Now,
	}, nil
}

// NewWithAPI wraps an existing CloudFront API implementation (used by tests).
func NewWithAPI(api API, distributionID string) *Client {
	return &Client{api: api, distributionID: distributionID, now: time.Now}
}

// Invalidate purges the cached copy of key. The caller reference mixes the
// key with the current time so repeated deletes never collide.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	reference := fmt.Sprintf("%s-%d", key, c.now().UnixMilli())
	_, err := c.api.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(reference),
			Paths: &types.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{"/" + key},
			},
		},
	})
	if err != nil {
		return services.Wrap(services.ErrRemoteRejected, "edgecache", "invalidate",
			fmt.Sprintf("key %s", key), err)
	}
	return nil
}
