package edgecache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"

	"spool/internal/services"
)

type fakeCloudFront struct {
	input *cloudfront.CreateInvalidationInput
	err   error
}

func (f *fakeCloudFront) CreateInvalidation(_ context.Context, params *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &cloudfront.CreateInvalidationOutput{}, nil
}

func TestInvalidateBuildsBatch(t *testing.T) {
	fake := &fakeCloudFront{}
	client := NewWithAPI(fake, "E1ABCDEF")
	client.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if err := client.Invalidate(context.Background(), "rec1.webm"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if *fake.input.DistributionId != "E1ABCDEF" {
		t.Fatalf("distribution = %q", *fake.input.DistributionId)
	}
	paths := fake.input.InvalidationBatch.Paths
	if *paths.Quantity != 1 || paths.Items[0] != "/rec1.webm" {
		t.Fatalf("paths = %+v", paths)
	}
	ref := *fake.input.InvalidationBatch.CallerReference
	if !strings.HasPrefix(ref, "rec1.webm-") {
		t.Fatalf("caller reference = %q", ref)
	}
	if !strings.HasSuffix(ref, "1700000000000") {
		t.Fatalf("caller reference should end with timestamp: %q", ref)
	}
}

func TestInvalidateWrapsFailure(t *testing.T) {
	fake := &fakeCloudFront{err: errors.New("NoSuchDistribution")}
	err := NewWithAPI(fake, "E1ABCDEF").Invalidate(context.Background(), "rec1.webm")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	if err := client.Invalidate(context.Background(), "rec1.webm"); err != nil {
		t.Fatalf("nil client should no-op, got %v", err)
	}
}
