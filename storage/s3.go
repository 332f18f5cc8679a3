package storage

import (
	"context"
	"fmt"
	"io"

	"video-orchestrator/core/download"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3AssetStore persists downloaded video assets in an S3 bucket.
type S3AssetStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3AssetStore creates a new S3 asset store using the default AWS
// credential chain.
func NewS3AssetStore(ctx context.Context, region, bucket, prefix string) (*S3AssetStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3AssetStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Put uploads one asset and returns its storage URI.
func (s *S3AssetStore) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", objectKey, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey), nil
}

var _ download.AssetStore = (*S3AssetStore)(nil)
