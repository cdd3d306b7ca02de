package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"kisaanbot-be/internal/pkg/logger"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads media to an S3 bucket and returns a stable https URL.
type S3Store struct {
	client    s3API
	bucket    string
	region    string
	keyPrefix string
	log       logger.ILogger
}

func NewS3Store(ctx context.Context, bucket, region, keyPrefix string, log logger.ILogger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		region:    region,
		keyPrefix: keyPrefix,
		log:       log,
	}, nil
}

// NewS3StoreWithClient wires a prebuilt client. Used in tests.
func NewS3StoreWithClient(client s3API, bucket, region, keyPrefix string, log logger.ILogger) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region, keyPrefix: keyPrefix, log: log}
}

func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := path.Join(s.keyPrefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media %s: %w", key, err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	s.log.Debug("storage", "media uploaded", map[string]interface{}{"key": key, "bytes": len(data)})
	return url, nil
}
