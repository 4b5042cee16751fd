package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"slidecast/config"
	"slidecast/logger"
)

// Publisher mirrors rendered output files to an object storage bucket so
// they survive local disk cleanup. A nil Publisher is valid and publishes
// nothing; it is returned when no endpoint is configured.
type Publisher struct {
	client *minio.Client
	bucket string
}

// NewPublisher connects to the configured MinIO endpoint and makes sure the
// bucket exists. Returns (nil, nil) when MinIO is not configured.
func NewPublisher(cfg *config.Config) (*Publisher, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logger.Info("created output bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &Publisher{client: client, bucket: cfg.MinioBucket}, nil
}

// Publish uploads a rendered MP4 to the bucket under objectName.
func (p *Publisher) Publish(ctx context.Context, localPath, objectName string) error {
	if p == nil {
		return nil
	}
	_, err := p.client.FPutObject(ctx, p.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", objectName, err)
	}
	logger.Info("published rendered output",
		logger.String("bucket", p.bucket), logger.String("object", objectName))
	return nil
}
