// Package archive copies accepted ANPR snapshots into an S3-compatible
// object store for long-term evidence retention independent of the
// local media directory.
package archive

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sentra-video/sentra/internal/config"
)

// Archive uploads snapshot files to a bucket.
type Archive struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// New connects to the object store and ensures the bucket exists.
func New(cfg config.ArchiveConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	log.Printf("snapshot archive connected to %s, bucket %s", cfg.Endpoint, cfg.Bucket)
	return &Archive{client: client, bucket: cfg.Bucket, useSSL: cfg.UseSSL}, nil
}

// Store uploads the file and returns the object URL. Objects are keyed
// by date and file name so evidence sorts chronologically in the bucket.
func (a *Archive) Store(ctx context.Context, localPath string) (string, error) {
	key := time.Now().Format("2006-01-02") + "/" + filepath.Base(localPath)

	_, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	scheme := "http"
	if a.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, a.client.EndpointURL().Host, a.bucket, key), nil
}
