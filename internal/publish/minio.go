// Package publish ships finished videos to object storage and YouTube.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"storyreel/internal/infra"
)

const presignExpiry = 72 * time.Hour

// MinioUploader stores final videos in a bucket and returns presigned links.
type MinioUploader struct {
	client *minio.Client
	bucket string
	logger *infra.Logger
}

func NewMinioUploader(cfg infra.MinioConfig, logger *infra.Logger) (*MinioUploader, error) {
	if !cfg.Enabled() {
		return nil, errors.New("publish: minio is not configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: minio client: %w", err)
	}
	return &MinioUploader{client: client, bucket: cfg.Bucket, logger: infra.LoggerOrDiscard(logger)}, nil
}

// ObjectKey places a file under tasks/<taskID>/.
func ObjectKey(taskID, localPath string) string {
	return path.Join("tasks", strings.TrimSpace(taskID), filepath.Base(localPath))
}

// ContentType maps artifact extensions to MIME types.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Upload puts localPath into the bucket, creating the bucket on first use, and
// returns a presigned download URL.
func (u *MinioUploader) Upload(ctx context.Context, taskID, localPath string) (string, error) {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return "", fmt.Errorf("publish: check bucket: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("publish: create bucket: %w", err)
		}
		u.logger.Info().Str("bucket", u.bucket).Msg("publish: bucket created")
	}

	key := ObjectKey(taskID, localPath)
	info, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("publish: upload %s: %w", key, err)
	}
	link, err := u.client.PresignedGetObject(ctx, u.bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("publish: presign %s: %w", key, err)
	}
	u.logger.Info().Str("bucket", u.bucket).Str("key", key).Int64("bytes", info.Size).Msg("publish: video uploaded")
	return link.String(), nil
}
