package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/campuscare/triage-service/internal/config"
)

// MinioTier stores attachment bytes in one S3-compatible bucket.
type MinioTier struct {
	name   string
	client *minio.Client
	bucket string
}

// NewMinioClient connects to the configured S3-compatible endpoint.
func NewMinioClient(cfg config.StorageConfig) (*minio.Client, error) {
	return minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
}

// NewMinioTier wraps a bucket as a storage tier.
func NewMinioTier(name string, client *minio.Client, bucket string) *MinioTier {
	return &MinioTier{name: name, client: client, bucket: bucket}
}

// EnsureBucket creates the bucket when missing. Public buckets get a
// read-only anonymous policy.
func (t *MinioTier) EnsureBucket(ctx context.Context, public bool) error {
	exists, err := t.client.BucketExists(ctx, t.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := t.client.MakeBucket(ctx, t.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	if !public {
		return nil
	}
	policy := `{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Action": ["s3:GetObject"],
				"Effect": "Allow",
				"Principal": "*",
				"Resource": "arn:aws:s3:::` + t.bucket + `/*"
			}
		]
	}`
	return t.client.SetBucketPolicy(ctx, t.bucket, policy)
}

// Name identifies the tier.
func (t *MinioTier) Name() string { return t.name }

// Put writes the object into the bucket.
func (t *MinioTier) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := t.client.PutObject(ctx, t.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Get reads the object back; missing, unreadable, or empty objects all map
// to not-found so the gateway keeps probing further tiers.
func (t *MinioTier) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := t.client.GetObject(ctx, t.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, NewNotFound(path)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil || len(data) == 0 {
		return nil, NewNotFound(path)
	}
	return data, nil
}

// Delete removes the object; removing a missing object is not an error.
func (t *MinioTier) Delete(ctx context.Context, path string) error {
	err := t.client.RemoveObject(ctx, t.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil
		}
		return err
	}
	return nil
}
