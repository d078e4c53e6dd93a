package skipcache

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 is a skip-cache backend on github.com/minio/minio-go/v7, grounded on
// that client's use in the example pack for S3-compatible object storage
// (MinIO, S3, R2) — spec.md §5 names "S3-compatible" as a supported
// skip-cache backend kind.
type S3 struct {
	client *minio.Client
	bucket string
}

func NewS3(endpoint, bucket, accessKey, secretKey string, useSSL bool) (*S3, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) Has(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.client.StatObject(ctx, s.bucket, objectName(key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

func (s *S3) Put(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.client.PutObject(ctx, s.bucket, objectName(key), bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	return err
}

func objectName(key string) string { return "skipcache/" + key }
