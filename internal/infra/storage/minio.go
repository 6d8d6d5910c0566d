package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

// Store simpan raw output model ke bucket S3-compatible
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// PutRawOutput implementasi RawArchive, balikin URL object
func (s *Store) PutRawOutput(ctx context.Context, id domain.AnalysisID, raw string) (string, error) {
	key := ObjectKey(id, uuid.NewString())
	_, err := s.client.PutObject(ctx, s.bucketName, key, strings.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("put raw output: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, key), nil
}

// ObjectKey path object per analysis
func ObjectKey(id domain.AnalysisID, name string) string {
	return fmt.Sprintf("analyses/%d/%s.txt", id, name)
}
