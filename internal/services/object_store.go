package services

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the data-plane slice of the provider client the storage
// service uses: listing, presigned URLs and deletion.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) ([]minio.ObjectInfo, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ObjectStoreFactory creates provider clients. The provider project id is
// carried for providers that scope credentials by project; S3-compatible
// endpoints ignore it.
type ObjectStoreFactory interface {
	NewStore(providerProjectID string) (ObjectStore, error)
}

// WrappedMinioStore adapts minio.Client to ObjectStore.
type WrappedMinioStore struct {
	client *minio.Client
}

func (s *WrappedMinioStore) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return s.client.ListBuckets(ctx)
}

func (s *WrappedMinioStore) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) ([]minio.ObjectInfo, error) {
	// Drain the channel; a mid-stream error aborts the whole listing.
	var objects []minio.ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucketName, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *WrappedMinioStore) PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	return s.client.PresignedPutObject(ctx, bucketName, objectName, expires)
}

func (s *WrappedMinioStore) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return s.client.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
}

func (s *WrappedMinioStore) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return s.client.RemoveObject(ctx, bucketName, objectName, opts)
}

// MinioFactory builds clients for one configured S3-compatible endpoint.
type MinioFactory struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

func (f *MinioFactory) NewStore(_ string) (ObjectStore, error) {
	client, err := minio.New(f.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(f.AccessKey, f.SecretKey, ""),
		Secure: f.Secure,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedMinioStore{client: client}, nil
}
