package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"github.com/omx-labs/storage-browser/internal/models"
)

const (
	// DefaultDownloadTTL is the grant lifetime when a download request does
	// not ask for one.
	DefaultDownloadTTL = time.Hour
	// DefaultUploadTTL is the grant lifetime when an upload request does not
	// ask for one.
	DefaultUploadTTL = 15 * time.Minute
	// MaxGrantTTL caps caller-requested grant lifetimes.
	MaxGrantTTL = 7 * 24 * time.Hour
)

var (
	// ErrKeyOutsideRoot rejects object keys that escape the root's base
	// prefix.
	ErrKeyOutsideRoot = errors.New("object key is outside the storage root")
	// ErrBadPrefix rejects listing prefixes containing traversal segments.
	ErrBadPrefix = errors.New("invalid listing prefix")
)

// StorageService answers the capability contract's storage operations for
// one configured provider endpoint.
type StorageService struct {
	factory     ObjectStoreFactory
	log         zerolog.Logger
	downloadTTL time.Duration
	uploadTTL   time.Duration
}

// NewStorageService builds a service over factory with default grant TTLs.
func NewStorageService(factory ObjectStoreFactory, log zerolog.Logger) *StorageService {
	return &StorageService{
		factory:     factory,
		log:         log.With().Str("component", "storage").Logger(),
		downloadTTL: DefaultDownloadTTL,
		uploadTTL:   DefaultUploadTTL,
	}
}

// ListBuckets returns the buckets visible to the provider credentials.
func (s *StorageService) ListBuckets(ctx context.Context, providerProjectID string) ([]models.BucketSummary, error) {
	store, err := s.factory.NewStore(providerProjectID)
	if err != nil {
		return nil, fmt.Errorf("connect provider: %w", err)
	}
	infos, err := store.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	buckets := make([]models.BucketSummary, 0, len(infos))
	for _, info := range infos {
		b := models.BucketSummary{Name: info.Name}
		if !info.CreationDate.IsZero() {
			created := info.CreationDate
			b.CreatedAt = &created
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// ListLevel returns one level of a storage root: folder marker prefixes and
// file records under the effective prefix, in provider order. The relative
// prefix is joined with the root's base prefix server-side, so a request can
// never list outside its root.
func (s *StorageService) ListLevel(ctx context.Context, root models.StorageRoot, relPrefix string) (models.Listing, error) {
	effective, err := joinPrefix(root.Prefix, relPrefix)
	if err != nil {
		return models.Listing{}, err
	}

	store, err := s.factory.NewStore(root.ProviderProjectID)
	if err != nil {
		return models.Listing{}, fmt.Errorf("connect provider: %w", err)
	}

	objects, err := store.ListObjects(ctx, root.BucketName, minio.ListObjectsOptions{
		Prefix:    effective,
		Recursive: false,
	})
	if err != nil {
		return models.Listing{}, fmt.Errorf("list %q: %w", effective, err)
	}

	listing := models.Listing{Folders: []string{}, Files: []models.ObjectRecord{}}
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			// The placeholder object for the level itself is not a child.
			if obj.Key == effective {
				continue
			}
			listing.Folders = append(listing.Folders, obj.Key)
			continue
		}
		listing.Files = append(listing.Files, objectRecord(obj))
	}
	return listing, nil
}

// UploadGrant issues a presigned PUT URL for one object. The declared
// content type is not part of the signature; the storage endpoint enforces
// it at transfer time.
func (s *StorageService) UploadGrant(ctx context.Context, root models.StorageRoot, objectKey, contentType string, requestedTTL int) (models.TransferGrant, error) {
	if err := keyWithinRoot(root.Prefix, objectKey); err != nil {
		return models.TransferGrant{}, err
	}
	ttl := grantTTL(s.uploadTTL, requestedTTL)

	store, err := s.factory.NewStore(root.ProviderProjectID)
	if err != nil {
		return models.TransferGrant{}, fmt.Errorf("connect provider: %w", err)
	}
	u, err := store.PresignedPutObject(ctx, root.BucketName, objectKey, ttl)
	if err != nil {
		return models.TransferGrant{}, fmt.Errorf("sign upload for %q: %w", objectKey, err)
	}

	s.log.Debug().Str("bucket", root.BucketName).Str("key", objectKey).
		Str("content_type", contentType).Dur("ttl", ttl).Msg("issued upload grant")
	return models.TransferGrant{URL: u.String(), ExpiresIn: int(ttl.Seconds())}, nil
}

// DownloadGrant issues a presigned GET URL for one object.
func (s *StorageService) DownloadGrant(ctx context.Context, root models.StorageRoot, objectKey string, requestedTTL int) (models.TransferGrant, error) {
	if err := keyWithinRoot(root.Prefix, objectKey); err != nil {
		return models.TransferGrant{}, err
	}
	ttl := grantTTL(s.downloadTTL, requestedTTL)

	store, err := s.factory.NewStore(root.ProviderProjectID)
	if err != nil {
		return models.TransferGrant{}, fmt.Errorf("connect provider: %w", err)
	}
	u, err := store.PresignedGetObject(ctx, root.BucketName, objectKey, ttl, nil)
	if err != nil {
		return models.TransferGrant{}, fmt.Errorf("sign download for %q: %w", objectKey, err)
	}

	s.log.Debug().Str("bucket", root.BucketName).Str("key", objectKey).
		Dur("ttl", ttl).Msg("issued download grant")
	return models.TransferGrant{URL: u.String(), ExpiresIn: int(ttl.Seconds())}, nil
}

// DeleteObject removes one object. Deletion is proxied here rather than
// signed because it mutates state the backend tracks.
func (s *StorageService) DeleteObject(ctx context.Context, root models.StorageRoot, objectKey string) error {
	if err := keyWithinRoot(root.Prefix, objectKey); err != nil {
		return err
	}
	store, err := s.factory.NewStore(root.ProviderProjectID)
	if err != nil {
		return fmt.Errorf("connect provider: %w", err)
	}
	if err := store.RemoveObject(ctx, root.BucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %q: %w", objectKey, err)
	}
	s.log.Info().Str("bucket", root.BucketName).Str("key", objectKey).Msg("deleted object")
	return nil
}

func objectRecord(obj minio.ObjectInfo) models.ObjectRecord {
	rec := models.ObjectRecord{Key: obj.Key}
	size := obj.Size
	rec.Size = &size
	if !obj.LastModified.IsZero() {
		updated := obj.LastModified
		rec.UpdatedAt = &updated
	}
	if obj.ContentType != "" {
		ct := obj.ContentType
		rec.ContentType = &ct
	}
	if obj.StorageClass != "" {
		sc := obj.StorageClass
		rec.StorageClass = &sc
	}
	return rec
}

func grantTTL(fallback time.Duration, requested int) time.Duration {
	if requested <= 0 {
		return fallback
	}
	ttl := time.Duration(requested) * time.Second
	if ttl > MaxGrantTTL {
		return MaxGrantTTL
	}
	return ttl
}

// joinPrefix joins a root's base prefix with a caller-supplied relative
// prefix. Traversal segments are rejected outright.
func joinPrefix(base, rel string) (string, error) {
	var parts []string
	for _, part := range strings.Split(strings.Trim(base, "/")+"/"+strings.Trim(rel, "/"), "/") {
		if part == "" {
			continue
		}
		if part == ".." || part == "." {
			return "", ErrBadPrefix
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "/") + "/", nil
}

// keyWithinRoot checks an absolute object key stays under the root's base
// prefix and contains no traversal segments.
func keyWithinRoot(base, key string) error {
	if key == "" || strings.HasSuffix(key, "/") {
		return ErrKeyOutsideRoot
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return ErrKeyOutsideRoot
		}
	}
	if b := strings.Trim(base, "/"); b != "" && !strings.HasPrefix(key, b+"/") {
		return ErrKeyOutsideRoot
	}
	return nil
}
