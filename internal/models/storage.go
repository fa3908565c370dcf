// Package models contains the data structures shared by the capability
// service and the browsing client.
package models

import "time"

// StorageRoot is a linked bucket+prefix acting as the browsing root for one
// project. Immutable after creation except for Description.
type StorageRoot struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	BucketName        string    `json:"bucket_name"`
	ProviderProjectID string    `json:"provider_project_id,omitempty"`
	Prefix            string    `json:"prefix,omitempty"`
	Description       string    `json:"description,omitempty"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ObjectRecord is one raw file record from a listing response. Metadata the
// provider may omit stays nil so "unknown" is distinguishable from zero.
type ObjectRecord struct {
	Key          string     `json:"key"`
	Size         *int64     `json:"size,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	ContentType  *string    `json:"content_type,omitempty"`
	StorageClass *string    `json:"storage_class,omitempty"`
}

// Listing is one level of a bucket as reported by the backend: folder marker
// prefixes (absolute, trailing "/") and file records, in provider order.
type Listing struct {
	Folders []string       `json:"folders"`
	Files   []ObjectRecord `json:"files"`
}

// FolderEntry is a virtual directory derived from a listing.
type FolderEntry struct {
	// Name is the display name, the last path segment of the prefix.
	Name string
	// Prefix is the absolute key prefix as returned by the backend.
	Prefix string
	// SegmentsFromRoot is the navigable identity of the folder relative to
	// the storage root.
	SegmentsFromRoot []string
}

// FileEntry is one concrete object at the current level. Key is the stable
// identity used for selection.
type FileEntry struct {
	Key          string
	DisplayName  string
	Size         *int64
	UpdatedAt    *time.Time
	ContentType  *string
	StorageClass *string
}

// TransferGrant is a short-lived, single-object authorization URL issued by
// the backend for direct client-to-storage transfer.
type TransferGrant struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// BucketSummary describes one bucket visible to the provider credentials.
type BucketSummary struct {
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// CreateRootRequest is the body for linking a new storage root.
type CreateRootRequest struct {
	BucketName        string `json:"bucket_name"`
	ProviderProjectID string `json:"provider_project_id,omitempty"`
	Prefix            string `json:"prefix,omitempty"`
	Description       string `json:"description,omitempty"`
}

// UpdateRootRequest carries the only mutable root field.
type UpdateRootRequest struct {
	Description string `json:"description"`
}

// RootListResponse wraps a project's storage roots.
type RootListResponse struct {
	Roots []StorageRoot `json:"roots"`
	Total int           `json:"total"`
}

// BucketListResponse wraps the buckets visible to the provider credentials.
type BucketListResponse struct {
	Buckets []BucketSummary `json:"buckets"`
	Total   int             `json:"total"`
}

// SignedURLRequest is the body for upload-url and download-url grants.
// ContentType is only meaningful for uploads.
type SignedURLRequest struct {
	RootID      string `json:"root_id"`
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// DeleteObjectRequest is the body for proxied object deletion.
type DeleteObjectRequest struct {
	RootID    string `json:"root_id"`
	ObjectKey string `json:"object_key"`
}

// MessageResponse is the generic success/error body.
type MessageResponse struct {
	Message string `json:"message"`
}
