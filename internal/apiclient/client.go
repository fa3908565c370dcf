// Package apiclient is the typed consumer of the storage capability
// contract. It is the single parse boundary between the backend's JSON and
// the rest of the client: every response either decodes into a well-typed
// value or fails with a decode or API error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/omx-labs/storage-browser/internal/models"
)

// APIError is a non-2xx response from the backend, carrying the server's
// message when one was supplied.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Client talks to the capability service for one project. The bearer token
// comes from the surrounding session subsystem; the client only carries it.
type Client struct {
	baseURL   string
	token     string
	projectID string
	client    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// New returns a client rooted at baseURL, authenticated with token and
// scoped to projectID.
func New(baseURL, token, projectID string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		token:     token,
		projectID: projectID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRoots returns the project's linked storage roots.
func (c *Client) ListRoots(ctx context.Context) ([]models.StorageRoot, error) {
	var out models.RootListResponse
	if err := c.do(ctx, http.MethodGet, c.storagePath("roots"), nil, &out); err != nil {
		return nil, err
	}
	return out.Roots, nil
}

// CreateRoot links a new storage root to the project.
func (c *Client) CreateRoot(ctx context.Context, req models.CreateRootRequest) (models.StorageRoot, error) {
	var out models.StorageRoot
	if err := c.do(ctx, http.MethodPost, c.storagePath("roots"), req, &out); err != nil {
		return models.StorageRoot{}, err
	}
	return out, nil
}

// UpdateRoot changes a root's description, its only mutable field.
func (c *Client) UpdateRoot(ctx context.Context, rootID, description string) (models.StorageRoot, error) {
	var out models.StorageRoot
	body := models.UpdateRootRequest{Description: description}
	if err := c.do(ctx, http.MethodPatch, c.storagePath("roots/"+url.PathEscape(rootID)), body, &out); err != nil {
		return models.StorageRoot{}, err
	}
	return out, nil
}

// DeleteRoot unlinks a storage root.
func (c *Client) DeleteRoot(ctx context.Context, rootID string) error {
	return c.do(ctx, http.MethodDelete, c.storagePath("roots/"+url.PathEscape(rootID)), nil, nil)
}

// ListBuckets returns the buckets visible to the provider credentials, to
// assist root creation.
func (c *Client) ListBuckets(ctx context.Context) ([]models.BucketSummary, error) {
	var out models.BucketListResponse
	if err := c.do(ctx, http.MethodGet, c.storagePath("buckets"), nil, &out); err != nil {
		return nil, err
	}
	return out.Buckets, nil
}

// ListObjects fetches one level of a storage root. The prefix is relative to
// the root's base prefix.
func (c *Client) ListObjects(ctx context.Context, rootID, prefix string) (models.Listing, error) {
	q := url.Values{"root": {rootID}}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	var out models.Listing
	if err := c.do(ctx, http.MethodGet, c.storagePath("objects")+"?"+q.Encode(), nil, &out); err != nil {
		return models.Listing{}, err
	}
	return out, nil
}

// UploadGrant requests a signed upload URL for one object. expiresIn <= 0
// leaves the TTL to the server.
func (c *Client) UploadGrant(ctx context.Context, rootID, objectKey, contentType string, expiresIn int) (models.TransferGrant, error) {
	req := models.SignedURLRequest{
		RootID:      rootID,
		ObjectKey:   objectKey,
		ContentType: contentType,
	}
	if expiresIn > 0 {
		req.ExpiresIn = expiresIn
	}
	var out models.TransferGrant
	if err := c.do(ctx, http.MethodPost, c.storagePath("upload-url"), req, &out); err != nil {
		return models.TransferGrant{}, err
	}
	return out, nil
}

// DownloadGrant requests a signed download URL for one object.
func (c *Client) DownloadGrant(ctx context.Context, rootID, objectKey string, expiresIn int) (models.TransferGrant, error) {
	req := models.SignedURLRequest{RootID: rootID, ObjectKey: objectKey}
	if expiresIn > 0 {
		req.ExpiresIn = expiresIn
	}
	var out models.TransferGrant
	if err := c.do(ctx, http.MethodPost, c.storagePath("download-url"), req, &out); err != nil {
		return models.TransferGrant{}, err
	}
	return out, nil
}

// DeleteObject removes one object through the backend.
func (c *Client) DeleteObject(ctx context.Context, rootID, objectKey string) error {
	req := models.DeleteObjectRequest{RootID: rootID, ObjectKey: objectKey}
	return c.do(ctx, http.MethodDelete, c.storagePath("objects"), req, nil)
}

func (c *Client) storagePath(suffix string) string {
	return "/api/v1/projects/" + url.PathEscape(c.projectID) + "/storage/" + suffix
}

// do performs one request. A non-2xx status becomes an *APIError with the
// server's message; a 2xx body is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg models.MessageResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&msg); decodeErr == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
