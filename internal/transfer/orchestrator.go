// Package transfer moves object bytes directly between the caller and the
// storage provider using short-lived signed URLs. Only grant brokering and
// deletion touch the application backend; payload bytes never do.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omx-labs/storage-browser/internal/models"
)

// Granter is the slice of the backend contract the orchestrator needs:
// signed-URL issuance and proxied deletion.
type Granter interface {
	UploadGrant(ctx context.Context, rootID, objectKey, contentType string, expiresIn int) (models.TransferGrant, error)
	DownloadGrant(ctx context.Context, rootID, objectKey string, expiresIn int) (models.TransferGrant, error)
	DeleteObject(ctx context.Context, rootID, objectKey string) error
}

// Error names the object and phase of a failed transfer so batch reporting
// stays unambiguous per object.
type Error struct {
	Key   string
	Phase string // "grant", "upload", "download", "delete"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Phase, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Item is one file queued for upload.
type Item struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// BatchResult reports exactly which prefix of an upload batch succeeded.
// Uploaded keys stay uploaded; the batch is not atomic.
type BatchResult struct {
	Uploaded  []string
	FailedKey string
	Err       error
	Skipped   []string
}

// Failed reports whether the batch stopped early.
func (r BatchResult) Failed() bool { return r.Err != nil }

// Orchestrator requests grants and drives the byte transfers against them.
// It holds no state between calls; every grant is fresh and single-use.
type Orchestrator struct {
	granter Granter
	client  *http.Client
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHTTPClient overrides the HTTP client used for direct transfers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// New returns an orchestrator brokering grants through g.
func New(g Granter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		granter: g,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Upload requests a fresh upload grant for key and PUTs the payload to it
// with the same content type the grant was requested for. An expired or
// refused grant surfaces as a transfer failure; there is no automatic retry.
func (o *Orchestrator) Upload(ctx context.Context, rootID string, item Item) error {
	grant, err := o.granter.UploadGrant(ctx, rootID, item.Key, item.ContentType, 0)
	if err != nil {
		return &Error{Key: item.Key, Phase: "grant", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.URL, item.Body)
	if err != nil {
		return &Error{Key: item.Key, Phase: "upload", Err: err}
	}
	if item.ContentType != "" {
		req.Header.Set("Content-Type", item.ContentType)
	}
	if item.Size >= 0 {
		req.ContentLength = item.Size
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return &Error{Key: item.Key, Phase: "upload", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Key: item.Key, Phase: "upload", Err: statusError(resp)}
	}
	return nil
}

// UploadAll uploads items sequentially, waiting for each transfer before
// starting the next. The first failure aborts the remainder; the result
// records the uploaded prefix, the failing key and the keys never attempted.
func (o *Orchestrator) UploadAll(ctx context.Context, rootID string, items []Item) BatchResult {
	var res BatchResult
	for i, item := range items {
		if err := o.Upload(ctx, rootID, item); err != nil {
			res.FailedKey = item.Key
			res.Err = err
			for _, rest := range items[i+1:] {
				res.Skipped = append(res.Skipped, rest.Key)
			}
			return res
		}
		res.Uploaded = append(res.Uploaded, item.Key)
	}
	return res
}

// DownloadURL requests a download grant and exposes its URL, e.g. for the
// caller to open directly.
func (o *Orchestrator) DownloadURL(ctx context.Context, rootID, objectKey string) (models.TransferGrant, error) {
	grant, err := o.granter.DownloadGrant(ctx, rootID, objectKey, 0)
	if err != nil {
		return models.TransferGrant{}, &Error{Key: objectKey, Phase: "grant", Err: err}
	}
	return grant, nil
}

// Download requests a grant and GETs the object bytes from it. The caller
// owns the returned reader.
func (o *Orchestrator) Download(ctx context.Context, rootID, objectKey string) (io.ReadCloser, error) {
	grant, err := o.granter.DownloadGrant(ctx, rootID, objectKey, 0)
	if err != nil {
		return nil, &Error{Key: objectKey, Phase: "grant", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, grant.URL, nil)
	if err != nil {
		return nil, &Error{Key: objectKey, Phase: "download", Err: err}
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &Error{Key: objectKey, Phase: "download", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		_ = resp.Body.Close()
		return nil, &Error{Key: objectKey, Phase: "download", Err: err}
	}
	return resp.Body, nil
}

// Delete removes an object through the backend. Deletion mutates state the
// backend tracks, so it is proxied rather than signed. The caller must
// reload the current listing after a confirmed deletion.
func (o *Orchestrator) Delete(ctx context.Context, rootID, objectKey string) error {
	if err := o.granter.DeleteObject(ctx, rootID, objectKey); err != nil {
		return &Error{Key: objectKey, Phase: "delete", Err: err}
	}
	return nil
}

// statusError summarizes a non-2xx storage response, including a short body
// snippet when the provider returned one.
func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Errorf("storage returned %s", resp.Status)
	}
	return fmt.Errorf("storage returned %s: %s", resp.Status, msg)
}
