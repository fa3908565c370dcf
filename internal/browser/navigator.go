package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/omx-labs/storage-browser/internal/models"
)

var (
	// ErrNoActiveRoot is returned when a navigation needs a storage root and
	// none has been selected yet.
	ErrNoActiveRoot = errors.New("no active storage root")
	// ErrInvalidBreadcrumb is returned when a breadcrumb jump targets
	// segments that are not a prefix of the current path.
	ErrInvalidBreadcrumb = errors.New("breadcrumb is not a prefix of the current path")
	// ErrUnknownFolder is returned when a folder descent names an entry the
	// current view does not contain.
	ErrUnknownFolder = errors.New("folder is not part of the current view")
)

// Lister fetches one level of a storage root. The prefix is relative to the
// root's base prefix.
type Lister interface {
	ListObjects(ctx context.Context, rootID, prefix string) (models.Listing, error)
}

// View is the projected folder/file collections for the current path.
type View struct {
	Folders []models.FolderEntry
	Files   []models.FileEntry
}

// Request identifies one listing fetch and the navigation state that issued
// it. A request older than the navigator's current generation is stale and
// its result is discarded on Apply.
type Request struct {
	gen      uint64
	rootID   string
	base     string
	segments []string
}

// RootID returns the storage root the request targets.
func (r *Request) RootID() string { return r.rootID }

// Prefix returns the relative listing prefix for the request.
func (r *Request) Prefix() string { return RelativePrefix(r.segments) }

// Navigator tracks the browsing position: active storage root, current path
// and at most one selected file. All mutation goes through its transition
// methods; listing results are folded in via Apply so that only the result
// of the most recent navigation ever reaches the view.
type Navigator struct {
	mu       sync.Mutex
	lister   Lister
	gen      uint64
	root     *models.StorageRoot
	path     []string
	selected string
	view     View
}

// New returns a navigator with no active root and an empty path.
func New(lister Lister) *Navigator {
	return &Navigator{lister: lister}
}

// SwitchRoot activates a storage root, resets the path to the root level and
// clears the selection. The returned request must be fetched to populate the
// view.
func (n *Navigator) SwitchRoot(root models.StorageRoot) *Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := root
	n.root = &r
	n.path = nil
	n.selected = ""
	n.view = View{}
	return n.issueLocked()
}

// EnterFolder descends into a folder of the current view. The entry is
// matched against the view by prefix and the view's own segments are used,
// so a caller-constructed entry cannot inject an arbitrary path.
func (n *Navigator) EnterFolder(folder models.FolderEntry) (*Request, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.root == nil {
		return nil, ErrNoActiveRoot
	}
	target, ok := n.viewFolderLocked(folder.Prefix)
	if !ok {
		return nil, ErrUnknownFolder
	}
	n.path = append([]string(nil), target.SegmentsFromRoot...)
	n.selected = ""
	return n.issueLocked(), nil
}

// viewFolderLocked looks up a folder of the current view by its absolute
// prefix. Callers hold n.mu.
func (n *Navigator) viewFolderLocked(prefix string) (models.FolderEntry, bool) {
	for _, f := range n.view.Folders {
		if f.Prefix == prefix {
			return f, true
		}
	}
	return models.FolderEntry{}, false
}

// JumpToBreadcrumb moves back up to an ancestor of the current path. The
// target must be a prefix of (or equal to) the current path; anything else
// is rejected, which keeps arbitrary paths from being injected.
func (n *Navigator) JumpToBreadcrumb(segments []string) (*Request, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.root == nil {
		return nil, ErrNoActiveRoot
	}
	if len(segments) > len(n.path) {
		return nil, ErrInvalidBreadcrumb
	}
	for i, seg := range segments {
		if n.path[i] != seg {
			return nil, ErrInvalidBreadcrumb
		}
	}
	n.path = append([]string(nil), segments...)
	n.selected = ""
	return n.issueLocked(), nil
}

// Reload re-issues a fetch for the current position without moving, e.g.
// after a deletion confirmed by the backend.
func (n *Navigator) Reload() (*Request, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.root == nil {
		return nil, ErrNoActiveRoot
	}
	return n.issueLocked(), nil
}

// issueLocked bumps the generation and builds the request for the current
// state. Callers hold n.mu.
func (n *Navigator) issueLocked() *Request {
	n.gen++
	return &Request{
		gen:      n.gen,
		rootID:   n.root.ID,
		base:     n.root.Prefix,
		segments: append([]string(nil), n.path...),
	}
}

// Apply folds a listing result into the view. A stale request (superseded by
// a later navigation) is discarded silently and reported with applied=false.
// A fetch error empties the view and clears the selection; the error is
// returned for the caller to surface.
func (n *Navigator) Apply(req *Request, listing models.Listing, fetchErr error) (applied bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if req == nil || req.gen != n.gen {
		return false, nil
	}
	if fetchErr != nil {
		n.view = View{}
		n.selected = ""
		return true, fetchErr
	}
	folders, files := Project(req.base, req.segments, listing)
	n.view = View{Folders: folders, Files: files}
	if n.selected != "" && !containsKey(files, n.selected) {
		n.selected = ""
	}
	return true, nil
}

// Fetch runs the request against the lister and applies the result. A stale
// result is not an error.
func (n *Navigator) Fetch(ctx context.Context, req *Request) error {
	listing, err := n.lister.ListObjects(ctx, req.rootID, req.Prefix())
	applied, err := n.Apply(req, listing, err)
	if !applied {
		return nil
	}
	return err
}

// Select marks a file key as selected, but only if it is present in the
// latest listing for the current path.
func (n *Navigator) Select(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !containsKey(n.view.Files, key) {
		return false
	}
	n.selected = key
	return true
}

// ClearSelection drops the current selection, if any.
func (n *Navigator) ClearSelection() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selected = ""
}

// Selected reports the selected file key, if one is set.
func (n *Navigator) Selected() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected, n.selected != ""
}

// Path returns a copy of the current path segments.
func (n *Navigator) Path() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.path...)
}

// ActiveRoot reports the active storage root, if one is set.
func (n *Navigator) ActiveRoot() (models.StorageRoot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.root == nil {
		return models.StorageRoot{}, false
	}
	return *n.root, true
}

// View returns the folders and files for the current path.
func (n *Navigator) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return View{
		Folders: append([]models.FolderEntry(nil), n.view.Folders...),
		Files:   append([]models.FileEntry(nil), n.view.Files...),
	}
}

func containsKey(files []models.FileEntry, key string) bool {
	for _, f := range files {
		if f.Key == key {
			return true
		}
	}
	return false
}
