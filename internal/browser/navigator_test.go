package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omx-labs/storage-browser/internal/models"
)

// fakeLister returns canned listings keyed by relative prefix.
type fakeLister struct {
	listings map[string]models.Listing
	err      error
	calls    []string
}

func (f *fakeLister) ListObjects(_ context.Context, _ string, prefix string) (models.Listing, error) {
	f.calls = append(f.calls, prefix)
	if f.err != nil {
		return models.Listing{}, f.err
	}
	return f.listings[prefix], nil
}

func testRoot() models.StorageRoot {
	return models.StorageRoot{ID: "root-1", BucketName: "bucket", Prefix: "base"}
}

func TestNavigatorSwitchRoot(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"": {
			Folders: []string{"base/raw/"},
			Files:   []models.ObjectRecord{{Key: "base/readme.md"}},
		},
	}}
	nav := New(lister)

	req := nav.SwitchRoot(testRoot())
	assert.Equal(t, "root-1", req.RootID())
	assert.Equal(t, "", req.Prefix())
	require.NoError(t, nav.Fetch(context.Background(), req))

	view := nav.View()
	require.Len(t, view.Folders, 1)
	assert.Equal(t, "raw", view.Folders[0].Name)
	require.Len(t, view.Files, 1)
	assert.Equal(t, "readme.md", view.Files[0].DisplayName)
	assert.Empty(t, nav.Path())
}

func TestNavigatorEnterFolderAndJumpBack(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"":     {Folders: []string{"base/raw/"}},
		"raw/": {Files: []models.ObjectRecord{{Key: "base/raw/notes.txt"}}},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))

	req, err := nav.EnterFolder(nav.View().Folders[0])
	require.NoError(t, err)
	assert.Equal(t, "raw/", req.Prefix())
	require.NoError(t, nav.Fetch(context.Background(), req))
	assert.Equal(t, []string{"raw"}, nav.Path())
	assert.True(t, nav.Select("base/raw/notes.txt"))

	// Jumping to the root level clears the selection and refetches.
	req, err = nav.JumpToBreadcrumb(nil)
	require.NoError(t, err)
	require.NoError(t, nav.Fetch(context.Background(), req))
	assert.Empty(t, nav.Path())
	_, selected := nav.Selected()
	assert.False(t, selected)
}

func TestNavigatorRejectsForeignBreadcrumb(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"":     {Folders: []string{"base/raw/"}},
		"raw/": {},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))
	req, err := nav.EnterFolder(nav.View().Folders[0])
	require.NoError(t, err)
	require.NoError(t, nav.Fetch(context.Background(), req))

	_, err = nav.JumpToBreadcrumb([]string{".."})
	assert.ErrorIs(t, err, ErrInvalidBreadcrumb)
	_, err = nav.JumpToBreadcrumb([]string{"raw", "deeper"})
	assert.ErrorIs(t, err, ErrInvalidBreadcrumb)
	_, err = nav.JumpToBreadcrumb([]string{"other"})
	assert.ErrorIs(t, err, ErrInvalidBreadcrumb)

	// The failed jumps moved nothing.
	assert.Equal(t, []string{"raw"}, nav.Path())
}

func TestNavigatorRejectsFolderOutsideView(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"": {Folders: []string{"base/raw/"}},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))

	// A hand-built entry is not in the view, even with a plausible prefix.
	_, err := nav.EnterFolder(models.FolderEntry{
		Name:             "secrets",
		Prefix:           "base/secrets/",
		SegmentsFromRoot: []string{"secrets"},
	})
	assert.ErrorIs(t, err, ErrUnknownFolder)

	// Forged segments on a known prefix descend to the view's path, not the
	// forged one.
	req, err := nav.EnterFolder(models.FolderEntry{
		Prefix:           "base/raw/",
		SegmentsFromRoot: []string{"..", "etc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "raw/", req.Prefix())
	assert.Equal(t, []string{"raw"}, nav.Path())
}

func TestNavigatorRequiresActiveRoot(t *testing.T) {
	nav := New(&fakeLister{})

	_, err := nav.EnterFolder(models.FolderEntry{SegmentsFromRoot: []string{"x"}})
	assert.ErrorIs(t, err, ErrNoActiveRoot)
	_, err = nav.JumpToBreadcrumb(nil)
	assert.ErrorIs(t, err, ErrNoActiveRoot)
	_, err = nav.Reload()
	assert.ErrorIs(t, err, ErrNoActiveRoot)
}

func TestNavigatorSelectionInvariant(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"": {Files: []models.ObjectRecord{{Key: "base/a.txt"}, {Key: "base/b.txt"}}},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))

	assert.False(t, nav.Select("base/missing.txt"))
	assert.True(t, nav.Select("base/a.txt"))
	key, ok := nav.Selected()
	assert.True(t, ok)
	assert.Equal(t, "base/a.txt", key)

	// A refresh that no longer contains the selected key clears it.
	lister.listings[""] = models.Listing{Files: []models.ObjectRecord{{Key: "base/b.txt"}}}
	req, err := nav.Reload()
	require.NoError(t, err)
	require.NoError(t, nav.Fetch(context.Background(), req))
	_, ok = nav.Selected()
	assert.False(t, ok)

	// A refresh that still contains it keeps it.
	lister.listings[""] = models.Listing{Files: []models.ObjectRecord{{Key: "base/b.txt"}}}
	require.NoError(t, nav.Fetch(context.Background(), mustReload(t, nav)))
	assert.True(t, nav.Select("base/b.txt"))
	require.NoError(t, nav.Fetch(context.Background(), mustReload(t, nav)))
	key, ok = nav.Selected()
	assert.True(t, ok)
	assert.Equal(t, "base/b.txt", key)
}

func TestNavigatorDiscardsStaleResults(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"":     {Folders: []string{"base/raw/"}},
		"raw/": {Files: []models.ObjectRecord{{Key: "base/raw/new.txt"}}},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))

	// T1 targets raw/, then T2 jumps back to the root before T1 resolves.
	reqT1, err := nav.EnterFolder(nav.View().Folders[0])
	require.NoError(t, err)
	reqT2, err := nav.JumpToBreadcrumb(nil)
	require.NoError(t, err)

	// T2's fetch resolves first and lands.
	applied, err := nav.Apply(reqT2, models.Listing{
		Files: []models.ObjectRecord{{Key: "base/rootfile.txt"}},
	}, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	// T1's late result is discarded silently.
	applied, err = nav.Apply(reqT1, models.Listing{
		Files: []models.ObjectRecord{{Key: "base/raw/old.txt"}},
	}, nil)
	require.NoError(t, err)
	assert.False(t, applied)

	view := nav.View()
	require.Len(t, view.Files, 1)
	assert.Equal(t, "base/rootfile.txt", view.Files[0].Key)
	assert.Empty(t, nav.Path())

	// A late error for a superseded request is discarded too.
	applied, err = nav.Apply(reqT1, models.Listing{}, errors.New("timeout"))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestNavigatorListingFailureEmptiesView(t *testing.T) {
	lister := &fakeLister{listings: map[string]models.Listing{
		"": {Files: []models.ObjectRecord{{Key: "base/a.txt"}}},
	}}
	nav := New(lister)
	require.NoError(t, nav.Fetch(context.Background(), nav.SwitchRoot(testRoot())))
	assert.True(t, nav.Select("base/a.txt"))

	lister.err = errors.New("backend down")
	req, err := nav.Reload()
	require.NoError(t, err)
	err = nav.Fetch(context.Background(), req)
	assert.EqualError(t, err, "backend down")

	view := nav.View()
	assert.Empty(t, view.Folders)
	assert.Empty(t, view.Files)
	_, ok := nav.Selected()
	assert.False(t, ok)
}

func mustReload(t *testing.T, nav *Navigator) *Request {
	t.Helper()
	req, err := nav.Reload()
	require.NoError(t, err)
	return req
}
