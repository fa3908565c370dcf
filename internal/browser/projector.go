// Package browser implements the client-side object browser: projection of
// flat key listings into a folder/file view, and the navigation state that
// drives which level is shown.
package browser

import (
	"strings"

	"github.com/omx-labs/storage-browser/internal/models"
)

// EffectivePrefix joins a storage root's base prefix with the current path
// segments. Each part is trimmed of surrounding slashes, parts are joined
// with a single "/", and a non-empty result carries a trailing "/". The
// result is the listing query key for that level.
func EffectivePrefix(base string, segments []string) string {
	parts := make([]string, 0, len(segments)+1)
	if b := strings.Trim(base, "/"); b != "" {
		parts = append(parts, b)
	}
	for _, seg := range segments {
		if s := strings.Trim(seg, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

// RelativePrefix is EffectivePrefix without the base, the form the listing
// endpoint accepts.
func RelativePrefix(segments []string) string {
	return EffectivePrefix("", segments)
}

// ObjectKey builds the absolute key for a new object: base prefix, current
// path and file name joined with single slashes.
func ObjectKey(base string, segments []string, name string) string {
	return EffectivePrefix(base, segments) + strings.TrimLeft(name, "/")
}

// Project derives the immediate subfolders and files for one level from a
// raw listing. Entries keep the backend's order; name collisions between a
// folder marker and an object pass through untouched, since flat key storage
// genuinely permits both.
func Project(base string, segments []string, listing models.Listing) ([]models.FolderEntry, []models.FileEntry) {
	effective := EffectivePrefix(base, segments)

	folders := make([]models.FolderEntry, 0, len(listing.Folders))
	for _, raw := range listing.Folders {
		folders = append(folders, projectFolder(effective, segments, raw))
	}

	files := make([]models.FileEntry, 0, len(listing.Files))
	for _, rec := range listing.Files {
		name := strings.TrimPrefix(rec.Key, effective)
		if name == "" {
			// The key was exactly the prefix; never display an empty name.
			name = rec.Key
		}
		files = append(files, models.FileEntry{
			Key:          rec.Key,
			DisplayName:  name,
			Size:         rec.Size,
			UpdatedAt:    rec.UpdatedAt,
			ContentType:  rec.ContentType,
			StorageClass: rec.StorageClass,
		})
	}
	return folders, files
}

// projectFolder turns one folder marker prefix into an entry. A backend that
// legally reports a deeper nested prefix in one step yields a single entry
// whose name is the last segment and whose identity is the full chain.
func projectFolder(effective string, segments []string, raw string) models.FolderEntry {
	// A prefix outside the effective prefix is unexpected backend output;
	// keep it as-is rather than fail the whole listing.
	residual := strings.TrimPrefix(raw, effective)
	residual = strings.TrimSuffix(residual, "/")

	var tail []string
	for _, part := range strings.Split(residual, "/") {
		if part != "" {
			tail = append(tail, part)
		}
	}

	name := residual
	if len(tail) > 0 {
		name = tail[len(tail)-1]
	}

	fromRoot := make([]string, 0, len(segments)+len(tail))
	fromRoot = append(fromRoot, segments...)
	fromRoot = append(fromRoot, tail...)

	return models.FolderEntry{
		Name:             name,
		Prefix:           raw,
		SegmentsFromRoot: fromRoot,
	}
}
