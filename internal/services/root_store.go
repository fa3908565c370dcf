package services

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/omx-labs/storage-browser/internal/models"
)

var (
	// ErrRootNotFound is returned when a storage root id does not exist for
	// the project.
	ErrRootNotFound = errors.New("storage root not found")
	// ErrDuplicateRoot is returned when the project already links the same
	// bucket, prefix and provider project combination.
	ErrDuplicateRoot = errors.New("bucket and prefix are already linked to this project")
)

// RootStore persists storage roots in a SQLite database.
type RootStore struct {
	db *sql.DB
}

// NewRootStore opens (or creates) the database at path and ensures the
// schema exists. The pragmas ride on the DSN so every pooled connection
// gets them, not just the first.
func NewRootStore(path string) (*RootStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &RootStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *RootStore) Close() error {
	return s.db.Close()
}

func (s *RootStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS storage_roots (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    bucket_name TEXT NOT NULL,
    provider_project_id TEXT NOT NULL DEFAULT '',
    prefix TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_storage_roots_link
    ON storage_roots(project_id, bucket_name, provider_project_id, prefix);

CREATE INDEX IF NOT EXISTS idx_storage_roots_project
    ON storage_roots(project_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new storage root, assigning its id and timestamps.
func (s *RootStore) Create(root *models.StorageRoot) error {
	if root.ID == "" {
		root.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	root.CreatedAt = now
	root.UpdatedAt = now

	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM storage_roots
		 WHERE project_id = ? AND bucket_name = ? AND provider_project_id = ? AND prefix = ?`,
		root.ProjectID, root.BucketName, root.ProviderProjectID, root.Prefix,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check duplicate root: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateRoot
	}

	_, err = s.db.Exec(
		`INSERT INTO storage_roots
		 (id, project_id, bucket_name, provider_project_id, prefix, description, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		root.ID, root.ProjectID, root.BucketName, root.ProviderProjectID,
		root.Prefix, root.Description, root.CreatedBy,
		root.CreatedAt.Unix(), root.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}
	return nil
}

// Get retrieves one storage root scoped to a project.
func (s *RootStore) Get(projectID, id string) (*models.StorageRoot, error) {
	root := &models.StorageRoot{}
	var createdAt, updatedAt int64
	err := s.db.QueryRow(
		`SELECT id, project_id, bucket_name, provider_project_id, prefix, description, created_by, created_at, updated_at
		 FROM storage_roots WHERE project_id = ? AND id = ?`, projectID, id,
	).Scan(&root.ID, &root.ProjectID, &root.BucketName, &root.ProviderProjectID,
		&root.Prefix, &root.Description, &root.CreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRootNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get storage root: %w", err)
	}
	root.CreatedAt = time.Unix(createdAt, 0).UTC()
	root.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return root, nil
}

// ListByProject returns a project's storage roots, newest first.
func (s *RootStore) ListByProject(projectID string) ([]models.StorageRoot, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, bucket_name, provider_project_id, prefix, description, created_by, created_at, updated_at
		 FROM storage_roots WHERE project_id = ? ORDER BY created_at DESC, id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list storage roots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	roots := []models.StorageRoot{}
	for rows.Next() {
		var root models.StorageRoot
		var createdAt, updatedAt int64
		if err := rows.Scan(&root.ID, &root.ProjectID, &root.BucketName, &root.ProviderProjectID,
			&root.Prefix, &root.Description, &root.CreatedBy, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan storage root: %w", err)
		}
		root.CreatedAt = time.Unix(createdAt, 0).UTC()
		root.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// UpdateDescription changes the only mutable root field and returns the
// updated record.
func (s *RootStore) UpdateDescription(projectID, id, description string) (*models.StorageRoot, error) {
	res, err := s.db.Exec(
		`UPDATE storage_roots SET description = ?, updated_at = ?
		 WHERE project_id = ? AND id = ?`,
		description, time.Now().UTC().Unix(), projectID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update storage root: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update storage root: %w", err)
	}
	if affected == 0 {
		return nil, ErrRootNotFound
	}
	return s.Get(projectID, id)
}

// Delete removes a storage root.
func (s *RootStore) Delete(projectID, id string) error {
	res, err := s.db.Exec(`DELETE FROM storage_roots WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return fmt.Errorf("delete storage root: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete storage root: %w", err)
	}
	if affected == 0 {
		return ErrRootNotFound
	}
	return nil
}
