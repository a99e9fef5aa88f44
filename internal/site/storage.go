// internal/site/storage.go
//
// Per-site artifact layout.
//
// Every site owns one directory under the configured sites root:
//
//	<root>/<slug>/public/   – live published tree (index.html)
//	<root>/<slug>/uploads/  – user-supplied media
//	<root>/<slug>/backups/  – timestamped snapshots (*.bak)
//
// The layout is created once and owned exclusively by pipeline operations;
// nothing else writes into it.
package site

import (
	"os"
	"path/filepath"
)

// Artifact filename served from the public tree.
const IndexFile = "index.html"

// Storage locates the three trees for one site.
type Storage struct {
	Root string // <sites root>/<slug>
}

// StorageFor binds a site record to its on-disk layout.
func StorageFor(rec *Record) Storage {
	return Storage{Root: rec.StoragePath}
}

// PublicDir returns the live published tree.
func (s Storage) PublicDir() string { return filepath.Join(s.Root, "public") }

// UploadsDir returns the user media tree.
func (s Storage) UploadsDir() string { return filepath.Join(s.Root, "uploads") }

// BackupsDir returns the snapshot tree.
func (s Storage) BackupsDir() string { return filepath.Join(s.Root, "backups") }

// LiveFile returns the absolute path of a published artifact.
func (s Storage) LiveFile(name string) string {
	return filepath.Join(s.PublicDir(), name)
}

// EnsureLayout creates the three trees, idempotently.
func (s Storage) EnsureLayout() error {
	for _, dir := range []string{s.PublicDir(), s.UploadsDir(), s.BackupsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
