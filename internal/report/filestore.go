package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/richa/internal/fsutil"
	"github.com/banshee-data/richa/internal/security"
)

// FileStore writes documents as text files under Dir.
type FileStore struct {
	Dir string
	FS  fsutil.FileSystem
}

// NewFileStore returns a FileStore on the real filesystem.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, FS: fsutil.OSFileSystem{}}
}

// DefaultFilename is the file name used when no destination is given.
func DefaultFilename(t time.Time) string {
	return security.SanitizeFilename(fmt.Sprintf("richa_%s.txt", t.UTC().Format("2006-01-02 15:04:05Z")))
}

// Path resolves dest the way Save will. An empty dest becomes
// DefaultFilename of the document end time; relative paths are placed
// under Dir and may not escape it.
func (s *FileStore) Path(dest string, doc *Document) (string, error) {
	if dest == "" {
		dest = DefaultFilename(doc.EndedAt)
	}
	return security.ResolveWithin(s.Dir, dest)
}

// Save writes doc.Text() to dest, creating parent directories.
func (s *FileStore) Save(ctx context.Context, dest string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(dest, doc)
	if err != nil {
		return err
	}
	if err := s.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := s.FS.WriteFile(path, []byte(doc.Text()), 0o644); err != nil {
		return fmt.Errorf("failed to save report into %q: %w", path, err)
	}
	return nil
}
