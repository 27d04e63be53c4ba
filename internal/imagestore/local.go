package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store holds profile images, one directory (or key prefix) per account.
type Store interface {
	// EnsureDirectory creates the per-account location if absent.
	EnsureDirectory(ctx context.Context, accountID string) error
	// Write stores the file under the account's directory, overwriting any
	// file of the same name.
	Write(ctx context.Context, accountID, filename string, data io.Reader) error
	// RemoveMatching deletes files in the account's directory whose name
	// starts with prefix.
	RemoveMatching(ctx context.Context, accountID, prefix string) error
	// DeleteDirectory removes the account's directory and its contents.
	DeleteDirectory(ctx context.Context, accountID string) error
}

// Local stores profile images in per-account directories under a root dir.
type Local struct {
	root string
}

// NewLocal creates a filesystem-backed image store.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) dir(accountID string) string {
	return filepath.Join(l.root, accountID)
}

// EnsureDirectory creates the account's image directory if absent.
func (l *Local) EnsureDirectory(_ context.Context, accountID string) error {
	return os.MkdirAll(l.dir(accountID), 0o755)
}

// Write stores a file in the account's directory.
func (l *Local) Write(_ context.Context, accountID, filename string, data io.Reader) error {
	path := filepath.Join(l.dir(accountID), filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RemoveMatching deletes files in the account's directory whose name starts
// with prefix. A missing directory is not an error.
func (l *Local) RemoveMatching(_ context.Context, accountID, prefix string) error {
	entries, err := os.ReadDir(l.dir(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir(accountID), entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDirectory removes the account's directory and everything in it.
func (l *Local) DeleteDirectory(_ context.Context, accountID string) error {
	return os.RemoveAll(l.dir(accountID))
}
