// Package scratch manages the temporary storage area where uploaded parts
// land before processing. Every request gets its own directory so that one
// request's cleanup never touches another request's files.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const areaPrefix = "req-"

// ErrTooLarge is returned by Area.Save when the source exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// CleanupError describes a failed best-effort removal of scratch files.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// Store is the root of the temporary storage area.
type Store struct {
	base string
}

// NewStore ensures baseDir exists and returns a Store rooted there.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create scratch dir %q: %w", baseDir, err)
	}
	return &Store{base: baseDir}, nil
}

// Base returns the root directory of the store.
func (s *Store) Base() string {
	return s.base
}

// Open creates a fresh request-scoped area.
func (s *Store) Open() (*Area, error) {
	dir, err := os.MkdirTemp(s.base, areaPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create request area: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Sweep removes request areas last modified before now-olderThan. It is
// meant for startup, to clear leftovers of a crashed process. It returns
// the number of areas removed and the joined removal errors.
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), areaPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.base, e.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, &CleanupError{Path: path, Err: err})
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Area is a single request's scratch directory.
type Area struct {
	dir string
}

// Dir returns the directory backing the area.
func (a *Area) Dir() string {
	return a.dir
}

// Save streams r into a new file in the area and returns its path and size.
// The on-disk name is random; the client-supplied name is never used as a
// path component. If more than limit bytes arrive, the partial file is
// removed and ErrTooLarge is returned.
func (a *Area) Save(r io.Reader, limit int64) (string, int64, error) {
	path := filepath.Join(a.dir, uuid.NewString())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create scratch file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", n, err
		}
		return "", n, fmt.Errorf("write scratch file: %w", err)
	}
	return path, n, nil
}

// ReadFile returns the contents of a file previously written by Save.
func (a *Area) ReadFile(path string) ([]byte, error) {
	if filepath.Dir(path) != filepath.Clean(a.dir) {
		return nil, fmt.Errorf("read scratch file: %q is outside the request area", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scratch file: %w", err)
	}
	return data, nil
}

// Cleanup removes the area and everything in it.
func (a *Area) Cleanup() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return &CleanupError{Path: a.dir, Err: err}
	}
	return nil
}
