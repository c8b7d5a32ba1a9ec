package scratch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestArea_SaveAndRead(t *testing.T) {
	area, err := newStore(t).Open()
	require.NoError(t, err)

	path, n, err := area.Save(strings.NewReader("image-bytes"), 64)
	require.NoError(t, err)
	assert.Equal(t, int64(len("image-bytes")), n)
	assert.Equal(t, area.Dir(), filepath.Dir(path))

	data, err := area.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestArea_SaveExactlyAtLimit(t *testing.T) {
	area, err := newStore(t).Open()
	require.NoError(t, err)

	_, n, err := area.Save(bytes.NewReader(make([]byte, 16)), 16)
	require.NoError(t, err)
	assert.Equal(t, int64(16), n)
}

func TestArea_SaveOverLimitRemovesPartialFile(t *testing.T) {
	area, err := newStore(t).Open()
	require.NoError(t, err)

	_, _, err = area.Save(bytes.NewReader(make([]byte, 17)), 16)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, listDir(t, area.Dir()))
}

func TestArea_ReadFileOutsideArea(t *testing.T) {
	s := newStore(t)
	a1, err := s.Open()
	require.NoError(t, err)
	a2, err := s.Open()
	require.NoError(t, err)

	path, _, err := a1.Save(strings.NewReader("x"), 8)
	require.NoError(t, err)

	_, err = a2.ReadFile(path)
	assert.Error(t, err)
}

func TestArea_CleanupIsolatedPerRequest(t *testing.T) {
	s := newStore(t)
	a1, err := s.Open()
	require.NoError(t, err)
	a2, err := s.Open()
	require.NoError(t, err)

	_, _, err = a1.Save(strings.NewReader("one"), 8)
	require.NoError(t, err)
	p2, _, err := a2.Save(strings.NewReader("two"), 8)
	require.NoError(t, err)

	require.NoError(t, a1.Cleanup())

	_, err = os.Stat(a1.Dir())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	data, err := a2.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestStore_SweepRemovesStaleAreasOnly(t *testing.T) {
	s := newStore(t)
	stale, err := s.Open()
	require.NoError(t, err)
	fresh, err := s.Open()
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale.Dir(), old, old))

	unrelated := filepath.Join(s.Base(), "keep-me")
	require.NoError(t, os.Mkdir(unrelated, 0o750))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	removed, err := s.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	names := listDir(t, s.Base())
	assert.ElementsMatch(t, []string{filepath.Base(fresh.Dir()), "keep-me"}, names)
}

func TestCleanupError_Unwraps(t *testing.T) {
	err := &CleanupError{Path: "/tmp/x", Err: os.ErrPermission}
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "/tmp/x")
}
