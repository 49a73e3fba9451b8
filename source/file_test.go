package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSourceReadAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	size, err := s.Size(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(10), size)

	got, err := s.Read(context.Background(), 3, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("3456"), got)
}

func TestFileSourceReadPastEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Read(context.Background(), 0, 100)
	require.Error(t, err)
}

func TestOpenFileMissingPathFails(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	require.Error(t, err)
}

func TestFileSourceRejectsConcurrentRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.Read(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrConcurrentRead)
}
