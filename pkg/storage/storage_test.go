package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := Open(ctx, logs.NewTestingLog(t), root)
	require.NoError(t, err)
	require.IsType(t, &StorageFS{}, s)

	require.NoError(t, WriteFile(ctx, s, "images/a.jpg", bytes.NewReader([]byte("jpeg"))))
	require.NoError(t, WriteFile(ctx, s, "output.csv", bytes.NewReader([]byte("csv"))))

	b, err := os.ReadFile(filepath.Join(root, "images", "a.jpg"))
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(b))

	b, err = ReadFile(ctx, s, "output.csv")
	require.NoError(t, err)
	require.Equal(t, "csv", string(b))

	names, err := s.List(ctx, "images/")
	require.NoError(t, err)
	require.Equal(t, []string{"images/a.jpg"}, names)

	require.NoError(t, s.DeleteFile(ctx, "images/a.jpg"))
	names, err = s.List(ctx, "images/")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "../x", "a/../../x", "/etc/passwd"} {
		_, err := s.WriteFile(ctx, name)
		require.ErrorIs(t, err, ErrInvalidName, "name: %q", name)
	}
	// Dots inside a name are fine
	require.NoError(t, WriteFile(ctx, s, "a..b.jpg", bytes.NewReader(nil)))
}
