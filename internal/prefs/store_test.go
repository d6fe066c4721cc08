package prefs_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvatanabe/shipcode/internal/constant"
	"github.com/vvatanabe/shipcode/internal/prefs"
)

func TestStores_GetSetRemove(t *testing.T) {
	type testCase struct {
		name  string
		store func(t *testing.T) prefs.Store
	}
	tests := []testCase{
		{"memory", func(t *testing.T) prefs.Store { return prefs.NewMemoryStore() }},
		{"file", func(t *testing.T) prefs.Store {
			s, err := prefs.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"), nil)
			require.NoError(t, err)
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.store(t)
			_, ok := s.Get("k")
			assert.False(t, ok)

			s.Set("k", "v")
			v, ok := s.Get("k")
			assert.True(t, ok)
			assert.Equal(t, "v", v)

			s.Set("k", "w")
			v, _ = s.Get("k")
			assert.Equal(t, "w", v)

			s.Remove("k")
			_, ok = s.Get("k")
			assert.False(t, ok)
		})
	}
}

func TestFileStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	s, err := prefs.NewFileStore(path, nil)
	require.NoError(t, err)
	s.Set(constant.KeyThemeColor, "#FF0000")
	s.Set(constant.KeySearchValue, "DL-1")
	s.Remove(constant.KeySearchValue)

	reopened, err := prefs.NewFileStore(path, nil)
	require.NoError(t, err)
	v, ok := reopened.Get(constant.KeyThemeColor)
	assert.True(t, ok)
	assert.Equal(t, "#FF0000", v)
	_, ok = reopened.Get(constant.KeySearchValue)
	assert.False(t, ok)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	var buf bytes.Buffer
	s, err := prefs.NewFileStore(path, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "discarding corrupt preferences")

	p := prefs.New(s, nil)
	assert.Equal(t, constant.DefaultThemeColor, p.ThemeColor())

	p.SetThemeColor("#123456")
	assert.Equal(t, "#123456", p.ThemeColor())
}

func TestFileStore_WriteFailureKeepsSessionValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.json")
	var buf bytes.Buffer
	s, err := prefs.NewFileStore(path, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)

	// A directory in place of the document makes the rename fail.
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), nil, 0o600))

	s.Set("k", "v")
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Contains(t, buf.String(), "failed to persist preference")
}

func TestOpen(t *testing.T) {
	type testCase struct {
		name string
		opts prefs.Options
		want any
	}
	tests := []testCase{
		{"memory", prefs.Options{Backend: prefs.BackendMemory}, &prefs.MemoryStore{}},
		{"file", prefs.Options{Backend: prefs.BackendFile, Path: filepath.Join(t.TempDir(), "p.json")}, &prefs.FileStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.want, prefs.Open(context.Background(), tt.opts))
		})
	}
}

func TestOpen_DegradesToMemory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var buf bytes.Buffer
	s := prefs.Open(context.Background(), prefs.Options{
		Backend: prefs.BackendFile,
		Path:    filepath.Join(blocker, "sub", "prefs.json"),
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	assert.IsType(t, &prefs.MemoryStore{}, s)
	assert.Contains(t, buf.String(), "preferences kept in memory only")
	s.Set("k", "v")
	v, _ := s.Get("k")
	assert.Equal(t, "v", v)
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]prefs.Backend{
		"":         prefs.BackendFile,
		"memory":   prefs.BackendMemory,
		"FILE":     prefs.BackendFile,
		"dynamodb": prefs.BackendDynamoDB,
	} {
		got, err := prefs.ParseBackend(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := prefs.ParseBackend("redis")
	assert.Error(t, err)
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := prefs.StorageError{Op: "write", Key: "k", Cause: cause}
	assert.Equal(t, `preference storage write "k" failed: disk full.`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "preference storage open failed: disk full.", prefs.StorageError{Op: "open", Cause: cause}.Error())
}
