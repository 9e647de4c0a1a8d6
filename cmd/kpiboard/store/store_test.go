package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/HatiCode/kpiboard/cmd/kpiboard/config"
	"github.com/HatiCode/kpiboard/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Memory(t *testing.T) {
	s := New(&config.Config{Storage: "memory"}, discardLogger())

	if _, ok := s.(*storage.MemoryStore); !ok {
		t.Fatalf("New() = %T, want *storage.MemoryStore", s)
	}
	if err := Close(s); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(&config.Config{Storage: "file", DataFile: path}, discardLogger())

	fs, ok := s.(*storage.FileStore)
	if !ok {
		t.Fatalf("New() = %T, want *storage.FileStore", s)
	}
	if fs.Path() != path {
		t.Errorf("Path() = %q, want %q", fs.Path(), path)
	}

	ctx := context.Background()
	if err := s.Set(ctx, "apiUrl", "https://api.example.com"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	reopened := New(&config.Config{Storage: "file", DataFile: path}, discardLogger())
	got, found, err := reopened.Get(ctx, "apiUrl")
	if err != nil || !found || got != "https://api.example.com" {
		t.Errorf("Get() = %q, %v, %v", got, found, err)
	}
}
