package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencampus/sage/pkg/registry"
)

func cluster(id string) registry.Cluster {
	return registry.Cluster{
		ID:         id,
		SourcePath: "/uploads/" + id + ".pdf",
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("missing file should load as empty: %v", err)
	}

	clusters, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected empty registry, got %d clusters", len(clusters))
	}
}

func TestNew_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Error("corrupt registry file should fail to load")
	}
}

func TestPut_PersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "clusters.json")

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	want := cluster("c1")
	if err := s.Put(ctx, want); err != nil {
		t.Fatal(err)
	}

	// Reload from disk as a fresh process would.
	reloaded, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.SourcePath != want.SourcePath {
		t.Errorf("reloaded cluster %+v, want %+v", got, want)
	}
}

func TestPut_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "clusters.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Put(ctx, cluster("c1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, cluster("c1")); !errors.Is(err, registry.ErrClusterExists) {
		t.Errorf("expected ErrClusterExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "clusters.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, registry.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "clusters.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, cluster(id)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "clusters.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only clusters.json, found %v", names)
	}
}
