package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDefaults(t *testing.T) {
	got, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Addr != ":8230" || got.Path != "/session" || got.Verbose {
		t.Errorf("resolved = %+v, want defaults", got)
	}
}

func TestResolveReadsFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("server:\n  addr: 127.0.0.1:9000\n  path: /ui\nlog:\n  verbose: true\n")
	if err := os.WriteFile(filepath.Join(dir, "ripple.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Addr != "127.0.0.1:9000" || got.Path != "/ui" || !got.Verbose {
		t.Errorf("resolved = %+v", got)
	}
}

func TestResolveRejectsBadPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ripple.yaml"), []byte("server:\n  path: ui\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(dir); err == nil {
		t.Error("a path without a leading slash must be rejected")
	}
}

func TestResolveRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ripple.yaml"), []byte("server: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(dir); err == nil {
		t.Error("malformed yaml must be rejected")
	}
}
