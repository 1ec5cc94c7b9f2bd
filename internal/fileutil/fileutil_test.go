package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func assertContents(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("content mismatch: got %q, want %q", got, want)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("witness statement")
	src := writeSource(t, dir, "src.txt", content)
	dst := filepath.Join(dir, "dst.txt")

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	assertContents(t, dst, content)
}

func TestCopyFileOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	content := []byte("second interview transcript")
	src := writeSource(t, dir, "src.txt", content)
	dst := writeSource(t, dir, "dst.txt", []byte("stale contents that are longer than the source"))

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	assertContents(t, dst, content)
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	content := []byte("photo bytes with a known digest")
	src := writeSource(t, dir, "src.bin", content)
	dst := filepath.Join(dir, "dst.bin")

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	assertContents(t, dst, content)
}

func TestCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nonexistent")

	if err := CopyFile(missing, filepath.Join(dir, "a")); err == nil {
		t.Fatal("CopyFile: expected error for missing source")
	}
	if err := CopyFileVerified(missing, filepath.Join(dir, "b")); err == nil {
		t.Fatal("CopyFileVerified: expected error for missing source")
	}
}
