package testsupport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes so tests
// can fabricate evidence files of a known size. A size <= 0 writes one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	pattern := bytes.Repeat([]byte{0x42}, 32*1024)
	for written := int64(0); written < size; {
		chunk := size - written
		if chunk > int64(len(pattern)) {
			chunk = int64(len(pattern))
		}
		n, err := f.Write(pattern[:chunk])
		if err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += int64(n)
	}
	if err := f.Sync(); err != nil && err != io.EOF {
		t.Fatalf("sync %s: %v", path, err)
	}
}
