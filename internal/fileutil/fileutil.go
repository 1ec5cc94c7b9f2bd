// Package fileutil provides file copy helpers for moving evidence between
// staging and durable storage.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// CopyFile streams src to dst, truncating any existing file at dst.
func CopyFile(src, dst string) error {
	_, err := copyStream(src, dst, nil)
	return err
}

// CopyFileVerified copies src to dst and confirms the result by re-reading
// dst and comparing its SHA256 digest and byte count against the source. A
// failed check removes dst so a torn copy never lands in the media directory.
func CopyFileVerified(src, dst string) error {
	srcSum := sha256.New()
	written, err := copyStream(src, dst, srcSum)
	if err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}

	dstDigest, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if dstDigest != hex.EncodeToString(srcSum.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// copyStream copies src to dst, feeding the source bytes through digest when
// one is supplied.
func copyStream(src, dst string, digest hash.Hash) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	var reader io.Reader = in
	if digest != nil {
		reader = io.TeeReader(in, digest)
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		_ = out.Close()
		return written, err
	}
	return written, out.Close()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
