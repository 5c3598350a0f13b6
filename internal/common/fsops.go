package common

import (
	"io"
	"os"
	"path/filepath"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// MkdirAll creates directory and any missing parents, wrapping failures as
// an IOError (§7).
func MkdirAll(directory string) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return indexererrors.NewIOError("mkdir", directory, err)
	}
	return nil
}

// CopyFile copies src to dst, then applies mode, wrapping failures as
// IOError.
func CopyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return indexererrors.NewIOError("copyFile", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return indexererrors.NewIOError("copyFile", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return indexererrors.NewIOError("copyFile", dst, err)
	}
	return Chmod(dst, mode)
}

// Chmod sets path's mode, wrapping failures as IOError.
func Chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return indexererrors.NewIOError("chmod", path, err)
	}
	return nil
}

// deleteFile best-effort removes path; callers treat failure as
// non-fatal (§7 "best-effort cleanup").
func deleteFile(path string) error {
	return os.Remove(path)
}

// DeleteFile is the exported form used by pipelines after a successful
// conversion (§4.8 step 13, §4.9 step 14, §4.10 step 16).
func DeleteFile(path string) error {
	return deleteFile(path)
}

// RemoveEmptyDir best-effort removes directory if it is now empty,
// swallowing the error — used after a post-convert dedup cleanup (§4.10
// step 10) where a non-empty directory just means sibling work is still in
// flight.
func RemoveEmptyDir(directory string) {
	entries, err := os.ReadDir(directory)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(directory)
}

// CanonicalDir returns save/<id[0:2]> for the given save root and fingerprint.
func CanonicalDir(saveRoot, fingerprint string) string {
	shard := fingerprint
	if len(shard) >= 2 {
		shard = fingerprint[0:2]
	}
	return filepath.Join(saveRoot, shard)
}
