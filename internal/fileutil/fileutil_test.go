package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001127602-24-012345.nc")
	n, err := WriteStream(path, strings.NewReader("<SUBMISSION>\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if n != 13 {
		t.Fatalf("wrote %d bytes, want 13", n)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<SUBMISSION>\n" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestWriteFileAtomicCreatesParentsAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestReplaceDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "20240301.nc.partial")
	dst := filepath.Join(dir, "20240301.nc")
	for _, d := range []string{src, dst} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dst, "stale.nc"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "fresh.nc"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceDir(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dst, "stale.nc")); !os.IsNotExist(err) {
		t.Fatalf("expected stale file removed, stat err %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "fresh.nc")); err != nil {
		t.Fatalf("expected fresh file: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source moved, stat err %v", err)
	}
}
