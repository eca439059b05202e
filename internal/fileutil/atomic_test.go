package fileutil

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func onlyFile(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != name {
			t.Errorf("unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "summary.txt")

	if err := WriteFileAtomic(path, []byte("initial"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("updated"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "updated" {
		t.Errorf("content = %q, want %q", data, "updated")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("permissions = %o, want %o", info.Mode().Perm(), 0o644)
	}
	onlyFile(t, dir, "summary.txt")
}

func TestWriteJSONAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "game.json")
	in := map[string]any{"game_id": "abc", "rounds": 33}

	if err := WriteJSONAtomic(path, in, 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["game_id"] != "abc" || out["rounds"] != float64(33) {
		t.Errorf("decoded %v", out)
	}
}

func TestWriteAtomicFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "game.json")
	if err := WriteFileAtomic(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("content = %q, want original", data)
	}
	onlyFile(t, dir, "game.json")
}

func TestWriteJSONAtomicUnencodable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := WriteJSONAtomic(filepath.Join(dir, "bad.json"), make(chan int), 0o644); err == nil {
		t.Error("expected an encoding error")
	}
	onlyFile(t, dir, "")
}

func TestWriteFileAtomicInvalidDir(t *testing.T) {
	t.Parallel()

	if err := WriteFileAtomic("/nonexistent/dir/test.txt", []byte("data"), 0o644); err == nil {
		t.Error("expected error when writing to non-existent directory")
	}
}
