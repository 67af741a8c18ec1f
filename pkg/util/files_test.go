package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasExtension(t *testing.T) {
	exts := []string{".jpg", ".png"}
	if !HasExtension("IMG_001.JPG", exts) {
		t.Error("expected upper-case extension to match")
	}
	if HasExtension("notes.txt", exts) {
		t.Error("txt should not match")
	}
	if HasExtension("jpg", exts) {
		t.Error("bare name without dot should not match")
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.WAV", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.mp3"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir, []string{".mp3", ".wav"})
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.WAV" || filepath.Base(files[1]) != "b.mp3" {
		t.Errorf("unexpected order: %v", files)
	}
}
