package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"会议 录音 (1).mp4":    "会议_录音_1_.mp4",
		"../../etc/passwd":   "passwd",
		"__hello__world.wav": "hello_world.wav",
		"a\\b\\c.mp3":        "c.mp3",
		"..":                 "",
	}
	for in, want := range cases {
		if got := SafeFilename(in); got != want {
			t.Errorf("SafeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithinDir(t *testing.T) {
	dir := t.TempDir()

	if p, ok := WithinDir(dir, "sub/file.mp4"); !ok || !strings.HasPrefix(p, dir) {
		t.Fatalf("nested path rejected: %q %v", p, ok)
	}
	for _, name := range []string{"../secret", "a/../../secret", "..\\secret"} {
		if _, ok := WithinDir(dir, name); ok {
			t.Errorf("WithinDir accepted %q", name)
		}
	}
}

func TestSaveStreamAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.bin")
	if err := SaveStream(strings.NewReader("payload"), path); err != nil {
		t.Fatalf("SaveStream: %v", err)
	}
	if !Exists(path) {
		t.Fatal("file should exist")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "payload" {
		t.Fatalf("content = %q", data)
	}

	RemoveFile(path)
	RemoveFile(path) // second removal is a no-op
	if Exists(path) {
		t.Fatal("file should be removed")
	}
}
