package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalDiskSaveAndURL(t *testing.T) {
	dir := t.TempDir()
	disk, err := NewLocalDisk(dir, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}

	key := "conversations/1/abc.txt"
	if err := disk.Save(context.Background(), key, bytes.NewReader([]byte("payload"))); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "conversations", "1", "abc.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("content = %q, want payload", got)
	}

	if url := disk.URL(key); url != "http://localhost:8080/uploads/conversations/1/abc.txt" {
		t.Fatalf("url = %q", url)
	}
}

func TestRegistryResolvesByName(t *testing.T) {
	reg := NewRegistry()
	dir := t.TempDir()
	disk, err := NewLocalDisk(dir, "http://x/uploads")
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	reg.Register("Local", disk)

	got, err := reg.Get("  local ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != Disk(disk) {
		t.Fatalf("wrong disk returned")
	}

	if _, err := reg.Get("s3"); err == nil {
		t.Fatalf("unknown disk resolved")
	}
}
