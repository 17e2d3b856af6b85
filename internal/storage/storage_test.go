package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("ds1", "snap9"); got != "snapshots/ds1/snap9.json" {
		t.Fatalf("SnapshotKey = %q", got)
	}
	if got := SnapshotPrefix("ds1"); got != "snapshots/ds1/" {
		t.Fatalf("SnapshotPrefix = %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore("http://localhost:8080/files/")

	if err := m.PutFile(ctx, SnapshotKey("a", "1"), []byte("one"), "application/json"); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if err := m.PutFile(ctx, SnapshotKey("a", "2"), []byte("two"), "application/json"); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if err := m.PutFile(ctx, SnapshotKey("b", "1"), []byte("three"), "application/json"); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	b, err := m.GetFile(ctx, SnapshotKey("a", "2"))
	if err != nil || string(b) != "two" {
		t.Fatalf("GetFile = (%q, %v)", b, err)
	}

	keys, _ := m.ListFilesWithPrefix(ctx, SnapshotPrefix("a"))
	if want := []string{"snapshots/a/1.json", "snapshots/a/2.json"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("ListFilesWithPrefix = %v, want %v", keys, want)
	}

	link, err := m.GenerateDownloadLink(ctx, SnapshotKey("b", "1"))
	if err != nil || link != "http://localhost:8080/files/snapshots/b/1.json" {
		t.Fatalf("GenerateDownloadLink = (%q, %v)", link, err)
	}

	if err := m.DeleteFolder(ctx, SnapshotPrefix("a")); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if _, err := m.GetFile(ctx, SnapshotKey("a", "1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := m.GetFile(ctx, SnapshotKey("b", "1")); err != nil {
		t.Fatalf("other dataset must survive: %v", err)
	}
}

func TestWithPathPrefix(t *testing.T) {
	tests := []struct {
		raw, prefix, want string
	}{
		{"https://cdn.example.org/bucket/k.json?X-Amz-Signature=abc", "", "https://cdn.example.org/bucket/k.json?X-Amz-Signature=abc"},
		{"https://cdn.example.org/bucket/k.json?X-Amz-Signature=abc", "/s3", "https://cdn.example.org/s3/bucket/k.json?X-Amz-Signature=abc"},
	}
	for _, tt := range tests {
		got, err := withPathPrefix(tt.raw, tt.prefix)
		if err != nil || got != tt.want {
			t.Errorf("withPathPrefix(%q, %q) = (%q, %v), want %q", tt.raw, tt.prefix, got, err, tt.want)
		}
	}
}
