package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestWriteAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "generated/abc.png", []byte("png bytes"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "generated/abc.png" {
		t.Fatalf("key = %q", key)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, []byte("png bytes")) {
		t.Fatalf("data = %q", data)
	}
}

func TestSanitizeKeyBlocksTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../../etc/passwd", "", "  ", "."} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestSanitizeKeyNormalizesLeadingSlash(t *testing.T) {
	key, err := sanitizeKey("/generated/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if key != "generated/a.png" {
		t.Fatalf("key = %q", key)
	}
}

func TestNilStore(t *testing.T) {
	var store *FileStore
	if store.BasePath() != "" {
		t.Fatal("nil store base path should be empty")
	}
	if _, err := store.Write(context.Background(), "a", nil); err == nil {
		t.Fatal("nil store write should fail")
	}
}
