package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
)

func setupFilesystemMediaTest(t *testing.T) (*FilesystemStore, string) {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := &config.FilesystemMediaStrategy{
		Path:      tmpDir,
		PublicUrl: "https://media.example.com/",
	}

	store, err := NewFilesystemStore(cfg)
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}

	return store, tmpDir
}

func localPath(tmpDir, url string) string {
	relPath := strings.TrimPrefix(url, "https://media.example.com/")
	return filepath.Join(tmpDir, filepath.FromSlash(relPath))
}

func TestNewFilesystemStore(t *testing.T) {
	t.Run("creates directory if missing", func(t *testing.T) {
		nestedPath := filepath.Join(t.TempDir(), "media", "uploads")

		store, err := NewFilesystemStore(&config.FilesystemMediaStrategy{
			Path:      nestedPath,
			PublicUrl: "https://media.example.com/",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, err := os.Stat(nestedPath); os.IsNotExist(err) {
			t.Fatal("expected directory to be created")
		}

		if store.basePath != nestedPath {
			t.Errorf("basePath = %q, want %q", store.basePath, nestedPath)
		}
	})

	t.Run("nil config returns error", func(t *testing.T) {
		if _, err := NewFilesystemStore(nil); err == nil {
			t.Error("expected error for nil config")
		}
	})
}

func TestFilesystemStore_Upload(t *testing.T) {
	t.Run("writes file under the versioned layout", func(t *testing.T) {
		store, tmpDir := setupFilesystemMediaTest(t)

		content := []byte("test image data")
		ref, err := store.Upload(context.Background(), content, ".JPG", "app/posts")
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		if !strings.HasPrefix(ref.URL, "https://media.example.com/upload/v1/app/posts/") || !strings.HasSuffix(ref.URL, ".jpg") {
			t.Errorf("unexpected url %q", ref.URL)
		}
		if ref.Kind != asset.KindImage {
			t.Errorf("kind = %q, want image", ref.Kind)
		}

		data, err := os.ReadFile(localPath(tmpDir, ref.URL))
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Error("file content mismatch")
		}

		derived, ok := asset.DeriveHandle(ref.URL)
		if !ok || derived != ref.Handle {
			t.Errorf("derived handle %q (%v), want %q", derived, ok, ref.Handle)
		}
	})

	t.Run("generates unique names", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		first, err := store.Upload(context.Background(), []byte("a"), ".png", "app/events")
		if err != nil {
			t.Fatalf("Upload 1: %v", err)
		}
		second, err := store.Upload(context.Background(), []byte("b"), ".png", "app/events")
		if err != nil {
			t.Fatalf("Upload 2: %v", err)
		}

		if first.URL == second.URL || first.Handle == second.Handle {
			t.Error("expected different references for repeated uploads")
		}
	})

	t.Run("rejects escaping folder", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		_, err := store.Upload(context.Background(), []byte("a"), ".png", "../outside")
		if !errors.Is(err, asset.ErrUploadFailed) {
			t.Fatalf("expected upload failure, got %v", err)
		}
	})

	t.Run("rejects empty buffer", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		if _, err := store.Upload(context.Background(), nil, ".png", "app/posts"); !errors.Is(err, asset.ErrUploadFailed) {
			t.Fatalf("expected upload failure, got %v", err)
		}
	})
}

func TestFilesystemStore_Delete(t *testing.T) {
	t.Run("deletes existing file", func(t *testing.T) {
		store, tmpDir := setupFilesystemMediaTest(t)

		ref, err := store.Upload(context.Background(), []byte("to be deleted"), ".txt", "app/posts")
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		absPath := localPath(tmpDir, ref.URL)
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			t.Fatal("file should exist before delete")
		}

		if err := store.Delete(context.Background(), ref.Handle, ref.Kind); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if _, err := os.Stat(absPath); !os.IsNotExist(err) {
			t.Error("file should not exist after delete")
		}
	})

	t.Run("does not touch handles sharing a prefix", func(t *testing.T) {
		store, tmpDir := setupFilesystemMediaTest(t)

		ref, err := store.Upload(context.Background(), []byte("keep"), ".png", "app/posts")
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		short := ref.Handle[:len(ref.Handle)-4]
		if err := store.Delete(context.Background(), short, asset.KindImage); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if _, err := os.Stat(localPath(tmpDir, ref.URL)); err != nil {
			t.Fatalf("expected file to survive, got %v", err)
		}
	})

	t.Run("succeeds for non-existent file", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		if err := store.Delete(context.Background(), "app/posts/missing", asset.KindImage); err != nil {
			t.Errorf("Delete of non-existent file should succeed, got: %v", err)
		}
	})

	t.Run("empty handle is a no-op", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		if err := store.Delete(context.Background(), "", asset.KindUnknown); err != nil {
			t.Errorf("expected no-op, got %v", err)
		}
	})

	t.Run("rejects escaping handle", func(t *testing.T) {
		store, _ := setupFilesystemMediaTest(t)

		err := store.Delete(context.Background(), "../../etc/passwd", asset.KindRaw)
		if !errors.Is(err, asset.ErrDeletionFailed) {
			t.Errorf("expected deletion failure, got %v", err)
		}
	})
}

func TestFilesystemStore_ConcurrentUploads(t *testing.T) {
	store, _ := setupFilesystemMediaTest(t)

	done := make(chan string)

	for i := 0; i < 5; i++ {
		go func(n int) {
			ref, err := store.Upload(context.Background(), []byte("concurrent upload"), ".txt", "app/stories")
			if err != nil {
				t.Errorf("Upload %d: %v", n, err)
			}
			done <- ref.URL
		}(i)
	}

	urls := make(map[string]bool)
	for i := 0; i < 5; i++ {
		url := <-done
		if urls[url] {
			t.Errorf("duplicate URL: %s", url)
		}
		urls[url] = true
	}
}
