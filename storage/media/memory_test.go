package media

import (
	"context"
	"errors"
	"testing"

	"github.com/indieinfra/plaza/asset"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore("https://assets.example.com/")
	ctx := context.Background()

	ref, err := store.Upload(ctx, []byte("img"), ".jpg", "app/profile-pics")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !store.Has(ref.Handle) || ref.Kind != asset.KindImage {
		t.Fatalf("unexpected state after upload: %+v", ref)
	}

	handle, ok := asset.DeriveHandle(ref.URL)
	if !ok || handle != ref.Handle {
		t.Fatalf("derived handle %q (%v), want %q", handle, ok, ref.Handle)
	}

	if err := store.Delete(ctx, handle, asset.DeriveKind(ref.URL)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Has(ref.Handle) || store.Len() != 0 {
		t.Fatalf("expected object to be removed")
	}

	if err := store.Delete(ctx, handle, asset.KindImage); err != nil {
		t.Fatalf("deleting twice should succeed, got %v", err)
	}

	calls := store.Calls()
	if len(calls) != 3 || calls[0].Kind != CallUpload || calls[1].Kind != CallDelete || calls[2].Kind != CallDelete {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if deletes := store.Deletes(); len(deletes) != 2 || deletes[0] != ref.Handle {
		t.Fatalf("unexpected deletes: %v", deletes)
	}
}

func TestMemoryStore_FailureInjection(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()

	store.FailUploads(errors.New("offline"))
	if _, err := store.Upload(ctx, []byte("x"), ".png", "app/posts"); !errors.Is(err, asset.ErrUploadFailed) {
		t.Fatalf("expected upload failure, got %v", err)
	}
	store.FailUploads(nil)

	ref, err := store.Upload(ctx, []byte("x"), ".png", "app/posts")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	store.FailDeletes(errors.New("offline"))
	if err := store.Delete(ctx, ref.Handle, ref.Kind); !errors.Is(err, asset.ErrDeletionFailed) {
		t.Fatalf("expected deletion failure, got %v", err)
	}
	if err := store.Delete(ctx, "", ref.Kind); err != nil {
		t.Fatalf("empty handle should succeed even when failing, got %v", err)
	}
	if !store.Has(ref.Handle) {
		t.Fatalf("failed delete must keep the object")
	}
}
