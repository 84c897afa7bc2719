package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/indieinfra/plaza/asset"
)

// CallKind distinguishes the operations recorded by MemoryStore.
type CallKind string

const (
	CallUpload CallKind = "upload"
	CallDelete CallKind = "delete"
)

// Call is one recorded store interaction.
type Call struct {
	Kind   CallKind
	Handle string
	Folder string
	Asset  asset.Kind
}

// MemoryStore keeps objects in memory. It records every call in order and can be told to
// fail, which makes it the test double for the lifecycle coordinator.
type MemoryStore struct {
	mu        sync.Mutex
	baseURL   string
	objects   map[string][]byte
	calls     []Call
	version   int
	uploadErr error
	deleteErr error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://assets.invalid"
	}

	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

// FailUploads makes every following upload fail with err; nil restores normal behavior.
func (m *MemoryStore) FailUploads(err error) {
	m.mu.Lock()
	m.uploadErr = err
	m.mu.Unlock()
}

// FailDeletes makes every following delete fail with err; nil restores normal behavior.
func (m *MemoryStore) FailDeletes(err error) {
	m.mu.Lock()
	m.deleteErr = err
	m.mu.Unlock()
}

func (m *MemoryStore) Upload(ctx context.Context, buf []byte, ext string, folder string) (asset.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	folder = normalizeFolder(folder)
	m.calls = append(m.calls, Call{Kind: CallUpload, Folder: folder})

	if m.uploadErr != nil {
		return asset.Reference{}, uploadFailed(m.uploadErr)
	}
	if len(buf) == 0 {
		return asset.Reference{}, uploadFailed(errors.New("empty buffer"))
	}

	ext = normalizeExt(ext)
	kind := asset.KindForExtension(ext)
	if kind == asset.KindUnknown {
		kind = asset.KindRaw
	}

	m.version++
	name := uuid.New().String()
	handle := path.Join(folder, name)
	m.objects[handle] = append([]byte(nil), buf...)
	m.calls[len(m.calls)-1].Handle = handle
	m.calls[len(m.calls)-1].Asset = kind

	url := fmt.Sprintf("%s/%s/upload/v%d/%s%s", m.baseURL, kind, m.version, handle, ext)
	return asset.Reference{URL: url, Handle: handle, Kind: kind}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, handle string, kind asset.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Kind: CallDelete, Handle: handle, Asset: kind})

	if strings.TrimSpace(handle) == "" {
		return nil
	}
	if m.deleteErr != nil {
		return deletionFailed(m.deleteErr)
	}

	delete(m.objects, handle)
	return nil
}

// Has reports whether an object is stored under handle.
func (m *MemoryStore) Has(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[handle]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}

// Calls returns a copy of the recorded calls in order.
func (m *MemoryStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Call(nil), m.calls...)
}

// Deletes returns the handles passed to Delete, in order.
func (m *MemoryStore) Deletes() []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Kind == CallDelete {
			out = append(out, c.Handle)
		}
	}

	return out
}
