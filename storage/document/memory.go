package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/indieinfra/plaza/asset"
)

type docKey struct {
	kind Kind
	id   string
}

// MemoryStore keeps documents in a map. Reads and writes copy, so callers never share state.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[docKey]*Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[docKey]*Document), now: time.Now}
}

func (ms *MemoryStore) Create(ctx context.Context, doc *Document) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := docKey{doc.Kind, doc.ID}
	if _, exists := ms.docs[key]; exists {
		return fmt.Errorf("%s %q already exists", doc.Kind, doc.ID)
	}

	stored := doc.Clone()
	now := ms.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	ms.docs[key] = stored

	doc.CreatedAt, doc.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	doc, ok := ms.docs[docKey{kind, id}]
	if !ok {
		return nil, ErrNotFound
	}

	return doc.Clone(), nil
}

func (ms *MemoryStore) SetMedia(ctx context.Context, kind Kind, id string, field string, ref asset.Reference) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, ok := ms.docs[docKey{kind, id}]
	if !ok {
		return ErrNotFound
	}

	doc.setMedia(field, ref, ms.now().UTC())
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, kind Kind, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := docKey{kind, id}
	if _, ok := ms.docs[key]; !ok {
		return ErrNotFound
	}

	delete(ms.docs, key)
	return nil
}

func checkIdentity(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	if !doc.Kind.Valid() {
		return fmt.Errorf("invalid document kind %q", doc.Kind)
	}
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}

	return nil
}
