package document

import (
	"context"
	"errors"
	"time"

	"github.com/indieinfra/plaza/asset"
)

// ErrNotFound indicates that a document was not found.
var ErrNotFound = errors.New("document not found")

type Kind string

const (
	KindUser     Kind = "user"
	KindPost     Kind = "post"
	KindStory    Kind = "story"
	KindEvent    Kind = "event"
	KindBusiness Kind = "business"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindPost, KindStory, KindEvent, KindBusiness:
		return true
	}
	return false
}

// Document is a domain entity. Media holds the asset references the entity owns, keyed by field.
type Document struct {
	Kind       Kind                       `json:"kind"`
	ID         string                     `json:"id"`
	OwnerID    string                     `json:"owner_id"`
	Attributes map[string]any             `json:"attributes,omitempty"`
	Media      map[string]asset.Reference `json:"media,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// Clone returns a copy that shares no maps with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	out := *d
	if d.Attributes != nil {
		out.Attributes = make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			out.Attributes[k] = v
		}
	}
	if d.Media != nil {
		out.Media = make(map[string]asset.Reference, len(d.Media))
		for k, v := range d.Media {
			out.Media[k] = v
		}
	}

	return &out
}

// setMedia applies a single-field media update; a zero reference removes the field.
func (d *Document) setMedia(field string, ref asset.Reference, now time.Time) {
	if ref.IsZero() {
		delete(d.Media, field)
	} else {
		if d.Media == nil {
			d.Media = make(map[string]asset.Reference)
		}
		d.Media[field] = ref
	}

	d.UpdatedAt = now
}

type Store interface {
	// Create persists a new document. The document must carry its kind and id.
	Create(ctx context.Context, doc *Document) error

	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, kind Kind, id string) (*Document, error)

	// SetMedia atomically replaces one media field. A zero reference clears the field.
	SetMedia(ctx context.Context, kind Kind, id string, field string, ref asset.Reference) error

	// Delete removes the document or returns ErrNotFound.
	Delete(ctx context.Context, kind Kind, id string) error
}
