package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/server/util"
	"github.com/indieinfra/plaza/storage/document"
	"github.com/indieinfra/plaza/storage/media"
)

// ErrUnknownField indicates a media field that the entity kind does not declare.
var ErrUnknownField = errors.New("unknown media field")

// ProfilePicField is the media field of user documents that falls back to the placeholder.
const ProfilePicField = "profilePic"

type binding struct {
	class  asset.Class
	folder string
}

var bindings = map[document.Kind]map[string]binding{
	document.KindUser: {
		ProfilePicField: {asset.ClassProfilePic, "profile-pics"},
	},
	document.KindPost: {
		"image": {asset.ClassPostMedia, "posts"},
		"video": {asset.ClassPostMedia, "posts"},
	},
	document.KindStory: {
		"mediaUrl": {asset.ClassStoryMedia, "stories"},
	},
	document.KindEvent: {
		"image": {asset.ClassEventImage, "events"},
	},
	document.KindBusiness: {
		"image": {asset.ClassBusinessImage, "businesses"},
	},
}

// Fields lists the media fields of kind in a stable order.
func Fields(kind document.Kind) []string {
	fields := make([]string, 0, len(bindings[kind]))
	for f := range bindings[kind] {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

type Options struct {
	Media     media.Store
	Documents document.Store
	// Policies defaults to asset.DefaultPolicies.
	Policies asset.Policies
	// Namespace prefixes every remote folder, e.g. "app" gives "app/posts".
	Namespace string
	// DefaultProfilePic is the placeholder URL given to users without a picture. It is never deleted.
	DefaultProfilePic string
	Metrics           *Metrics
}

// Coordinator sequences uploads and deletions around document writes.
type Coordinator struct {
	media       media.Store
	documents   document.Store
	policies    asset.Policies
	namespace   string
	placeholder asset.Reference
	metrics     *Metrics
}

func New(opts Options) (*Coordinator, error) {
	if opts.Media == nil {
		return nil, fmt.Errorf("lifecycle: media store is required")
	}
	if opts.Documents == nil {
		return nil, fmt.Errorf("lifecycle: document store is required")
	}

	policies := opts.Policies
	if policies == nil {
		policies = asset.DefaultPolicies()
	}

	ns := slug.Make(opts.Namespace)
	if ns == "" {
		return nil, fmt.Errorf("lifecycle: namespace %q is empty after normalisation", opts.Namespace)
	}

	c := &Coordinator{
		media:     opts.Media,
		documents: opts.Documents,
		policies:  policies,
		namespace: ns,
		metrics:   opts.Metrics,
	}

	if pic := strings.TrimSpace(opts.DefaultProfilePic); pic != "" {
		c.placeholder = asset.Reference{URL: pic, Kind: asset.KindImage}
	}

	return c, nil
}

// Folder returns the remote folder for a media field, e.g. "app/profile-pics".
func (c *Coordinator) Folder(kind document.Kind, field string) (asset.Class, string, error) {
	b, ok := bindings[kind][field]
	if !ok {
		return "", "", fmt.Errorf("%w %q for %s (want one of %s)", ErrUnknownField, field, kind, strings.Join(Fields(kind), ", "))
	}

	return b.class, path.Join(c.namespace, b.folder), nil
}

// ValidateAndUpload runs the upload gateway and, only when it accepts, uploads to the remote store.
func (c *Coordinator) ValidateAndUpload(ctx context.Context, up asset.PendingUpload, class asset.Class, folder string) (asset.Reference, error) {
	if err := c.validate(up, class); err != nil {
		return asset.Reference{}, err
	}

	return c.upload(ctx, up, class, folder)
}

func (c *Coordinator) validate(up asset.PendingUpload, class asset.Class) error {
	if err := c.policies.Validate(up, class); err != nil {
		c.metrics.recordUpload(string(class), outcomeRejected)
		return err
	}
	return nil
}

func (c *Coordinator) upload(ctx context.Context, up asset.PendingUpload, class asset.Class, folder string) (asset.Reference, error) {
	start := time.Now()
	ref, err := c.media.Upload(ctx, up.Buffer, asset.Extension(up), folder)
	c.metrics.observeRemote("upload", start)
	if err != nil {
		c.metrics.recordUpload(string(class), outcomeFailed)
		if !errors.Is(err, asset.ErrUploadFailed) {
			err = fmt.Errorf("%w: %w", asset.ErrUploadFailed, err)
		}
		return asset.Reference{}, err
	}

	if ref.Kind == asset.KindUnknown {
		ref.Kind = asset.KindForMIME(up.MimeType)
	}

	c.metrics.recordUpload(string(class), outcomeUploaded)
	util.LoggerFrom(ctx).Infof("uploaded %s asset %q to %s", class, ref.Handle, folder)
	return ref, nil
}

// ReplaceAsset uploads the new media, runs commit with the new reference and only after commit
// succeeds releases old. If commit fails the new asset is left behind and old stays attached.
func (c *Coordinator) ReplaceAsset(ctx context.Context, old asset.Reference, up asset.PendingUpload, class asset.Class, folder string, commit func(context.Context, asset.Reference) error) (asset.Reference, error) {
	ref, err := c.ValidateAndUpload(ctx, up, class, folder)
	if err != nil {
		return asset.Reference{}, err
	}

	if err := commit(ctx, ref); err != nil {
		util.LoggerFrom(ctx).Warnf("persisting %q failed, uploaded asset is orphaned: %v", ref.URL, err)
		return asset.Reference{}, err
	}

	c.ReleaseAsset(ctx, old)
	return ref, nil
}

// ReleaseAsset deletes ref from the remote store if it can. It never fails: empty references,
// the placeholder and URLs without a derivable handle are skipped, store errors are logged.
func (c *Coordinator) ReleaseAsset(ctx context.Context, ref asset.Reference) {
	c.metrics.recordRelease(c.release(ctx, ref))
}

func (c *Coordinator) release(ctx context.Context, ref asset.Reference) string {
	if ref.IsZero() || c.isPlaceholder(ref) {
		return outcomeSkipped
	}

	rl := util.LoggerFrom(ctx)

	handle := ref.Handle
	if handle == "" {
		derived, ok := asset.DeriveHandle(ref.URL)
		if !ok {
			rl.Infof("no deletable handle in %q, nothing to release", ref.URL)
			return outcomeSkipped
		}
		handle = derived
	}

	kind := ref.Kind
	if kind == asset.KindUnknown {
		kind = asset.DeriveKind(ref.URL)
	}

	start := time.Now()
	err := c.media.Delete(ctx, handle, kind)
	c.metrics.observeRemote("delete", start)
	if err != nil {
		rl.Warnf("releasing asset %q failed: %v", handle, err)
		return outcomeFailed
	}

	rl.Infof("released asset %q", handle)
	return outcomeDeleted
}

func (c *Coordinator) isPlaceholder(ref asset.Reference) bool {
	return c.placeholder.URL != "" && strings.TrimSpace(ref.URL) == c.placeholder.URL
}

// CreateEntity validates every upload, uploads them, then persists doc once with the new references.
// When an upload fails the uploads already made for doc are released and nothing is persisted.
func (c *Coordinator) CreateEntity(ctx context.Context, doc *document.Document, uploads map[string]asset.PendingUpload) error {
	if doc == nil || !doc.Kind.Valid() {
		return fmt.Errorf("%w: invalid document kind", asset.ErrValidation)
	}

	fields := make([]string, 0, len(uploads))
	for f := range uploads {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	type planned struct {
		field  string
		class  asset.Class
		folder string
	}

	plan := make([]planned, 0, len(fields))
	for _, f := range fields {
		class, folder, err := c.Folder(doc.Kind, f)
		if err != nil {
			return err
		}
		if err := c.validate(uploads[f], class); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		plan = append(plan, planned{f, class, folder})
	}

	attached := make(map[string]asset.Reference, len(plan))
	for _, p := range plan {
		ref, err := c.upload(ctx, uploads[p.field], p.class, p.folder)
		if err != nil {
			for _, sibling := range attached {
				c.ReleaseAsset(ctx, sibling)
			}
			return fmt.Errorf("%s: %w", p.field, err)
		}
		attached[p.field] = ref
	}

	if doc.Media == nil {
		doc.Media = make(map[string]asset.Reference, len(attached)+1)
	}
	for f, ref := range attached {
		doc.Media[f] = ref
	}
	if doc.Kind == document.KindUser && doc.Media[ProfilePicField].IsZero() && !c.placeholder.IsZero() {
		doc.Media[ProfilePicField] = c.placeholder
	}

	if err := c.documents.Create(ctx, doc); err != nil {
		if len(attached) > 0 {
			util.LoggerFrom(ctx).Warnf("creating %s %q failed, %d uploaded asset(s) orphaned: %v", doc.Kind, doc.ID, len(attached), err)
		}
		return err
	}

	return nil
}

// ReplaceMedia swaps one media field of a stored document, releasing the previous asset afterwards.
func (c *Coordinator) ReplaceMedia(ctx context.Context, kind document.Kind, id string, field string, up asset.PendingUpload) (asset.Reference, error) {
	class, folder, err := c.Folder(kind, field)
	if err != nil {
		return asset.Reference{}, err
	}

	doc, err := c.documents.Get(ctx, kind, id)
	if err != nil {
		return asset.Reference{}, err
	}

	old := doc.Media[field]
	return c.ReplaceAsset(ctx, old, up, class, folder, func(ctx context.Context, ref asset.Reference) error {
		return c.documents.SetMedia(ctx, kind, id, field, ref)
	})
}

// RemoveMedia detaches a media field. A user's profile picture falls back to the placeholder.
func (c *Coordinator) RemoveMedia(ctx context.Context, kind document.Kind, id string, field string) error {
	if _, _, err := c.Folder(kind, field); err != nil {
		return err
	}

	doc, err := c.documents.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	old := doc.Media[field]

	var next asset.Reference
	if kind == document.KindUser && field == ProfilePicField {
		next = c.placeholder
	}

	if old == next {
		return nil
	}

	if err := c.documents.SetMedia(ctx, kind, id, field, next); err != nil {
		return err
	}

	c.ReleaseAsset(ctx, old)
	return nil
}

// DeleteEntity releases every attached asset, then deletes the document whatever the release outcomes.
func (c *Coordinator) DeleteEntity(ctx context.Context, kind document.Kind, id string) error {
	doc, err := c.documents.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	fields := make([]string, 0, len(doc.Media))
	for f := range doc.Media {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		c.ReleaseAsset(ctx, doc.Media[f])
	}

	return c.documents.Delete(ctx, kind, id)
}
