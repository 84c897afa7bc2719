package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/indieinfra/plaza/asset"
)

// layoutVersion is the version segment every self-hosted store writes into its object paths,
// so that public urls resolve through asset.DeriveHandle.
const layoutVersion = "v1"

// Store is the remote asset store capability. Uploads must be confirmed before a document
// references them; deletes are idempotent.
type Store interface {
	// Upload pushes buf into folder and returns the servable url and deletion handle.
	// Failures wrap asset.ErrUploadFailed.
	Upload(ctx context.Context, buf []byte, ext string, folder string) (asset.Reference, error)

	// Delete removes the object identified by handle. An empty handle or a missing object is
	// a success. Other failures wrap asset.ErrDeletionFailed.
	Delete(ctx context.Context, handle string, kind asset.Kind) error
}

// EncodeDataURI converts a buffer into the base64 data uri transport string, typed from ext.
func EncodeDataURI(buf []byte, ext string) string {
	return fmt.Sprintf("data:%s;base64,%s", asset.TypeForExtension(ext), base64.StdEncoding.EncodeToString(buf))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

func normalizeFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

// objectPath joins the versioned layout shared by the s3, filesystem and memory stores.
func objectPath(folder, name, ext string) string {
	if folder == "" {
		return fmt.Sprintf("upload/%s/%s%s", layoutVersion, name, ext)
	}

	return fmt.Sprintf("upload/%s/%s/%s%s", layoutVersion, folder, name, ext)
}

func uploadFailed(err error) error {
	return fmt.Errorf("%w: %w", asset.ErrUploadFailed, err)
}

func deletionFailed(err error) error {
	return fmt.Errorf("%w: %w", asset.ErrDeletionFailed, err)
}
