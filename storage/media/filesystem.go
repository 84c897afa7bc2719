package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
	storageutil "github.com/indieinfra/plaza/storage/util"
)

// FilesystemStore stores uploaded media in a local directory served under a public url.
type FilesystemStore struct {
	basePath  string
	publicURL string
	mu        sync.Mutex // Protects file operations
}

// NewFilesystemStore creates a new filesystem-based media store.
func NewFilesystemStore(cfg *config.FilesystemMediaStrategy) (*FilesystemStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem media config is nil")
	}

	// Ensure base path exists
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemStore{
		basePath:  cfg.Path,
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
	}, nil
}

// Upload writes the buffer to disk and returns its public url.
func (fs *FilesystemStore) Upload(ctx context.Context, buf []byte, ext string, folder string) (asset.Reference, error) {
	if len(buf) == 0 {
		return asset.Reference{}, uploadFailed(errors.New("empty buffer"))
	}

	folder = normalizeFolder(folder)
	if folder != "" && !filepath.IsLocal(folder) {
		return asset.Reference{}, uploadFailed(fmt.Errorf("folder %q escapes the media directory", folder))
	}

	ext = normalizeExt(ext)
	name := uuid.New().String()
	relPath := objectPath(folder, name, ext)
	absPath := filepath.Join(fs.basePath, filepath.FromSlash(relPath))

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return asset.Reference{}, uploadFailed(fmt.Errorf("failed to create directory: %w", err))
	}

	if err := os.WriteFile(absPath, buf, 0644); err != nil {
		// Attempt to clean up partial file
		_ = os.Remove(absPath)
		return asset.Reference{}, uploadFailed(fmt.Errorf("failed to write file: %w", err))
	}

	return asset.Reference{
		URL:    fs.publicURL + relPath,
		Handle: path.Join(folder, name),
		Kind:   asset.KindForExtension(ext),
	}, nil
}

// Delete removes every file stored under handle. Missing files are treated as deleted.
func (fs *FilesystemStore) Delete(ctx context.Context, handle string, _ asset.Kind) error {
	handle = strings.Trim(strings.TrimSpace(handle), "/")
	if handle == "" {
		return nil
	}

	if !filepath.IsLocal(filepath.FromSlash(handle)) {
		return deletionFailed(fmt.Errorf("handle %q escapes the media directory", handle))
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	base := filepath.Join(fs.basePath, filepath.FromSlash(objectPath("", handle, "")))
	matches, err := filepath.Glob(globEscape(base) + ".*")
	if err != nil {
		return deletionFailed(err)
	}
	matches = append(matches, base)

	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			continue
		}

		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return deletionFailed(fmt.Errorf("failed to remove file: %w", err))
		}
	}

	return nil
}

func globEscape(p string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(p)
}
