package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
)

// cloudinaryAPI is the subset of the Cloudinary upload API the store relies on.
type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

var newCloudinaryAPI = func(cfg *config.CloudinaryMediaStrategy) (cloudinaryAPI, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}

	return &cld.Upload, nil
}

const (
	destroyOK       = "ok"
	destroyNotFound = "not found"
)

// CloudinaryStore uploads base64 data uris to Cloudinary. Its urls have the
// .../<kind>/upload/v<version>/<public id>.<ext> shape that asset.DeriveHandle expects.
type CloudinaryStore struct {
	api cloudinaryAPI
}

func NewCloudinaryStore(cfg *config.Media) (*CloudinaryStore, error) {
	if cfg == nil || cfg.Cloudinary == nil {
		return nil, fmt.Errorf("cloudinary media config is nil")
	}

	api, err := newCloudinaryAPI(cfg.Cloudinary)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return &CloudinaryStore{api: api}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, buf []byte, ext string, folder string) (asset.Reference, error) {
	if len(buf) == 0 {
		return asset.Reference{}, uploadFailed(errors.New("empty buffer"))
	}

	res, err := s.api.Upload(ctx, EncodeDataURI(buf, normalizeExt(ext)), uploader.UploadParams{
		Folder:       normalizeFolder(folder),
		ResourceType: "auto",
	})
	if err != nil {
		return asset.Reference{}, uploadFailed(err)
	}

	if res == nil {
		return asset.Reference{}, uploadFailed(errors.New("empty response from cloudinary"))
	}

	if res.Error.Message != "" {
		return asset.Reference{}, uploadFailed(errors.New(res.Error.Message))
	}

	url := res.SecureURL
	if url == "" {
		url = res.URL
	}

	if url == "" || res.PublicID == "" {
		return asset.Reference{}, uploadFailed(errors.New("cloudinary did not return a url and public id"))
	}

	kind := asset.Kind(res.ResourceType)
	if kind == asset.KindUnknown {
		kind = asset.KindForExtension(ext)
	}

	return asset.Reference{URL: url, Handle: res.PublicID, Kind: kind}, nil
}

// Delete destroys the object. Cloudinary scopes public ids per resource type, so a wrong kind
// reports "not found" even when the object exists; that is accepted as already deleted.
func (s *CloudinaryStore) Delete(ctx context.Context, handle string, kind asset.Kind) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil
	}

	if kind == asset.KindUnknown {
		kind = asset.KindImage
	}

	res, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     handle,
		ResourceType: string(kind),
	})
	if err != nil {
		return deletionFailed(err)
	}

	if res == nil {
		return deletionFailed(errors.New("empty response from cloudinary"))
	}

	if res.Error.Message != "" {
		return deletionFailed(errors.New(res.Error.Message))
	}

	switch res.Result {
	case destroyOK, destroyNotFound:
		return nil
	default:
		return deletionFailed(fmt.Errorf("unexpected destroy result %q", res.Result))
	}
}
