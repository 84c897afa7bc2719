package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
	storageutil "github.com/indieinfra/plaza/storage/util"
)

// s3Client is the subset of the minio client used by S3Store; tests replace it with a stub.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

// S3Store uploads media to S3 or any compatible service (R2, Backblaze, MinIO).
// Objects are keyed upload/v1/<folder>/<uuid><ext>; the handle is the key without the
// layout prefix and extension.
type S3Store struct {
	client         s3Client
	bucket         string
	publicBase     string
	forcePathStyle bool
	endpointHost   string
	secure         bool
	region         string
}

func NewS3Store(cfg *config.Media) (*S3Store, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, fmt.Errorf("s3 media config is nil")
	}

	s3cfg := cfg.S3
	region := strings.TrimSpace(s3cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(s3cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
		endpointHost = parsed.Host
	}

	lookup := minio.BucketLookupAuto
	if s3cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	secure := !s3cfg.DisableSSL

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(s3cfg.AccessKeyId, s3cfg.SecretKeyId, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, s3cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", s3cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", s3cfg.Bucket)
	}

	publicBase := ""
	if strings.TrimSpace(s3cfg.PublicUrl) != "" {
		publicBase = storageutil.NormalizeBaseURL(s3cfg.PublicUrl)
	}

	return &S3Store{
		client:         client,
		bucket:         s3cfg.Bucket,
		publicBase:     publicBase,
		forcePathStyle: s3cfg.ForcePathStyle,
		endpointHost:   endpointHost,
		secure:         secure,
		region:         s3cfg.Region,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, buf []byte, ext string, folder string) (asset.Reference, error) {
	if len(buf) == 0 {
		return asset.Reference{}, uploadFailed(fmt.Errorf("empty buffer"))
	}

	ext = normalizeExt(ext)
	folder = normalizeFolder(folder)
	name := uuid.New().String()
	key := objectPath(folder, name, ext)

	opts := minio.PutObjectOptions{ContentType: asset.TypeForExtension(ext)}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(buf), int64(len(buf)), opts); err != nil {
		return asset.Reference{}, uploadFailed(fmt.Errorf("upload to s3 failed: %w", err))
	}

	return asset.Reference{
		URL:    s.objectURL(key),
		Handle: path.Join(folder, name),
		Kind:   asset.KindForExtension(ext),
	}, nil
}

// Delete removes every object stored under the handle regardless of extension. The kind is
// irrelevant for S3. Nothing listed means the object is already gone.
func (s *S3Store) Delete(ctx context.Context, handle string, _ asset.Kind) error {
	handle = strings.Trim(strings.TrimSpace(handle), "/")
	if handle == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := objectPath("", handle, "")
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return deletionFailed(fmt.Errorf("list s3 objects failed: %w", obj.Err))
		}

		if !matchesHandle(obj.Key, prefix) {
			continue
		}

		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				continue
			}
			return deletionFailed(fmt.Errorf("delete from s3 failed: %w", err))
		}
	}

	return nil
}

// matchesHandle accepts the exact key or the key followed by an extension, so that a handle
// "app/posts/a" never removes "app/posts/ab.jpg".
func matchesHandle(key, prefix string) bool {
	if key == prefix {
		return true
	}

	rest := strings.TrimPrefix(key, prefix)
	return rest != key && strings.HasPrefix(rest, ".") && !strings.Contains(rest, "/")
}

func (s *S3Store) objectURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + key
	}

	scheme := "https"
	if !s.secure {
		scheme = "http"
	}

	if s.forcePathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpointHost, s.bucket, key)
	}

	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.bucket, s.endpointHost, key)
}
