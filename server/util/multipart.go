package util

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/indieinfra/plaza/asset"
)

// ErrFileTooLarge is returned when a file part exceeds the transport limit.
var ErrFileTooLarge = errors.New("file exceeds upload limit")

type MultipartValues map[string]any

type MultipartFile struct {
	Field  string
	File   multipart.File
	Header *multipart.FileHeader
}

type ParsedMultipart struct {
	Values MultipartValues
	Files  []MultipartFile
}

func (pm *ParsedMultipart) CloseFiles() {
	for _, mf := range pm.Files {
		if mf.File != nil {
			mf.File.Close()
		}
	}
}

func (pm *ParsedMultipart) FileByKey(key string) *MultipartFile {
	for _, mf := range pm.Files {
		if mf.Field == key {
			return &mf
		}
	}

	return nil
}

// ParseMultipart reads a multipart body. The whole body is capped at maxFileSize+maxMemory and
// every file part at maxFileSize; both surface as ErrFileTooLarge.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxMemory, maxFileSize int64) (*ParsedMultipart, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+maxMemory)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: %w", ErrFileTooLarge, err)
		}
		return nil, err
	}

	files, err := extractFiles(r, maxFileSize)
	if err != nil {
		return nil, err
	}

	return &ParsedMultipart{
		Values: extractValues(r),
		Files:  files,
	}, nil
}

func extractValues(r *http.Request) MultipartValues {
	values := make(MultipartValues)

	if r.MultipartForm != nil {
		for key, arr := range r.MultipartForm.Value {
			switch len(arr) {
			case 0:
				continue
			case 1:
				values[key] = arr[0]
			default:
				asAny := make([]any, len(arr))
				for i, v := range arr {
					asAny[i] = v
				}
				values[key] = asAny
			}
		}
	}

	return values
}

func extractFiles(r *http.Request, maxFileSize int64) ([]MultipartFile, error) {
	var filesOut []MultipartFile

	for key, fhs := range r.MultipartForm.File {
		for _, fh := range fhs {
			if maxFileSize > 0 && fh.Size > maxFileSize {
				closeAll(filesOut)
				return nil, fmt.Errorf("%w: %q is %d bytes", ErrFileTooLarge, fh.Filename, fh.Size)
			}

			f, err := fh.Open()
			if err != nil {
				closeAll(filesOut)
				return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
			}

			filesOut = append(filesOut, MultipartFile{Field: key, File: f, Header: fh})
		}
	}

	return filesOut, nil
}

func closeAll(files []MultipartFile) {
	pm := ParsedMultipart{Files: files}
	pm.CloseFiles()
}

// PendingUploads reads every file part into a pending upload keyed by field. Only the first file
// of a field is used. The declared part type wins; otherwise the type is inferred from the name.
func (pm *ParsedMultipart) PendingUploads() (map[string]asset.PendingUpload, error) {
	out := make(map[string]asset.PendingUpload, len(pm.Files))

	for _, mf := range pm.Files {
		if _, seen := out[mf.Field]; seen {
			continue
		}

		buf, err := io.ReadAll(mf.File)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", mf.Header.Filename, err)
		}

		mimeType := mf.Header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = asset.TypeForExtension(path.Ext(mf.Header.Filename))
		}

		out[mf.Field] = asset.PendingUpload{
			Buffer:       buf,
			OriginalName: mf.Header.Filename,
			MimeType:     mimeType,
		}
	}

	return out, nil
}
