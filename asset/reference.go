package asset

import (
	"mime"
	"path/filepath"
	"strings"
)

// Kind is the resource kind the remote store files an object under.
type Kind string

const (
	KindUnknown Kind = ""
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindRaw     Kind = "raw"
)

// Reference is the durable pair of servable url and deletion handle embedded in a document.
// Handle may be empty on older records; it is then derived from URL when needed.
type Reference struct {
	URL    string `json:"url"`
	Handle string `json:"handle,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
}

func (r Reference) IsZero() bool {
	return r.URL == "" && r.Handle == ""
}

// PendingUpload lives for the duration of one request only.
type PendingUpload struct {
	Buffer       []byte
	OriginalName string
	MimeType     string
}

// Extension returns the file-extension hint for an upload, including the leading dot.
// The original file name wins; otherwise the first extension registered for the MIME type is used.
func Extension(up PendingUpload) string {
	if ext := strings.ToLower(filepath.Ext(up.OriginalName)); ext != "" && ext != "." {
		return ext
	}

	mt := normalizeMIME(up.MimeType)
	if mt == "" {
		return ""
	}

	for ext, known := range mediaTypes {
		if known == mt && preferredExtension(ext, mt) {
			return ext
		}
	}

	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}

	return exts[0]
}

// TypeForExtension maps an extension to a MIME type, falling back to application/octet-stream.
func TypeForExtension(ext string) string {
	if ext == "" {
		return "application/octet-stream"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)

	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}

	return "application/octet-stream"
}

// mediaTypes covers the formats clients actually send; the system mime table often lacks video types.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".heic": "image/heic",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

func preferredExtension(ext, mt string) bool {
	return mt != "image/jpeg" || ext == ".jpg"
}

func KindForMIME(mimeType string) Kind {
	mt := normalizeMIME(mimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	case mt == "":
		return KindUnknown
	default:
		return KindRaw
	}
}

func KindForExtension(ext string) Kind {
	if ext == "" {
		return KindUnknown
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	mt := TypeForExtension(ext)
	if mt == "application/octet-stream" {
		return KindUnknown
	}

	return KindForMIME(mt)
}

func normalizeMIME(raw string) string {
	mt := strings.TrimSpace(raw)
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}

	return strings.ToLower(mt)
}
