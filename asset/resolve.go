package asset

import (
	"net/url"
	"path"
	"strings"
)

const uploadSegment = "upload"

// DeriveHandle recovers a deletion handle from a url shaped like
// .../upload/v<version>/<folder>/<name>.<ext>. The handle is everything after the
// version segment with the final extension removed. ok is false for any other shape,
// which callers treat as nothing to delete.
func DeriveHandle(rawURL string) (handle string, ok bool) {
	segments := pathSegments(rawURL)

	for i, seg := range segments {
		if seg != uploadSegment || i+2 >= len(segments) {
			continue
		}
		if !isVersionSegment(segments[i+1]) {
			continue
		}

		rest := segments[i+2:]
		last := rest[len(rest)-1]
		rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))

		handle = strings.Join(rest, "/")
		if handle == "" || strings.HasSuffix(handle, "/") {
			return "", false
		}

		return handle, true
	}

	return "", false
}

// DeriveKind guesses the resource kind of a stored url. It is only used for references
// that were persisted without one.
func DeriveKind(rawURL string) Kind {
	segments := pathSegments(rawURL)

	for i, seg := range segments {
		if seg == uploadSegment && i > 0 {
			switch k := Kind(segments[i-1]); k {
			case KindImage, KindVideo, KindRaw:
				return k
			}
		}
	}

	if len(segments) > 0 {
		if k := KindForExtension(path.Ext(segments[len(segments)-1])); k != KindUnknown {
			return k
		}
	}

	return KindImage
}

func isVersionSegment(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}

	for _, c := range seg[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func pathSegments(rawURL string) []string {
	p := strings.TrimSpace(rawURL)
	if parsed, err := url.Parse(p); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}

	return out
}
