package asset

import (
	"fmt"
	"strings"
)

// Class is a named category of upload with its own size and type policy.
type Class string

const (
	ClassProfilePic    Class = "profile-pic"
	ClassPostMedia     Class = "post-media"
	ClassStoryMedia    Class = "story-media"
	ClassEventImage    Class = "event-image"
	ClassBusinessImage Class = "business-image"
)

const megabyte = 1 << 20

type Policy struct {
	AllowedMimePrefixes []string
	MaxBytes            int64
}

// Policies is built once at process start and only read afterwards.
type Policies map[Class]Policy

func DefaultPolicies() Policies {
	images := []string{"image/"}
	media := []string{"image/", "video/"}

	return Policies{
		ClassProfilePic:    {AllowedMimePrefixes: images, MaxBytes: 5 * megabyte},
		ClassPostMedia:     {AllowedMimePrefixes: media, MaxBytes: 50 * megabyte},
		ClassStoryMedia:    {AllowedMimePrefixes: media, MaxBytes: 50 * megabyte},
		ClassEventImage:    {AllowedMimePrefixes: images, MaxBytes: 10 * megabyte},
		ClassBusinessImage: {AllowedMimePrefixes: images, MaxBytes: 10 * megabyte},
	}
}

// Validate checks an upload against the policy registered for class.
func (p Policies) Validate(up PendingUpload, class Class) error {
	policy, ok := p[class]
	if !ok {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrUnknownClass, class)
	}

	return Validate(up, policy)
}

// Validate is the upload gateway. It has no side effects; size is checked before type.
func Validate(up PendingUpload, policy Policy) error {
	size := int64(len(up.Buffer))
	if size == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyUpload)
	}

	if size > policy.MaxBytes {
		return fmt.Errorf("%w: %w: %d bytes exceeds limit of %d", ErrValidation, ErrPayloadTooLarge, size, policy.MaxBytes)
	}

	mt := normalizeMIME(up.MimeType)
	for _, prefix := range policy.AllowedMimePrefixes {
		if mt != "" && strings.HasPrefix(mt, strings.ToLower(prefix)) {
			return nil
		}
	}

	return fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnsupportedMediaType, up.MimeType)
}
