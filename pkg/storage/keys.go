package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks so accented characters survive as
// plain ASCII in object keys.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SafeSegment sanitizes a single path segment for use in an object key.
// Directory components are dropped, diacritics fold to ASCII, and anything
// outside [a-zA-Z0-9._-] collapses to a single dash.
func SafeSegment(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "\x00", "")

	if folded, _, err := transform.String(foldTransformer, name); err == nil {
		name = folded
	}

	var b strings.Builder
	b.Grow(len(name))
	lastDash := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "unnamed"
	}
	return out
}

// JoinKey builds an object key from sanitized segments. Empty segments are
// dropped, so JoinKey("templates", "", "hero.psd") is "templates/hero.psd".
func JoinKey(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, seg := range strings.Split(strings.Trim(part, "/"), "/") {
			if seg == "" {
				continue
			}
			segments = append(segments, SafeSegment(seg))
		}
	}
	return strings.Join(segments, "/")
}

// UniqueKey builds a collision-free key under prefix by inserting a UUID
// between the filename stem and its extension.
func UniqueKey(prefix, filename string) string {
	segment := SafeSegment(filename)
	ext := path.Ext(segment)
	stem := strings.TrimSuffix(segment, ext)
	if stem == "" {
		stem = "object"
	}
	return JoinKey(prefix, fmt.Sprintf("%s-%s%s", stem, uuid.NewString(), ext))
}

// contentTypes covers formats the pipeline moves that mime.TypeByExtension
// does not resolve on a bare system.
var contentTypes = map[string]string{
	".psd":  "image/vnd.adobe.photoshop",
	".psb":  "image/vnd.adobe.photoshop",
	".webp": "image/webp",
	".avif": "image/avif",
}

// ContentTypeForKey derives a MIME type from the key's extension, falling
// back to application/octet-stream.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
