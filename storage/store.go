// Package storage puts project images into an object store and hands back
// public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when removing or reading a missing key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the image bucket.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(u string) string
}

// KeyFromURL returns the last path segment of a public URL, which is the
// object key for the flat image bucket.
func KeyFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	key := path.Base(raw)
	if key == "." || key == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		return unescaped
	}
	return key
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UniqueName builds an object key of the form <unixMillis>_<index>_<name>.
// The name is reduced to URL-safe characters.
func UniqueName(now time.Time, index int, original string) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.TrimSpace(original)), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%d_%d_%s", now.UnixMilli(), index, name)
}

// ReplaceExt swaps the extension of key, used after re-encoding an image.
func ReplaceExt(key, ext string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ext
}

// ContentTypeForKey guesses an image content type from the key extension.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "application/octet-stream"
}

// KeyFor is UniqueName with the extension corrected for re-encoded images.
func KeyFor(now time.Time, index int, original, contentType string) string {
	key := UniqueName(now, index, original)
	if contentType == "image/jpeg" && ContentTypeForKey(key) != "image/jpeg" {
		key = ReplaceExt(key, ".jpg")
	}
	return key
}
