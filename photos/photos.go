// Package photos stores captured person photos and hands back the URI that
// ends up in Person.PhotoURI.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid photo key")

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (uri string, err error)
}

// Key builds the object key for a person's photo. ext comes from the upload
// filename and defaults to .jpg.
func Key(personID, ext string, unixNano int64) string {
	ext = strings.ToLower(ext)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "/\\") {
		ext = ".jpg"
	}
	return fmt.Sprintf("people/%s/%d%s", personID, unixNano, ext)
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}
