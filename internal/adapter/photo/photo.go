// Package photo stores uploaded report photos on local disk or in Google Cloud Storage.
package photo

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// LocalURLPrefix is the public path under which local photos are served.
const LocalURLPrefix = "/api/uploads/"

// ErrInvalidName is returned for names that are empty or try to leave the upload directory.
var ErrInvalidName = errors.New("invalid photo name")

// Store persists a photo and returns the URL clients should use to fetch it.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (url string, size int64, err error)
}

func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return base, nil
}
