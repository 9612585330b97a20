package photo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local writes photos into a directory served by the HTTP API.
type Local struct {
	dir string
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the directory photos are written to.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Save(ctx context.Context, name, _ string, r io.Reader) (string, int64, error) {
	base, err := cleanName(name)
	if err != nil {
		return "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(l.dir, "."+base+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp photo: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, base)); err != nil {
		return "", 0, fmt.Errorf("store photo: %w", err)
	}
	return LocalURLPrefix + base, size, nil
}
