// Package file loads local files as raw documents.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.DocumentLoader = (*Loader)(nil)

// DefaultMaxBytes caps the size of a loaded file.
const DefaultMaxBytes = 64 << 20

// Metadata keys set on loaded files.
const (
	MetaPath    = "path"
	MetaModTime = "modified"
)

// Loader reads files from disk.
type Loader struct {
	maxBytes int64
}

// New creates a loader. maxBytes <= 0 uses DefaultMaxBytes.
func New(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{maxBytes: maxBytes}
}

// Load reads path. "file://" prefixes are accepted.
func (l *Loader) Load(ctx context.Context, path string) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = strings.TrimPrefix(strings.TrimSpace(path), "file://")
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrInvalidInput, path, info.Size(), l.maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnreadable, path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &domain.RawDocument{
		URI:      abs,
		MIMEType: normalisers.DetectMIME(path, content),
		Content:  content,
		Metadata: map[string]any{
			MetaPath:    abs,
			MetaModTime: info.ModTime(),
		},
	}, nil
}
