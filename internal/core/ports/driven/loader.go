package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// DocumentLoader reads a local file into a raw document with its MIME type set.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*domain.RawDocument, error)
}
