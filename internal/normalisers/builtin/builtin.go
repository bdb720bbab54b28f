// Package builtin assembles the registry of bundled normalisers.
package builtin

import (
	"github.com/custodia-labs/docent/internal/normalisers"
	"github.com/custodia-labs/docent/internal/normalisers/docx"
	"github.com/custodia-labs/docent/internal/normalisers/eml"
	"github.com/custodia-labs/docent/internal/normalisers/html"
	"github.com/custodia-labs/docent/internal/normalisers/markdown"
	"github.com/custodia-labs/docent/internal/normalisers/pdf"
	"github.com/custodia-labs/docent/internal/normalisers/plaintext"
)

// Registry returns a registry with every bundled normaliser.
func Registry() *normalisers.Registry {
	return normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(),
		eml.New(),
	)
}
