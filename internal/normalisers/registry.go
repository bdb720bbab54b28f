package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser by MIME type and priority.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(ns ...driven.Normaliser) *Registry {
	r := &Registry{byMIME: make(map[string][]driven.Normaliser)}
	for _, n := range ns {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser under each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range n.SupportedMIMETypes() {
		list := append(r.byMIME[m], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[m] = list
	}
}

// Normalise runs the highest-priority normaliser for raw.MIMEType.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	r.mu.RLock()
	list := r.byMIME[BaseMIME(raw.MIMEType)]
	r.mu.RUnlock()
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no normaliser for %q (%s)", domain.ErrUnsupportedType, raw.MIMEType, raw.URI)
	}
	return list[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byMIME))
	for m := range r.byMIME {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
