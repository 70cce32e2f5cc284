// Package sources declares the provider registry and the per-provider
// adapters that map raw third-party responses into the common Offer shape.
package sources

import (
	"context"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

// SearchQuery is the provider-facing slice of a search request. Adapters
// forward what their API supports and ignore the rest; residual filtering
// happens after the merge.
type SearchQuery struct {
	Query    string
	Category string
	Limit    int
}

// Provider is one external job or deal feed. Configured reports whether the
// required credentials are present; an unconfigured provider is never
// dispatched to.
type Provider interface {
	Name() string
	Kind() models.SourceKind
	Configured() bool
	Search(ctx context.Context, q SearchQuery) ([]models.Offer, error)
}
