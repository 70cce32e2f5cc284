package sync

import (
	"context"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

// OfferStore abstracts canonical storage for reconciliation. Upsert must be
// atomic on the dedup key so simultaneous runs cannot double-insert; it
// reports whether the record was created.
type OfferStore interface {
	GetByDedupKey(ctx context.Context, key string) (*models.Offer, error)
	Upsert(ctx context.Context, offer models.Offer) (created bool, err error)
	CountOffers(ctx context.Context) (int, error)
}
