package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

// Memory is the map-backed store used by tests and STORE=memory deployments.
// It mirrors the Postgres conflict semantics: upserts keyed on the dedup key,
// with status and featured preserved across updates.
type Memory struct {
	mu     sync.Mutex
	offers map[string]models.Offer
}

func NewMemory() *Memory {
	return &Memory{offers: make(map[string]models.Offer)}
}

func (m *Memory) GetByDedupKey(_ context.Context, key string) (*models.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.offers[key]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *Memory) Upsert(_ context.Context, o models.Offer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := o.DedupKey()
	existing, ok := m.offers[key]
	if !ok {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		m.offers[key] = o
		return true, nil
	}

	// Keep the canonical identity and the administratively-set fields.
	o.ID = existing.ID
	o.Status = existing.Status
	o.Featured = existing.Featured
	m.offers[key] = o
	return false, nil
}

func (m *Memory) CountOffers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.offers), nil
}

// SetStatus applies an administrative status override, the write path that
// provider sync must never clobber.
func (m *Memory) SetStatus(key string, status models.OfferStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.offers[key]; ok {
		o.Status = status
		m.offers[key] = o
	}
}
