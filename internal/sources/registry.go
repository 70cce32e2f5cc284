package sources

import (
	"sync"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

// Registry holds the closed set of known providers in registration order.
// That order is what keeps resolved source lists, and therefore cache keys,
// deterministic.
type Registry struct {
	providers []Provider

	mu         sync.Mutex
	lastImport map[string]time.Time
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{
		providers:  providers,
		lastImport: make(map[string]time.Time),
	}
}

// JobSources resolves the requested subset (nil means all) to the enabled
// job providers.
func (r *Registry) JobSources(preferred []string) []Provider {
	return r.enabled(models.SourceKindJob, preferred)
}

// DealSources resolves the requested subset (nil means all) to the enabled
// deal providers.
func (r *Registry) DealSources(preferred []string) []Provider {
	return r.enabled(models.SourceKindDeal, preferred)
}

// Enabled resolves the requested subset against every enabled provider
// regardless of kind.
func (r *Registry) Enabled(preferred []string) []Provider {
	var out []Provider
	out = append(out, r.enabled(models.SourceKindJob, preferred)...)
	out = append(out, r.enabled(models.SourceKindDeal, preferred)...)
	return out
}

func (r *Registry) enabled(kind models.SourceKind, preferred []string) []Provider {
	requested := make(map[string]bool, len(preferred))
	for _, id := range preferred {
		requested[id] = true
	}

	var out []Provider
	for _, p := range r.providers {
		if p.Kind() != kind || !p.Configured() {
			continue
		}
		if len(preferred) > 0 && !requested[p.Name()] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// All returns a descriptor for every registered provider, enabled or not,
// for the status endpoint.
func (r *Registry) All() []models.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Source, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, models.Source{
			ID:           p.Name(),
			Name:         p.Name(),
			Kind:         p.Kind(),
			Enabled:      p.Configured(),
			LastImportAt: r.lastImport[p.Name()],
		})
	}
	return out
}

// MarkImported records the completion time of a sync import for a source.
func (r *Registry) MarkImported(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastImport[id] = t
}
