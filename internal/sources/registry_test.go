package sources

import (
	"context"
	"testing"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

type stubProvider struct {
	name       string
	kind       models.SourceKind
	configured bool
	offers     []models.Offer
	err        error
}

func (s *stubProvider) Name() string            { return s.name }
func (s *stubProvider) Kind() models.SourceKind { return s.kind }
func (s *stubProvider) Configured() bool        { return s.configured }
func (s *stubProvider) Search(context.Context, SearchQuery) ([]models.Offer, error) {
	return s.offers, s.err
}

func newTestRegistry() *Registry {
	return NewRegistry(
		&stubProvider{name: "adzuna", kind: models.SourceKindJob, configured: true},
		&stubProvider{name: "jooble", kind: models.SourceKindJob, configured: false},
		&stubProvider{name: "awin", kind: models.SourceKindDeal, configured: true},
		&stubProvider{name: "dealfeed", kind: models.SourceKindDeal, configured: true},
	)
}

func TestJobSources_DefaultsToAllEnabled(t *testing.T) {
	r := newTestRegistry()
	got := r.JobSources(nil)
	if len(got) != 1 || got[0].Name() != "adzuna" {
		t.Fatalf("Expected only configured job source adzuna, got %d sources", len(got))
	}
}

func TestJobSources_UnconfiguredNeverIncluded(t *testing.T) {
	r := newTestRegistry()
	got := r.JobSources([]string{"jooble"})
	if len(got) != 0 {
		t.Errorf("Expected explicit request for unconfigured source to yield nothing, got %d", len(got))
	}
}

func TestDealSources_IntersectsWithRequest(t *testing.T) {
	r := newTestRegistry()
	got := r.DealSources([]string{"awin", "nonexistent"})
	if len(got) != 1 || got[0].Name() != "awin" {
		t.Fatalf("Expected intersection to yield awin only, got %d sources", len(got))
	}
}

func TestEnabled_OrderIsDeterministic(t *testing.T) {
	r := newTestRegistry()
	first := r.Enabled(nil)
	for i := 0; i < 5; i++ {
		again := r.Enabled(nil)
		if len(again) != len(first) {
			t.Fatalf("Run %d: expected %d sources, got %d", i, len(first), len(again))
		}
		for j := range first {
			if first[j].Name() != again[j].Name() {
				t.Fatalf("Run %d: order changed at %d: %s vs %s", i, j, first[j].Name(), again[j].Name())
			}
		}
	}
}

func TestAll_ReportsEveryProviderWithLastImport(t *testing.T) {
	r := newTestRegistry()
	stamp := time.Now()
	r.MarkImported("adzuna", stamp)

	all := r.All()
	if len(all) != 4 {
		t.Fatalf("Expected 4 descriptors, got %d", len(all))
	}
	for _, src := range all {
		switch src.ID {
		case "adzuna":
			if !src.Enabled || !src.LastImportAt.Equal(stamp) {
				t.Errorf("adzuna descriptor wrong: %+v", src)
			}
		case "jooble":
			if src.Enabled {
				t.Error("Expected jooble to report disabled")
			}
		}
	}
}
