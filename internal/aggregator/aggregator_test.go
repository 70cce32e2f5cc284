package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/cache"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
	"github.com/Wirsuchen/wisuchen-sub003/internal/ratelimit"
	"github.com/Wirsuchen/wisuchen-sub003/internal/sources"
)

type fakeProvider struct {
	name   string
	kind   models.SourceKind
	offers []models.Offer
	err    error
	calls  int32
}

func (f *fakeProvider) Name() string            { return f.name }
func (f *fakeProvider) Kind() models.SourceKind { return f.kind }
func (f *fakeProvider) Configured() bool        { return true }
func (f *fakeProvider) Search(context.Context, sources.SearchQuery) ([]models.Offer, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

func jobOffer(source, id string, published time.Time) models.Offer {
	return models.Offer{
		Type:        models.OfferTypeJob,
		Title:       "Offer " + id,
		Source:      source,
		ExternalID:  id,
		Status:      models.OfferStatusActive,
		PublishedAt: published,
	}
}

func makeOffers(source string, n int, base time.Time) []models.Offer {
	offers := make([]models.Offer, 0, n)
	for i := 0; i < n; i++ {
		offers = append(offers, jobOffer(source, fmt.Sprintf("%d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	return offers
}

func newAggregator(providers ...sources.Provider) (*Aggregator, *ratelimit.Limiter) {
	limiter := ratelimit.New(100, time.Minute)
	agg := New(sources.NewRegistry(providers...), cache.New(), limiter, time.Minute)
	return agg, limiter
}

func TestSearch_MergesAndDeduplicates(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// Two sources with 15 and 10 offers; 3 of the second source's ids reuse
	// the first source's ids so their dedup keys collide.
	first := makeOffers("alpha", 15, base)
	second := makeOffers("beta", 7, base.Add(time.Hour))
	for i := 0; i < 3; i++ {
		dup := jobOffer("alpha", fmt.Sprintf("%d", i), base.Add(2*time.Hour))
		dup.Title = "Fresher duplicate"
		second = append(second, dup)
	}

	agg, _ := newAggregator(
		&fakeProvider{name: "alpha", kind: models.SourceKindJob, offers: first},
		&fakeProvider{name: "beta", kind: models.SourceKindJob, offers: second},
	)

	result, err := agg.Search(context.Background(), Params{Query: "developer", Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 22 {
		t.Errorf("Expected total 22 after dedup (15+10-3), got %d", result.Total)
	}
	if len(result.Offers) > 20 {
		t.Errorf("Expected at most 20 offers on page, got %d", len(result.Offers))
	}
	if result.Cached {
		t.Error("Expected first call to be uncached")
	}

	// The colliding keys must keep the freshest instance.
	for _, o := range result.Offers {
		if o.DedupKey() == "alpha:0" && o.Title != "Fresher duplicate" {
			t.Errorf("Expected freshest instance to win on collision, got %+v", o)
		}
	}
}

func TestSearch_SecondCallIsCached(t *testing.T) {
	p := &fakeProvider{name: "alpha", kind: models.SourceKindJob,
		offers: makeOffers("alpha", 5, time.Now())}
	agg, _ := newAggregator(p)

	params := Params{Query: "developer", Page: 1, Limit: 20}
	first, err := agg.Search(context.Background(), params)
	if err != nil {
		t.Fatalf("First search failed: %v", err)
	}
	second, err := agg.Search(context.Background(), Params{Query: " Developer ", Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Second search failed: %v", err)
	}

	if !second.Cached {
		t.Error("Expected second equivalent call to be served from cache")
	}
	if second.Total != first.Total || len(second.Offers) != len(first.Offers) {
		t.Error("Expected identical offer set from cache")
	}
	if n := atomic.LoadInt32(&p.calls); n != 1 {
		t.Errorf("Expected a single provider call, got %d", n)
	}
}

func TestSearch_BypassCacheSkipsRead(t *testing.T) {
	p := &fakeProvider{name: "alpha", kind: models.SourceKindJob,
		offers: makeOffers("alpha", 2, time.Now())}
	agg, _ := newAggregator(p)

	if _, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20}); err != nil {
		t.Fatalf("First search failed: %v", err)
	}
	result, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20, BypassCache: true})
	if err != nil {
		t.Fatalf("Bypass search failed: %v", err)
	}
	if result.Cached {
		t.Error("Expected bypassed call to be uncached")
	}
	if n := atomic.LoadInt32(&p.calls); n != 2 {
		t.Errorf("Expected 2 provider calls with bypass, got %d", n)
	}
}

func TestSearch_PartialFailureReturnsSurvivors(t *testing.T) {
	good := &fakeProvider{name: "alpha", kind: models.SourceKindJob,
		offers: makeOffers("alpha", 4, time.Now())}
	bad := &fakeProvider{name: "beta", kind: models.SourceKindJob,
		err: errors.New("upstream exploded")}
	agg, _ := newAggregator(good, bad)

	result, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if result.Total != 4 {
		t.Errorf("Expected 4 surviving offers, got %d", result.Total)
	}

	statuses := map[string]string{}
	for _, rep := range result.Sources {
		statuses[rep.Name] = rep.Status
	}
	if statuses["alpha"] != SourceOK {
		t.Errorf("Expected alpha ok, got %q", statuses["alpha"])
	}
	if statuses["beta"] != SourceFailed {
		t.Errorf("Expected beta failed, got %q", statuses["beta"])
	}
}

func TestSearch_AllProvidersFailed(t *testing.T) {
	agg, _ := newAggregator(
		&fakeProvider{name: "alpha", kind: models.SourceKindJob, err: errors.New("down")},
		&fakeProvider{name: "beta", kind: models.SourceKindJob, err: errors.New("down too")},
	)

	_, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20})
	if !errors.Is(err, models.ErrAllProvidersFailed) {
		t.Fatalf("Expected ErrAllProvidersFailed, got %v", err)
	}
}

func TestSearch_NoEnabledSourcesIsAnError(t *testing.T) {
	agg, _ := newAggregator(
		&fakeProvider{name: "alpha", kind: models.SourceKindJob},
	)

	_, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20, Sources: []string{"unknown"}})
	if !errors.Is(err, models.ErrAllProvidersFailed) {
		t.Fatalf("Expected ErrAllProvidersFailed with zero enabled sources, got %v", err)
	}
}

func TestSearch_RateLimitedSourceIsSkippedNotFailed(t *testing.T) {
	good := &fakeProvider{name: "alpha", kind: models.SourceKindJob,
		offers: makeOffers("alpha", 2, time.Now())}
	starved := &fakeProvider{name: "beta", kind: models.SourceKindJob,
		offers: makeOffers("beta", 2, time.Now())}
	agg, limiter := newAggregator(good, starved)

	// Exhaust beta's budget up front.
	for limiter.Consume("beta") {
	}

	result, err := agg.Search(context.Background(), Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("Expected only alpha's offers, got total %d", result.Total)
	}
	for _, rep := range result.Sources {
		if rep.Name == "beta" && rep.Status != SourceRateLimited {
			t.Errorf("Expected beta skipped_rate_limited, got %q", rep.Status)
		}
	}
	if n := atomic.LoadInt32(&starved.calls); n != 0 {
		t.Errorf("Expected starved source to never be called, got %d calls", n)
	}
}

func TestSearch_PaginationAfterMerge(t *testing.T) {
	offers := makeOffers("alpha", 25, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	agg, _ := newAggregator(&fakeProvider{name: "alpha", kind: models.SourceKindJob, offers: offers})

	page2, err := agg.Search(context.Background(), Params{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page2.Total != 25 {
		t.Errorf("Expected total 25 regardless of page, got %d", page2.Total)
	}
	if len(page2.Offers) != 10 {
		t.Errorf("Expected 10 offers on page 2, got %d", len(page2.Offers))
	}

	beyond, err := agg.Search(context.Background(), Params{Page: 9, Limit: 10, BypassCache: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(beyond.Offers) != 0 {
		t.Errorf("Expected empty page past the end, got %d offers", len(beyond.Offers))
	}
}

func TestSearch_ConcurrentMissesCollapse(t *testing.T) {
	p := &fakeProvider{name: "alpha", kind: models.SourceKindJob,
		offers: makeOffers("alpha", 3, time.Now())}
	agg, _ := newAggregator(p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := agg.Search(context.Background(), Params{Query: "cold", Page: 1, Limit: 20}); err != nil {
				t.Errorf("Search failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&p.calls); n != 1 {
		t.Errorf("Expected concurrent cold-cache searches to collapse to 1 provider call, got %d", n)
	}
}

func TestMerge_OrderIsDeterministic(t *testing.T) {
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	featured := jobOffer("alpha", "f", base)
	featured.Featured = true
	urgent := jobOffer("alpha", "u", base)
	urgent.Urgent = true
	fresh := jobOffer("alpha", "n", base.Add(time.Hour))
	old := jobOffer("alpha", "o", base.Add(-time.Hour))

	in := []models.Offer{old, fresh, urgent, featured}
	merged := Merge(in)

	wantOrder := []string{"f", "u", "n", "o"}
	for i, want := range wantOrder {
		if merged[i].ExternalID != want {
			t.Fatalf("Position %d: expected %s, got %s", i, want, merged[i].ExternalID)
		}
	}

	// Same input set, shuffled, must merge to the same order.
	again := Merge([]models.Offer{featured, old, urgent, fresh})
	for i := range merged {
		if merged[i].ExternalID != again[i].ExternalID {
			t.Fatalf("Merge order not deterministic at %d", i)
		}
	}
}

func TestCacheKey_StableAcrossEquivalentParams(t *testing.T) {
	a := Params{Query: " Developer ", Sources: []string{"beta", "alpha"}}
	b := Params{Query: "developer", Sources: []string{"alpha", "beta"}}
	a.Normalize()
	b.Normalize()
	if a.CacheKey() != b.CacheKey() {
		t.Error("Expected equivalent params to share a cache key")
	}

	c := Params{Query: "developer", Page: 2}
	c.Normalize()
	if a.CacheKey() == c.CacheKey() {
		t.Error("Expected different pages to use different cache keys")
	}
}

func TestApplyFilters(t *testing.T) {
	cheap := models.Offer{Source: "s", ExternalID: "1", Price: 10, OnSale: true}
	pricey := models.Offer{Source: "s", ExternalID: "2", Price: 500}
	free := models.Offer{Source: "s", ExternalID: "3"}

	got := applyFilters([]models.Offer{cheap, pricey, free}, Params{MinPrice: 5, MaxPrice: 100})
	if len(got) != 1 || got[0].ExternalID != "1" {
		t.Fatalf("Expected price bounds to keep only the cheap offer, got %d", len(got))
	}

	got = applyFilters([]models.Offer{cheap, pricey, free}, Params{OnSale: true})
	if len(got) != 1 || got[0].ExternalID != "1" {
		t.Fatalf("Expected onSale filter to keep only the sale offer, got %d", len(got))
	}
}
