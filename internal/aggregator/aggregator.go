// Package aggregator fans a search query out to every enabled source,
// merges the per-source results into one deduplicated, deterministically
// ordered sequence, and serves repeated queries from a TTL cache.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Wirsuchen/wisuchen-sub003/internal/cache"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
	"github.com/Wirsuchen/wisuchen-sub003/internal/ratelimit"
	"github.com/Wirsuchen/wisuchen-sub003/internal/sources"
)

// Source dispatch states reported in Result metadata.
const (
	SourceOK          = "ok"
	SourceEmpty       = "empty"
	SourceFailed      = "failed"
	SourceRateLimited = "skipped_rate_limited"
)

// SourceReport describes what one source contributed to an aggregate call.
type SourceReport struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Result is one merged, paginated search response. Total counts the full
// deduplicated sequence, not just the returned page.
type Result struct {
	Offers  []models.Offer `json:"offers"`
	Total   int            `json:"total"`
	Sources []SourceReport `json:"sources"`
	Cached  bool           `json:"cached"`
}

type Aggregator struct {
	registry *sources.Registry
	cache    *cache.Cache
	limiter  *ratelimit.Limiter
	cacheTTL time.Duration
}

func New(registry *sources.Registry, c *cache.Cache, limiter *ratelimit.Limiter, cacheTTL time.Duration) *Aggregator {
	return &Aggregator{
		registry: registry,
		cache:    c,
		limiter:  limiter,
		cacheTTL: cacheTTL,
	}
}

// Search runs the full aggregate pipeline for params. A failing source never
// fails the call; only zero enabled sources or a failure of every enabled
// source surfaces models.ErrAllProvidersFailed.
func (a *Aggregator) Search(ctx context.Context, params Params) (*Result, error) {
	params.Normalize()
	key := params.CacheKey()

	if !params.BypassCache {
		if v, ok := a.cache.Get(key); ok {
			cached := *v.(*Result)
			cached.Cached = true
			return &cached, nil
		}
	}

	if params.BypassCache {
		result, err := a.search(ctx, params)
		if err != nil {
			return nil, err
		}
		// A bypassed call still refreshes the cache for later callers.
		a.cache.Set(key, result, a.cacheTTL)
		return result, nil
	}

	// Concurrent misses for the same key collapse into one fan-out.
	v, err := a.cache.Wrap(key, a.cacheTTL, func() (any, error) {
		return a.search(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (a *Aggregator) search(ctx context.Context, params Params) (*Result, error) {
	enabled := a.registry.Enabled(params.Sources)
	if len(enabled) == 0 {
		return nil, models.ErrAllProvidersFailed
	}

	// Fetch enough per source to serve the requested page after the merge.
	fetchLimit := params.Page * params.Limit
	if fetchLimit > MaxLimit {
		fetchLimit = MaxLimit
	}
	query := sources.SearchQuery{
		Query:    params.Query,
		Category: params.Category,
		Limit:    fetchLimit,
	}

	type dispatch struct {
		report SourceReport
		offers []models.Offer
	}
	results := make([]dispatch, len(enabled))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range enabled {
		i, src := i, src
		g.Go(func() error {
			name := src.Name()
			if !a.limiter.Consume(name) {
				slog.Warn("source skipped, request budget exhausted", "source", name)
				results[i] = dispatch{report: SourceReport{Name: name, Status: SourceRateLimited}}
				return nil
			}

			offers, err := src.Search(ctx, query)
			if err != nil {
				slog.Warn("source search failed", "source", name, "error", err)
				results[i] = dispatch{report: SourceReport{Name: name, Status: SourceFailed}}
				return nil
			}

			offers = applyFilters(offers, params)
			status := SourceOK
			if len(offers) == 0 {
				status = SourceEmpty
			}
			results[i] = dispatch{
				report: SourceReport{Name: name, Status: status, Count: len(offers)},
				offers: offers,
			}
			return nil
		})
	}
	g.Wait()

	var all []models.Offer
	reports := make([]SourceReport, 0, len(results))
	succeeded := 0
	for _, d := range results {
		reports = append(reports, d.report)
		if d.report.Status == SourceOK || d.report.Status == SourceEmpty {
			succeeded++
		}
		all = append(all, d.offers...)
	}
	if succeeded == 0 {
		return nil, models.ErrAllProvidersFailed
	}

	merged := Merge(all)
	total := len(merged)
	page := paginate(merged, params.Page, params.Limit)

	return &Result{Offers: page, Total: total, Sources: reports, Cached: false}, nil
}

// Merge deduplicates by dedup key, keeping the instance with the freshest
// published timestamp on collision, then orders the sequence by the fixed
// tiebreak: featured, urgency, recency, key. The order is deterministic for
// any given input set.
func Merge(offers []models.Offer) []models.Offer {
	byKey := make(map[string]models.Offer, len(offers))
	for _, o := range offers {
		key := o.DedupKey()
		if existing, ok := byKey[key]; ok && !o.PublishedAt.After(existing.PublishedAt) {
			continue
		}
		byKey[key] = o
	}

	merged := make([]models.Offer, 0, len(byKey))
	for _, o := range byKey {
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Featured != b.Featured {
			return a.Featured
		}
		if a.Urgent != b.Urgent {
			return a.Urgent
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.DedupKey() < b.DedupKey()
	})
	return merged
}

func paginate(offers []models.Offer, page, limit int) []models.Offer {
	start := (page - 1) * limit
	if start >= len(offers) {
		return []models.Offer{}
	}
	end := start + limit
	if end > len(offers) {
		end = len(offers)
	}
	return offers[start:end]
}

func applyFilters(offers []models.Offer, params Params) []models.Offer {
	filtered := offers[:0]
	for _, o := range offers {
		if params.OnSale && !o.OnSale {
			continue
		}
		if params.MinPrice > 0 && o.Price < params.MinPrice {
			continue
		}
		if params.MaxPrice > 0 && o.Price > params.MaxPrice {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}
