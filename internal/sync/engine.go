// Package sync reconciles provider records into canonical storage: insert
// new, update changed, skip unchanged, count per-record failures without
// aborting the run.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
	"github.com/Wirsuchen/wisuchen-sub003/internal/ratelimit"
	"github.com/Wirsuchen/wisuchen-sub003/internal/sources"
)

const defaultFetchLimit = 100

// Options narrows one sync run. Zero values mean the configured default
// query set and the default per-source fetch limit.
type Options struct {
	Query string `json:"query" validate:"omitempty,max=200"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=500"`
}

type Engine struct {
	registry       *sources.Registry
	store          OfferStore
	limiter        *ratelimit.Limiter
	defaultQueries []string
}

func New(registry *sources.Registry, store OfferStore, limiter *ratelimit.Limiter, defaultQueries []string) *Engine {
	if len(defaultQueries) == 0 {
		defaultQueries = []string{""}
	}
	return &Engine{
		registry:       registry,
		store:          store,
		limiter:        limiter,
		defaultQueries: defaultQueries,
	}
}

// SyncAllJobs runs one full reconciliation pass over every enabled job
// source. Source-level failures and per-record write failures are counted,
// never fatal; the run is idempotent, so an immediate re-run with unchanged
// upstream data reports zero new and zero updated.
func (e *Engine) SyncAllJobs(ctx context.Context, opts Options) (*models.SyncStats, error) {
	queries := e.defaultQueries
	if opts.Query != "" {
		queries = []string{opts.Query}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	stats := &models.SyncStats{}
	for _, src := range e.registry.JobSources(nil) {
		e.syncSource(ctx, src, queries, limit, stats)
	}

	total, err := e.store.CountOffers(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalInDatabase = total

	slog.Info("sync run finished",
		"new", stats.New, "updated", stats.Updated,
		"skipped", stats.Skipped, "errors", stats.Errors, "total", total)
	return stats, nil
}

func (e *Engine) syncSource(ctx context.Context, src sources.Provider, queries []string, limit int, stats *models.SyncStats) {
	name := src.Name()
	imported := false

	for _, query := range queries {
		if !e.limiter.Consume(name) {
			slog.Warn("sync skipping source, request budget exhausted", "source", name)
			stats.Errors++
			return
		}

		offers, err := src.Search(ctx, sources.SearchQuery{Query: query, Limit: limit})
		if err != nil {
			slog.Warn("sync fetch failed", "source", name, "query", query, "error", err)
			stats.Errors++
			continue
		}

		for _, offer := range offers {
			e.reconcile(ctx, offer, stats)
		}
		imported = true
	}

	if imported {
		e.registry.MarkImported(name, time.Now())
	}
}

// reconcile classifies one fetched record against storage. The unchanged
// check runs before any write so a steady-state sync issues no updates.
func (e *Engine) reconcile(ctx context.Context, offer models.Offer, stats *models.SyncStats) {
	existing, err := e.store.GetByDedupKey(ctx, offer.DedupKey())
	if err != nil {
		slog.Warn("sync lookup failed", "key", offer.DedupKey(), "error", err)
		stats.Errors++
		return
	}

	if existing != nil && existing.ContentEquals(offer) {
		stats.Skipped++
		return
	}

	created, err := e.store.Upsert(ctx, offer)
	if err != nil {
		slog.Warn("sync write failed", "key", offer.DedupKey(), "error", err)
		stats.Errors++
		return
	}
	if created {
		stats.New++
	} else {
		stats.Updated++
	}
}

// TotalJobs reports the canonical record count.
func (e *Engine) TotalJobs(ctx context.Context) (int, error) {
	return e.store.CountOffers(ctx)
}
