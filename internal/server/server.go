// Package server exposes the aggregation engine over HTTP: offer search,
// sync trigger, and a status endpoint for cache and limiter introspection.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Wirsuchen/wisuchen-sub003/internal/aggregator"
	"github.com/Wirsuchen/wisuchen-sub003/internal/cache"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
	"github.com/Wirsuchen/wisuchen-sub003/internal/ratelimit"
	"github.com/Wirsuchen/wisuchen-sub003/internal/sources"
	syncengine "github.com/Wirsuchen/wisuchen-sub003/internal/sync"
)

type Server struct {
	aggregator *aggregator.Aggregator
	engine     *syncengine.Engine
	registry   *sources.Registry
	cache      *cache.Cache
	sourceRL   *ratelimit.Limiter
	callerRL   *ratelimit.Limiter
	validate   *validator.Validate
}

func New(agg *aggregator.Aggregator, engine *syncengine.Engine, registry *sources.Registry,
	c *cache.Cache, sourceRL, callerRL *ratelimit.Limiter) *Server {
	return &Server{
		aggregator: agg,
		engine:     engine,
		registry:   registry,
		cache:      c,
		sourceRL:   sourceRL,
		callerRL:   callerRL,
		validate:   validator.New(),
	}
}

// Router configures all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimitByIP).Get("/offers/search", s.handleSearch)
		r.Post("/sync/jobs", s.handleSyncJobs)
		r.Get("/status", s.handleStatus)
	})

	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := s.validate.Struct(params); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	result, err := s.aggregator.Search(r.Context(), *params)
	if err != nil {
		if errors.Is(err, models.ErrAllProvidersFailed) {
			writeError(w, http.StatusBadGateway, "all_providers_failed",
				"no enabled source produced results")
			return
		}
		slog.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		return
	}

	totalPages := (result.Total + params.Limit - 1) / params.Limit
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"offers": result.Offers,
			"pagination": map[string]int{
				"page":       params.Page,
				"limit":      params.Limit,
				"total":      result.Total,
				"totalPages": totalPages,
			},
			"meta": map[string]any{
				"sources":   result.Sources,
				"cached":    result.Cached,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}

func (s *Server) handleSyncJobs(w http.ResponseWriter, r *http.Request) {
	var opts syncengine.Options
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "malformed JSON body")
			return
		}
	}
	if err := s.validate.Struct(opts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	stats, err := s.engine.SyncAllJobs(r.Context(), opts)
	if err != nil {
		slog.Error("sync run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync_failed", "sync run failed")
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"stats": map[string]int{
				"new":     stats.New,
				"updated": stats.Updated,
				"skipped": stats.Skipped,
				"errors":  stats.Errors,
			},
			"totalInDatabase": stats.TotalInDatabase,
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.cache.Stats()
	totalOffers, err := s.engine.TotalJobs(r.Context())
	if err != nil {
		slog.Warn("status count failed", "error", err)
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"sources":     s.registry.All(),
			"totalOffers": totalOffers,
			"cache": map[string]any{
				"entries": s.cache.Len(),
				"hits":    hits,
				"misses":  misses,
			},
			"rateLimits": map[string]any{
				"sources": s.sourceRL.Status(),
				"callers": s.callerRL.Status(),
			},
		},
	})
}

func parseSearchParams(r *http.Request) (*aggregator.Params, error) {
	q := r.URL.Query()
	params := &aggregator.Params{
		Query:    q.Get("query"),
		Category: q.Get("category"),
		Page:     1,
		Limit:    aggregator.DefaultLimit,
	}

	var err error
	if params.MinPrice, err = parseFloat(q.Get("minPrice")); err != nil {
		return nil, errors.New("minPrice must be a number")
	}
	if params.MaxPrice, err = parseFloat(q.Get("maxPrice")); err != nil {
		return nil, errors.New("maxPrice must be a number")
	}
	if v := q.Get("page"); v != "" {
		if params.Page, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("page must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("limit must be an integer")
		}
	}
	params.OnSale = q.Get("onSale") == "true"
	params.BypassCache = q.Get("useCache") == "false"
	if v := q.Get("sources"); v != "" {
		params.Sources = strings.Split(v, ",")
	}
	return params, nil
}

func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
