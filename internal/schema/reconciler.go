// Package schema resolves the canonical column set of each domain and
// maps arbitrary import headers onto it.
package schema

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/coop-records-api/internal/models"
	"github.com/rs/zerolog"
)

// ErrSchemaUnavailable is returned when neither the backend nor the
// fallback asset can provide a column listing for a domain.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// ColumnSource provides the backend's authoritative column listing for
// a table. Implementations may legitimately not support this; the
// reconciler falls back to the static asset.
type ColumnSource interface {
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// Reconciler caches each domain's canonical column set and maps raw
// import headers onto it. The cache is write-once per domain and never
// invalidated: a backend schema change after population is not observed
// until restart, an accepted staleness.
type Reconciler struct {
	source   ColumnSource
	fallback Fallback
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[models.Domain][]string
}

// NewReconciler creates a Reconciler over the given column source and
// fallback asset.
func NewReconciler(source ColumnSource, fallback Fallback, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		source:   source,
		fallback: fallback,
		log:      log.With().Str("component", "schema").Logger(),
		cache:    make(map[models.Domain][]string),
	}
}

// ColumnsFor returns the ordered canonical column set for a domain,
// resolving it on first use: the backend listing wins, the static asset
// covers absence or error.
func (r *Reconciler) ColumnsFor(ctx context.Context, d models.Domain) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cols, ok := r.cache[d]; ok {
		return cols, nil
	}

	cols, err := r.source.ListColumns(ctx, d.Table())
	if err != nil || len(cols) == 0 {
		if err != nil {
			r.log.Warn().Err(err).Str("domain", string(d)).
				Msg("Backend column listing failed, using fallback")
		}
		fb, ok := r.fallback[d]
		if !ok {
			return nil, ErrSchemaUnavailable
		}
		cols = fb
	}

	// Surrogate key and bookkeeping columns never appear in imports or
	// reconciled records.
	filtered := cols[:0:0]
	for _, c := range cols {
		if c == "id" || c == "created_at" {
			continue
		}
		filtered = append(filtered, c)
	}

	r.cache[d] = filtered
	return filtered, nil
}

// identifierCanonical pins the three identifier-like headers to one
// exact spelling across every domain, even where the generic match
// would already succeed.
var identifierCanonical = map[string]string{
	"cedula": models.ColOwnerID,
	"placa":  models.ColPlate,
	"fecha":  models.ColDate,
}

// ReconcileKey maps a raw import header onto the domain's canonical
// column name. Matching is case-insensitive and whitespace-trimmed.
// A header with no canonical counterpart is dropped (ok=false), never
// an error: spreadsheets routinely carry extraneous columns.
func (r *Reconciler) ReconcileKey(ctx context.Context, rawHeader string, d models.Domain) (string, bool, error) {
	cols, err := r.ColumnsFor(ctx, d)
	if err != nil {
		return "", false, err
	}
	canonical, ok := reconcile(rawHeader, cols)
	return canonical, ok, nil
}

func reconcile(rawHeader string, cols []string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(rawHeader))

	if canonical, ok := identifierCanonical[normalized]; ok {
		return canonical, true
	}
	for _, c := range cols {
		if strings.ToLower(strings.TrimSpace(c)) == normalized {
			return c, true
		}
	}
	return "", false
}
