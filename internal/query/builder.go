// Package query constructs tier-constrained queries over the domain
// tables and keeps live views of their results refreshed on change
// notifications.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/repository"
	"github.com/rs/zerolog"
)

// ErrQueryFailed wraps backend query errors. Callers present it as a
// retryable condition and keep any previously displayed results.
var ErrQueryFailed = errors.New("query failed")

// ResultCap bounds every result set regardless of filter.
const ResultCap = 100

// Builder runs queries with the session's tier policy applied.
type Builder struct {
	records repository.RecordRepository
	log     zerolog.Logger
}

// NewBuilder creates a query builder.
func NewBuilder(records repository.RecordRepository, log zerolog.Logger) *Builder {
	return &Builder{
		records: records,
		log:     log.With().Str("component", "query").Logger(),
	}
}

// Run executes the constrained query. Results come back newest first by
// date, capped at ResultCap.
func (b *Builder) Run(ctx context.Context, sess *models.Session, d models.Domain, f models.QueryFilter) ([]models.Record, error) {
	constrained := Constrain(sess, f)

	records, err := b.records.Query(ctx, d, constrained, ResultCap)
	if err != nil {
		b.log.Error().Err(err).Str("domain", string(d)).Msg("Query failed")
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return records, nil
}

// Constrain applies the tier policy to user-entered filters:
//
//	SuperAdmin/Admin  optional plate substring, never an owner filter
//	Owner             mandatory owner filter, plate input ignored
func Constrain(sess *models.Session, f models.QueryFilter) models.QueryFilter {
	switch sess.Tier {
	case models.TierOwner:
		f.PlateContains = ""
		f.OwnerID = sess.OwnerID
	default:
		f.OwnerID = ""
	}
	return f
}
