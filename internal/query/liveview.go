package query

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/coop-records-api/internal/models"
	"github.com/rs/zerolog"
)

// ChangeFeed is the subset of the notification hub a live view needs.
type ChangeFeed interface {
	Subscribe(table string) (string, <-chan struct{})
	Unsubscribe(id string)
}

// LiveView holds the displayed result set for one query context and
// re-runs the query wholesale whenever the underlying table changes
// (level-triggered refresh, not a diff). It keeps exactly one
// subscription alive: Set tears the previous one down before
// establishing the next, so a context switch never leaves duplicate
// refresh triggers behind.
type LiveView struct {
	builder *Builder
	feed    ChangeFeed
	log     zerolog.Logger

	// gen orders query completions: a slow response that resolves after
	// a newer one must not clobber the newer results.
	gen atomic.Uint64

	mu          sync.Mutex
	applied     uint64
	results     []models.Record
	subID       string
	cancelWatch context.CancelFunc
	updates     chan []models.Record
}

// NewLiveView creates a live view over the builder and change feed.
func NewLiveView(builder *Builder, feed ChangeFeed, log zerolog.Logger) *LiveView {
	return &LiveView{
		builder: builder,
		feed:    feed,
		log:     log.With().Str("component", "liveview").Logger(),
		updates: make(chan []models.Record, 1),
	}
}

// Set points the view at a (session, domain, filter) context, runs the
// query once, and keeps it refreshed until the context is cancelled or
// Set is called again. On error the previously displayed results stay
// untouched.
func (v *LiveView) Set(ctx context.Context, sess *models.Session, d models.Domain, f models.QueryFilter) ([]models.Record, error) {
	v.mu.Lock()
	// Deterministic teardown of the previous subscription first.
	if v.subID != "" {
		v.feed.Unsubscribe(v.subID)
		v.subID = ""
	}
	if v.cancelWatch != nil {
		v.cancelWatch()
		v.cancelWatch = nil
	}

	subID, changes := v.feed.Subscribe(d.Table())
	v.subID = subID
	watchCtx, cancel := context.WithCancel(ctx)
	v.cancelWatch = cancel
	v.mu.Unlock()

	go v.watch(watchCtx, changes, sess, d, f)

	return v.run(ctx, sess, d, f)
}

// watch re-runs the same query on every change notification.
func (v *LiveView) watch(ctx context.Context, changes <-chan struct{}, sess *models.Session, d models.Domain, f models.QueryFilter) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if _, err := v.run(ctx, sess, d, f); err != nil {
				// Previous results stay displayed; the next
				// notification retries.
				v.log.Warn().Err(err).Str("domain", string(d)).Msg("Refresh failed")
			}
		}
	}
}

func (v *LiveView) run(ctx context.Context, sess *models.Session, d models.Domain, f models.QueryFilter) ([]models.Record, error) {
	gen := v.gen.Add(1)

	records, err := v.builder.Run(ctx, sess, d, f)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		return v.results, err
	}
	if gen < v.applied {
		// A newer query already resolved; discard this one.
		return v.results, nil
	}
	v.applied = gen
	v.results = records

	// Replace any unread pending set; sends are serialized under v.mu so
	// the drained slot cannot refill before the send.
	select {
	case <-v.updates:
	default:
	}
	v.updates <- records
	return records, nil
}

// Results returns the currently displayed result set.
func (v *LiveView) Results() []models.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.results
}

// Updates delivers each refreshed result set. The channel holds one
// pending set; an unread one is replaced, never queued.
func (v *LiveView) Updates() <-chan []models.Record {
	return v.updates
}

// Close tears down the active subscription.
func (v *LiveView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.subID != "" {
		v.feed.Unsubscribe(v.subID)
		v.subID = ""
	}
	if v.cancelWatch != nil {
		v.cancelWatch()
		v.cancelWatch = nil
	}
}
