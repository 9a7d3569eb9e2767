// Package notify distributes table-change events to subscribers. The
// domain tables carry triggers (installed by the migrations) that call
// pg_notify with the table name; this hub listens on that channel and
// fans events out by table. Events carry no payload beyond "something
// changed".
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Channel is the Postgres notification channel the table triggers fire.
const Channel = "records_changed"

// Hub fans table-change notifications out to subscribers.
type Hub struct {
	listener *pq.Listener
	log      zerolog.Logger

	mu   sync.Mutex
	subs map[string]subscriber
}

type subscriber struct {
	table string
	ch    chan struct{}
}

// NewHub opens a dedicated listening connection on the notification
// channel. The listener reconnects on its own; a dropped connection
// costs at most the notifications sent while it was down, which the
// level-triggered refresh model absorbs on the next event.
func NewHub(dsn string, log zerolog.Logger) (*Hub, error) {
	hubLog := log.With().Str("component", "notify").Logger()

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			hubLog.Warn().Err(err).Int("event", int(ev)).Msg("Listener connection event")
		}
	})
	if err := listener.Listen(Channel); err != nil {
		listener.Close()
		return nil, err
	}

	return &Hub{
		listener: listener,
		log:      hubLog,
		subs:     make(map[string]subscriber),
	}, nil
}

// Run dispatches notifications until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.listener.Close()
	h.log.Info().Str("channel", Channel).Msg("Notification hub started")

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Notification hub stopping")
			return
		case n := <-h.listener.Notify:
			if n == nil {
				// Reconnect marker: state between the drop and now is
				// unknown, wake every subscriber.
				h.broadcast("")
				continue
			}
			h.broadcast(n.Extra)
		case <-time.After(90 * time.Second):
			go h.listener.Ping()
		}
	}
}

// broadcast wakes subscribers of the given table; an empty table wakes
// all of them. Sends never block: a subscriber with a pending event
// already knows it must refresh.
func (h *Hub) broadcast(table string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if table != "" && sub.table != table {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers interest in changes to one table. The returned ID
// releases the subscription via Unsubscribe.
func (h *Hub) Subscribe(table string) (string, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan struct{}, 1)
	h.subs[id] = subscriber{table: table, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscription. Safe to call with an unknown ID.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}
