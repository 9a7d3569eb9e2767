package notify

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestHub() *Hub {
	return &Hub{
		log:  zerolog.Nop(),
		subs: make(map[string]subscriber),
	}
}

func drained(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestBroadcast_FiltersByTable(t *testing.T) {
	h := newTestHub()
	_, despachos := h.Subscribe("despachos")
	_, aportes := h.Subscribe("aportes")

	h.broadcast("despachos")

	if !drained(despachos) {
		t.Error("despachos subscriber should be woken")
	}
	if drained(aportes) {
		t.Error("aportes subscriber should not be woken for despachos")
	}
}

func TestBroadcast_EmptyTableWakesAll(t *testing.T) {
	h := newTestHub()
	_, a := h.Subscribe("despachos")
	_, b := h.Subscribe("aportes")

	// Reconnect marker: state is unknown, everyone refreshes
	h.broadcast("")

	if !drained(a) || !drained(b) {
		t.Error("reconnect broadcast should wake every subscriber")
	}
}

func TestBroadcast_NeverBlocksOnFullSubscriber(t *testing.T) {
	h := newTestHub()
	_, ch := h.Subscribe("aportes")

	// Two events with no reader in between must not deadlock; the
	// subscriber already knows it must refresh.
	h.broadcast("aportes")
	h.broadcast("aportes")

	if !drained(ch) {
		t.Error("expected one pending event")
	}
	if drained(ch) {
		t.Error("coalesced events should leave a single pending token")
	}
}

func TestUnsubscribe(t *testing.T) {
	h := newTestHub()
	id, ch := h.Subscribe("aportes")
	h.Unsubscribe(id)

	h.broadcast("aportes")
	if drained(ch) {
		t.Error("unsubscribed channel should stay silent")
	}

	// Unknown IDs are a no-op
	h.Unsubscribe("never-issued")
}
