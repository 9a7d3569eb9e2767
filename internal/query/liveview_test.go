package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coop-records-api/internal/mocks"
	"github.com/coop-records-api/internal/models"
	"github.com/rs/zerolog"
)

// fakeFeed is an in-process ChangeFeed for tests.
type fakeFeed struct {
	mu         sync.Mutex
	nextID     int
	subs       map[string]chan struct{}
	subbed     []string // table per Subscribe call
	unsubbed   []string // IDs per Unsubscribe call
	subIDOrder []string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string]chan struct{})}
}

func (f *fakeFeed) Subscribe(table string) (string, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := string(rune('a' + f.nextID))
	ch := make(chan struct{}, 1)
	f.subs[id] = ch
	f.subbed = append(f.subbed, table)
	f.subIDOrder = append(f.subIDOrder, id)
	return id, ch
}

func (f *fakeFeed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
	f.unsubbed = append(f.unsubbed, id)
}

func (f *fakeFeed) notifyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *fakeFeed) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func TestLiveView_RefreshOnNotification(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	records.Records[models.DomainDispatch] = []models.Record{
		{"Placa": "WXY123", "Fecha": "2024-03-05"},
	}
	feed := newFakeFeed()
	view := NewLiveView(NewBuilder(records, zerolog.Nop()), feed, zerolog.Nop())
	defer view.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial, err := view.Set(ctx, adminSession(), models.DomainDispatch, models.QueryFilter{})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(initial) != 1 {
		t.Fatalf("expected 1 record, got %d", len(initial))
	}

	// Drain the initial update so the refresh is observable
	<-view.Updates()

	// Table changes: a second record appears, notification fires
	records.Records[models.DomainDispatch] = []models.Record{
		{"Placa": "WXY123", "Fecha": "2024-03-06"},
		{"Placa": "WXY123", "Fecha": "2024-03-05"},
	}
	feed.notifyAll()

	select {
	case refreshed := <-view.Updates():
		if len(refreshed) != 2 {
			t.Errorf("expected refreshed set of 2, got %d", len(refreshed))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after notification")
	}
}

func TestLiveView_SetTearsDownPriorSubscription(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	feed := newFakeFeed()
	view := NewLiveView(NewBuilder(records, zerolog.Nop()), feed, zerolog.Nop())
	defer view.Close()

	ctx := context.Background()
	if _, err := view.Set(ctx, adminSession(), models.DomainDispatch, models.QueryFilter{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := view.Set(ctx, adminSession(), models.DomainDues, models.QueryFilter{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Exactly one live subscription at any time
	if feed.activeSubs() != 1 {
		t.Errorf("expected 1 active subscription, got %d", feed.activeSubs())
	}
	if len(feed.unsubbed) != 1 || feed.unsubbed[0] != feed.subIDOrder[0] {
		t.Errorf("prior subscription should be torn down first, unsubbed=%v", feed.unsubbed)
	}
	if feed.subbed[0] != "despachos" || feed.subbed[1] != "aportes" {
		t.Errorf("unexpected subscribed tables: %v", feed.subbed)
	}
}

func TestLiveView_ErrorLeavesResultsUntouched(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	records.Records[models.DomainDispatch] = []models.Record{
		{"Placa": "WXY123", "Fecha": "2024-03-05"},
	}
	feed := newFakeFeed()
	view := NewLiveView(NewBuilder(records, zerolog.Nop()), feed, zerolog.Nop())
	defer view.Close()

	ctx := context.Background()
	if _, err := view.Set(ctx, adminSession(), models.DomainDispatch, models.QueryFilter{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Backend starts failing; the displayed set must survive
	records.Err = errors.New("connection reset")
	if _, err := view.Set(ctx, adminSession(), models.DomainDispatch, models.QueryFilter{}); !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}

	if got := view.Results(); len(got) != 1 {
		t.Errorf("previous results should remain displayed, got %d records", len(got))
	}
}

func TestLiveView_StaleResponseDoesNotClobber(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	feed := newFakeFeed()

	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var once sync.Once
	records.QueryFunc = func(d models.Domain, f models.QueryFilter, limit int) ([]models.Record, error) {
		var first bool
		once.Do(func() { first = true })
		if first {
			close(slowStarted)
			<-slowRelease
			return []models.Record{{"Placa": "OLD", "Fecha": "2024-01-01"}}, nil
		}
		return []models.Record{{"Placa": "NEW", "Fecha": "2024-03-05"}}, nil
	}

	view := NewLiveView(NewBuilder(records, zerolog.Nop()), feed, zerolog.Nop())
	defer view.Close()
	ctx := context.Background()
	sess := adminSession()

	// First query hangs in flight
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		view.Set(ctx, sess, models.DomainDispatch, models.QueryFilter{})
	}()
	<-slowStarted

	// Second query supersedes it and resolves first
	got, err := view.Set(ctx, sess, models.DomainDispatch, models.QueryFilter{})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got[0]["Placa"] != "NEW" {
		t.Fatalf("expected NEW results, got %v", got)
	}

	// Now the stale response arrives; it must be discarded
	close(slowRelease)
	<-firstDone

	if final := view.Results(); final[0]["Placa"] != "NEW" {
		t.Errorf("stale response clobbered newer results: %v", final)
	}
}
