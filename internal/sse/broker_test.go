package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	require.Equal(t, 0, b.ClientCount())
	ch := b.Subscribe("")
	require.Equal(t, 1, b.ClientCount())
	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount(), "expected 0 clients after unsub")
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "document.created", Data: map[string]string{"path": "types/word.0.1.0.0.yaml"}})

	select {
	case msg := <-ch:
		s := string(msg)
		assert.Contains(t, s, "event: document.created")
		assert.Contains(t, s, `"path":"types/word.0.1.0.0.yaml"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDocumentEvent_CatalogThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// First event should trigger catalog.updated.
	b.PublishDocumentEvent(ActionCreated, "dictionaries", map[string]string{"path": "dictionaries/a.0.1.0.0.yaml"})
	// Second event immediately should NOT trigger another catalog.updated.
	b.PublishDocumentEvent(ActionLocked, "dictionaries", map[string]string{"path": "dictionaries/a.0.1.0.0.yaml"})
	// Unknown actions are dropped.
	b.PublishDocumentEvent("exploded", "dictionaries", nil)

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	catalogCount := 0
	documentCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "catalog.updated") {
				catalogCount++
			} else {
				documentCount++
			}
		default:
			break loop
		}
	}

	assert.Equal(t, 2, documentCount, "document events")
	assert.Equal(t, 1, catalogCount, "catalog events (throttled)")
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, b.ClientCount(), "expected 1 client from handler")

	b.Publish(Event{Type: "document.updated", Data: map[string]string{"path": "types/x.0.0.0.1.yaml"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	assert.Contains(t, w.Body.String(), "event: document.updated")

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, b.ClientCount(), "client not cleaned up after disconnect")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "expected subscriber channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	require.Equal(t, 0, b.ClientCount(), "expected 0 clients after close")

	// Should be safe no-op after close.
	b.Publish(Event{Type: "document.updated", Data: map[string]string{"path": "types/x.0.0.0.1.yaml"}})
	b.PublishDocumentEvent(ActionUpdated, "types", map[string]string{"path": "types/x.0.0.0.1.yaml"})
}

func TestSubscribeKindFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	types := b.Subscribe("types")
	defer b.Unsubscribe(types)
	all := b.Subscribe("")
	defer b.Unsubscribe(all)

	b.PublishDocumentEvent(ActionUpdated, "dictionaries", map[string]string{"path": "dictionaries/a.0.0.0.0.yaml"})
	b.PublishDocumentEvent(ActionUpdated, "types", map[string]string{"path": "types/b.0.0.0.0.yaml"})
	time.Sleep(50 * time.Millisecond)

	drain := func(ch chan []byte) []string {
		var out []string
		for {
			select {
			case msg := <-ch:
				out = append(out, string(msg))
			default:
				return out
			}
		}
	}

	got := drain(types)
	// types/b plus the single catalog.updated
	require.Len(t, got, 2, "filtered subscriber got %q", got)
	for _, m := range got {
		assert.NotContains(t, m, "dictionaries/a", "filtered subscriber received dictionary event")
	}
	assert.Len(t, drain(all), 3, "unfiltered subscriber")
}
