package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventBusDelivers(t *testing.T) {
	bus := NewEventBus()
	ch, cancel := bus.Subscribe(7)
	defer cancel()

	bus.Publish(Event{Type: "board.updated", Entity: "board", BoardID: 7})

	select {
	case msg := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		require.Equal(t, "board.updated", ev.Type)
		require.Equal(t, int64(7), ev.BoardID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEventBusScopedToBoard(t *testing.T) {
	bus := NewEventBus()
	ch, cancel := bus.Subscribe(7)
	defer cancel()

	bus.Publish(Event{Type: "board.updated", BoardID: 8})
	bus.Publish(Event{Type: "board.updated", BoardID: 0}) // unroutable, dropped

	select {
	case <-ch:
		t.Fatal("received event for another board")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusDropsWhenSubscriberStalls(t *testing.T) {
	bus := NewEventBus()
	ch, cancel := bus.Subscribe(7)
	defer cancel()

	// overrun the buffer without reading; publishers must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: "card.updated", BoardID: 7})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
	require.Equal(t, cap(ch), len(ch))
}

func TestEventBusCancelUnsubscribes(t *testing.T) {
	bus := NewEventBus()
	_, cancel := bus.Subscribe(7)
	cancel()

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	require.Empty(t, bus.subs)
}

func TestServeSSEStreamsEvents(t *testing.T) {
	bus := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/boards/7/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.ServeSSE(rec, req, 7)
	}()

	// wait for the subscription to register before publishing
	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subs[7]) == 1
	}, time.Second, 5*time.Millisecond)

	bus.Publish(Event{Type: "list.created", Entity: "list", BoardID: 7})

	// give the stream a beat to drain the event before tearing down
	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, ": connected")
	require.True(t, strings.Contains(body, "data: ") && strings.Contains(body, "list.created"))
}
