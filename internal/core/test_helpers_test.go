package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/store"
	"github.com/avolkov/directline/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestHub(t *testing.T) (*Hub, store.Store) {
	t.Helper()

	st := newTestStore(t)
	logger := zerolog.Nop()
	hub := NewHub(st, backplane.NewNoop(), &logger)

	return hub, st
}

func newTestUser(t *testing.T, st store.Store, name, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), uuid.NewString(), name, username, "x")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// mustEvent waits for the next event of the given kind, discarding others.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drainEvents empties the client's buffered channel without blocking.
func drainEvents(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countKind(events []*Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
