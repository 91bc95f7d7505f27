package backplane

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ctx context.Context, mr *miniredis.Miniredis) *Redis {
	t.Helper()

	logger := zerolog.Nop()
	bp, err := NewRedis(ctx, RedisConfig{Addr: mr.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bp.Close() })

	return bp
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backplane event")
		return Event{}
	}
}

func TestRedisPublishSubscribeRoundtrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := newTestRedis(t, ctx, mr)
	sub := newTestRedis(t, ctx, mr)

	events, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	want := Event{
		Origin:   "proc-a",
		Kind:     KindMessage,
		TargetID: "user-1",
		Payload:  json.RawMessage(`{"content":"hi"}`),
		TS:       time.Now().Unix(),
	}
	require.NoError(t, pub.Publish(ctx, want))

	got := recvEvent(t, events)
	require.Equal(t, want.Origin, got.Origin)
	require.Equal(t, want.Kind, got.Kind)
	require.Equal(t, want.TargetID, got.TargetID)
	require.JSONEq(t, string(want.Payload), string(got.Payload))
	require.Equal(t, want.TS, got.TS)
}

func TestRedisSubscriberSeesOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bp := newTestRedis(t, ctx, mr)

	events, err := bp.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bp.Publish(ctx, Event{Origin: "self", Kind: KindPresence}))

	// Origin-based filtering is the consumer's job, not the backplane's.
	got := recvEvent(t, events)
	require.Equal(t, "self", got.Origin)
}

func TestRedisSkipsMalformedPayloads(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bp := newTestRedis(t, ctx, mr)

	events, err := bp.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(channel, "{not json")
	require.NoError(t, bp.Publish(ctx, Event{Origin: "ok", Kind: KindPresence}))

	// The well-formed event arrives; the garbage one is dropped silently.
	got := recvEvent(t, events)
	require.Equal(t, "ok", got.Origin)
}

func TestRedisSubscribeClosesOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())

	bp := newTestRedis(t, context.Background(), mr)

	events, err := bp.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		require.False(t, ok, "channel must close after context cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel did not close")
	}
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewRedis(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}, &logger)
	require.Error(t, err)
}

func TestNoopSubscribeClosesWithContext(t *testing.T) {
	bp := NewNoop()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bp.Publish(ctx, Event{Kind: KindMessage}))

	events, err := bp.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-events:
		require.False(t, ok, "noop subscription must close, never deliver")
	case <-time.After(time.Second):
		t.Fatal("noop subscription did not close")
	}
}
