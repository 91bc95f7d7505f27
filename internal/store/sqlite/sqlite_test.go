package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/directline/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func mustCreateUser(t *testing.T, st *SQLiteStore, name, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), uuid.NewString(), name, username, "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created := mustCreateUser(t, st, "Alice", "alice")
	if created.Online {
		t.Fatal("new users must start offline")
	}
	if created.CreatedAt.IsZero() || created.LastSeen.IsZero() {
		t.Fatalf("timestamps must be set: %+v", created)
	}

	byID, err := st.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by ID failed: %v", err)
	}
	if byID.Username != "alice" || byID.Name != "Alice" || byID.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byUsername, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username failed: %v", err)
	}
	if byUsername.ID != created.ID {
		t.Fatalf("lookup mismatch: %s vs %s", byUsername.ID, created.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetUserByUsername(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	st := newTestStore(t)

	mustCreateUser(t, st, "Alice", "alice")
	if _, err := st.CreateUser(context.Background(), uuid.NewString(), "Other", "alice", "hash"); err == nil {
		t.Fatal("duplicate username must fail")
	}
}

func TestSetAndResetOnline(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "Alice", "alice")
	bob := mustCreateUser(t, st, "Bob", "bob")

	if err := st.SetOnline(ctx, alice.ID, true); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := st.SetOnline(ctx, bob.ID, true); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := st.SetOnline(ctx, "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}

	got, err := st.GetUserByID(ctx, alice.ID)
	if err != nil || !got.Online {
		t.Fatalf("online flag must be set (err=%v)", err)
	}

	// Simulates startup after an unclean shutdown.
	if err := st.ResetOnline(ctx); err != nil {
		t.Fatalf("reset online failed: %v", err)
	}
	for _, id := range []string{alice.ID, bob.ID} {
		got, err := st.GetUserByID(ctx, id)
		if err != nil || got.Online {
			t.Fatalf("online flag must be cleared for %s (err=%v)", id, err)
		}
	}
}

func TestListUsersOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	self := mustCreateUser(t, st, "Self", "self")
	zoe := mustCreateUser(t, st, "Zoe", "zoe")
	mustCreateUser(t, st, "Bob", "bob")
	mustCreateUser(t, st, "Carol", "carol")

	if err := st.SetOnline(ctx, zoe.ID, true); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	users, err := st.ListUsers(ctx, self.ID)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}

	var names []string
	for _, u := range users {
		if u.ID == self.ID {
			t.Fatal("list must exclude the requesting user")
		}
		names = append(names, u.Name)
	}
	// Online first, then alphabetical.
	want := []string{"Zoe", "Bob", "Carol"}
	if len(names) != len(want) {
		t.Fatalf("expected %d users, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}

func TestListOnlineUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	self := mustCreateUser(t, st, "Self", "self")
	alice := mustCreateUser(t, st, "Alice", "alice")
	mustCreateUser(t, st, "Bob", "bob")

	if err := st.SetOnline(ctx, self.ID, true); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := st.SetOnline(ctx, alice.ID, true); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	online, err := st.ListOnlineUsers(ctx, self.ID)
	if err != nil {
		t.Fatalf("list online failed: %v", err)
	}
	if len(online) != 1 || online[0].ID != alice.ID {
		t.Fatalf("expected exactly alice online, got %+v", online)
	}
}

func seedMessage(t *testing.T, st *SQLiteStore, from, to, content string, at time.Time) *store.Message {
	t.Helper()

	msg := &store.Message{
		ID:        uuid.NewString(),
		FromID:    from,
		ToID:      to,
		Content:   content,
		CreatedAt: at,
	}
	if err := st.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message failed: %v", err)
	}
	return msg
}

func TestListConversationBothDirections(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "Alice", "alice")
	bob := mustCreateUser(t, st, "Bob", "bob")
	carol := mustCreateUser(t, st, "Carol", "carol")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedMessage(t, st, alice.ID, bob.ID, "one", base)
	seedMessage(t, st, bob.ID, alice.ID, "two", base.Add(1*time.Minute))
	seedMessage(t, st, alice.ID, bob.ID, "three", base.Add(2*time.Minute))
	// Unrelated conversation must not leak in.
	seedMessage(t, st, alice.ID, carol.ID, "other", base.Add(3*time.Minute))

	msgs, err := st.ListConversation(ctx, alice.ID, bob.ID, 100)
	if err != nil {
		t.Fatalf("list conversation failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}

	// Same result regardless of which side asks.
	flipped, err := st.ListConversation(ctx, bob.ID, alice.ID, 100)
	if err != nil {
		t.Fatalf("list conversation failed: %v", err)
	}
	if len(flipped) != 3 || flipped[0].ID != msgs[0].ID || flipped[2].ID != msgs[2].ID {
		t.Fatalf("conversation must be symmetric, got %+v", flipped)
	}
}

func TestListConversationLimitKeepsNewest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "Alice", "alice")
	bob := mustCreateUser(t, st, "Bob", "bob")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		seedMessage(t, st, alice.ID, bob.ID, fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	msgs, err := st.ListConversation(ctx, alice.ID, bob.ID, 3)
	if err != nil {
		t.Fatalf("list conversation failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// The window holds the newest messages, oldest of the window first.
	for i, want := range []string{"msg-7", "msg-8", "msg-9"} {
		if msgs[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}
}

func TestListConversationEmpty(t *testing.T) {
	st := newTestStore(t)

	alice := mustCreateUser(t, st, "Alice", "alice")
	bob := mustCreateUser(t, st, "Bob", "bob")

	msgs, err := st.ListConversation(context.Background(), alice.ID, bob.ID, 100)
	if err != nil {
		t.Fatalf("list conversation failed: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", msgs)
	}
}
