package store

import (
	"context"
	"testing"
	"time"

	"tasktrack/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := &models.User{Username: "admin", PasswordHash: "hash"}
	if err := (Users{}).Create(ctx, st.DB(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := (Sessions{}).Create(ctx, st.DB(), user.ID, "tok-1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	session, owner, err := Sessions{}.Lookup(ctx, st.DB(), "tok-1", now)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if session == nil || owner == nil || owner.ID != user.ID {
		t.Fatalf("expected active session for user, got %+v / %+v", session, owner)
	}

	expired, _, err := Sessions{}.Lookup(ctx, st.DB(), "tok-1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("lookup expired: %v", err)
	}
	if expired != nil {
		t.Fatal("expected expired session to be ignored")
	}

	if err := (Sessions{}).Extend(ctx, st.DB(), "tok-1", now.Add(3*time.Hour), now.Add(time.Minute)); err != nil {
		t.Fatalf("extend: %v", err)
	}
	extended, _, err := Sessions{}.Lookup(ctx, st.DB(), "tok-1", now.Add(2*time.Hour))
	if err != nil || extended == nil {
		t.Fatalf("expected extended session, got %+v err=%v", extended, err)
	}

	if err := (Sessions{}).Revoke(ctx, st.DB(), "tok-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, _, err := Sessions{}.Lookup(ctx, st.DB(), "tok-1", now)
	if err != nil {
		t.Fatalf("lookup revoked: %v", err)
	}
	if revoked != nil {
		t.Fatal("expected revoked session to be gone")
	}
}

func TestSessionsCascadeWithUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := &models.User{Username: "bob", PasswordHash: "hash"}
	if err := (Users{}).Create(ctx, st.DB(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := (Sessions{}).Create(ctx, st.DB(), user.ID, "tok-2", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := (Users{}).Delete(ctx, st.DB(), user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var n int
	if err := st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected sessions to cascade, got %d", n)
	}

	purged, err := Sessions{}.PurgeExpired(ctx, st.DB(), now)
	if err != nil || purged != 0 {
		t.Fatalf("purge: n=%d err=%v", purged, err)
	}
}
