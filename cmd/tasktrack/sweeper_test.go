package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

type fakeSweeper struct {
	calls     int
	olderThan time.Duration
	err       error
}

func (f *fakeSweeper) SweepStaging(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls++
	f.olderThan = olderThan
	return 2, f.err
}

func TestStagingSweeperRun(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t, cfg)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Username: "pat", PasswordHash: "x"}
	if err := (store.Users{}).Create(ctx, st.DB(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := (store.Sessions{}).Create(ctx, st.DB(), user.ID, "expired", now.Add(-time.Minute), now.Add(-time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := (store.Sessions{}).Create(ctx, st.DB(), user.ID, "live", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	files := &fakeSweeper{err: errors.New("disk gone")}
	s := &stagingSweeper{
		files:  files,
		store:  st,
		ttl:    6 * time.Hour,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return now },
	}
	s.run(ctx)

	if files.calls != 1 || files.olderThan != 6*time.Hour {
		t.Fatalf("unexpected sweep call %+v", files)
	}
	var remaining int
	if err := st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&remaining); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected only the live session to remain, got %d", remaining)
	}
}

func TestStagingSweeperSchedule(t *testing.T) {
	s := &stagingSweeper{files: &fakeSweeper{}, logger: slog.Default(), now: time.Now}
	if _, err := s.schedule(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := s.schedule(context.Background(), "every hour"); err == nil {
		t.Fatal("expected invalid cron spec to fail")
	}
}
