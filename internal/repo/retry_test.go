package repo

import (
	"context"
	"errors"
	"testing"
)

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("database table is locked"), true},
		{errors.New("SQLITE_LOCKED: shared cache contention"), true},
		{errors.New("UNIQUE constraint failed: active_posts.status_id"), false},
		{errors.New("no such table: active_posts"), false},
	}
	for _, tc := range cases {
		if got := IsBusy(tc.err); got != tc.want {
			t.Fatalf("IsBusy(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestWithBusyRetry_RetriesBusyThenSucceeds(t *testing.T) {
	calls := 0
	err := WithBusyRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBusyRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithBusyRetry_NonBusyFailsImmediately(t *testing.T) {
	want := errors.New("no such table: active_posts")
	calls := 0
	err := WithBusyRetry(context.Background(), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-busy error was retried %d times", calls)
	}
}

func TestWithBusyRetry_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithBusyRetry(ctx, func() error {
		return errors.New("database is locked (SQLITE_BUSY)")
	})
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
}
