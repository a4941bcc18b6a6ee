package server

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestShutdownRunsHooksInPriorityOrder(t *testing.T) {
	h := NewShutdownHandler(time.Second, slog.New(slog.DiscardHandler))

	var order []string
	h.RegisterHook("last", 90, func(ctx context.Context) error {
		order = append(order, "last")
		return nil
	})
	h.RegisterHook("first", 10, func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	h.RegisterHook("middle", 50, func(ctx context.Context) error {
		order = append(order, "middle")
		return nil
	})

	h.Start()
	h.Shutdown()
	h.Wait()

	want := []string{"first", "middle", "last"}
	if len(order) != len(want) {
		t.Fatalf("ran %d hooks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("hook %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestShutdownContinuesPastFailingHook(t *testing.T) {
	h := NewShutdownHandler(time.Second, slog.New(slog.DiscardHandler))

	ran := false
	h.RegisterHook("failing", 10, func(ctx context.Context) error {
		return errors.New("hook failed")
	})
	h.RegisterHook("after", 20, func(ctx context.Context) error {
		ran = true
		return nil
	})

	h.Start()
	h.Shutdown()
	h.Wait()

	if !ran {
		t.Error("a failing hook must not stop later hooks")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	h := NewShutdownHandler(time.Second, slog.New(slog.DiscardHandler))

	calls := 0
	h.RegisterHook("once", 10, func(ctx context.Context) error {
		calls++
		return nil
	})

	h.Start()
	h.Shutdown()
	h.Shutdown()
	h.Wait()

	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}
