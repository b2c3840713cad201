package channel

import (
	"context"
	"testing"
	"time"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/ingest/policy"
)

func TestChannel_DiscardDropsWhenFull(t *testing.T) {
	c := New(1, policy.Discard, nil)
	ctx := context.Background()

	if err := c.Send(ctx, command.NewWrite([]byte("a"))); err != nil {
		t.Fatalf("Send 1: %v", err)
	}
	if err := c.Send(ctx, command.NewWrite([]byte("b"))); err != nil {
		t.Fatalf("Send 2 (over capacity, Discard): %v", err)
	}

	if got := c.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
	if got := c.BackpressureEvents(); got != 1 {
		t.Fatalf("BackpressureEvents() = %d, want 1", got)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestChannel_BlockWaitsForSlot(t *testing.T) {
	c := New(1, policy.Block, nil)
	ctx := context.Background()

	if err := c.Send(ctx, command.NewWrite([]byte("a"))); err != nil {
		t.Fatalf("Send 1: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Send(ctx, command.NewWrite([]byte("b")))
	}()

	select {
	case <-done:
		t.Fatalf("Send should have blocked while channel is full")
	case <-time.After(50 * time.Millisecond):
	}

	<-c.Receive() // frees a slot

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked Send returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked Send never unblocked after a slot freed")
	}

	if got := c.BackpressureEvents(); got != 1 {
		t.Fatalf("BackpressureEvents() = %d, want 1", got)
	}
	if got := c.Dropped(); got != 0 {
		t.Fatalf("Dropped() = %d, want 0 under Block policy", got)
	}
}

func TestChannel_BlockRespectsContextCancellation(t *testing.T) {
	c := New(1, policy.Block, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := c.Send(context.Background(), command.NewWrite([]byte("a"))); err != nil {
		t.Fatalf("Send 1: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Send(ctx, command.NewWrite([]byte("b")))
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected context cancellation error, got nil")
		}
	case <-time.After(time.Second):
		t.Fatalf("Send never returned after context cancellation")
	}
}

func TestChannel_SendAfterCloseFails(t *testing.T) {
	c := New(4, policy.Discard, nil)
	c.Close()

	if err := c.Send(context.Background(), command.NewWrite([]byte("a"))); err != ErrClosed {
		t.Fatalf("Send after Close: err = %v, want ErrClosed", err)
	}
}
