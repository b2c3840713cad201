/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package channel implements the bounded MPSC command channel (C4) that
// decouples network ingestion from disk I/O.
//
// The shape follows the teacher library's runtime/sink/policy.batchSink
// queue/backpressure pattern, generalized from arbitrary []byte entries to
// command.Command and narrowed from three backpressure modes (Block/Drop/
// Shed) to the two this domain exercises (Block/Discard).
package channel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/ingest/policy"
	"dirpx.dev/dlogd/apis/metrics"
)

// ErrClosed is returned by Send once the channel has been closed, mirroring
// the ChannelClosed error kind: producers observe it after the sink has
// terminated and should stop producing.
var ErrClosed = errors.New("ingest/channel: closed")

const warnInterval = 5 * time.Second

// Channel is the bounded producer/consumer buffer between listeners and
// the file sink.
type Channel struct {
	policy policy.Backpressure
	metric metrics.Sink

	ch     chan command.Command
	closed atomic.Bool

	backpressureEvents atomic.Int64
	dropped            atomic.Int64

	warnMu   sync.Mutex
	lastWarn time.Time
}

// New constructs a Channel with the given capacity and backpressure
// policy. metric may be nil, in which case updates are discarded.
func New(capacity int, bp policy.Backpressure, metric metrics.Sink) *Channel {
	if capacity <= 0 {
		capacity = 1
	}
	if metric == nil {
		metric = metrics.Noop{}
	}
	return &Channel{
		policy: bp,
		metric: metric,
		ch:     make(chan command.Command, capacity),
	}
}

// Send enqueues cmd according to the configured backpressure policy.
//
//   - Block: blocks until a slot frees or ctx is cancelled.
//   - Discard: drops cmd immediately if the channel is full, incrementing
//     the dropped-messages counter; the caller still sees success (nil).
//
// After Close, Send always returns ErrClosed.
func (c *Channel) Send(ctx context.Context, cmd command.Command) error {
	if c.closed.Load() {
		return ErrClosed
	}

	select {
	case c.ch <- cmd:
		return nil
	default:
	}

	c.backpressureEvents.Add(1)
	c.metric.CounterAdd(metrics.BackpressureEventsTotal, 1)
	c.warnStderr()

	switch c.policy {
	case policy.Discard:
		c.dropped.Add(1)
		c.metric.CounterAdd(metrics.MessagesDroppedTotal, 1)
		return nil
	default: // policy.Block
		select {
		case c.ch <- cmd:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Receive returns the channel's receive side for the file sink to consume
// from with a select against the shutdown signal.
func (c *Channel) Receive() <-chan command.Command {
	return c.ch
}

// Close marks the channel closed. It does not close the underlying Go
// channel (the sink may still be draining it); Close only makes future
// Send calls fail fast with ErrClosed. The underlying channel is garbage
// collected once both sides release their reference.
func (c *Channel) Close() {
	c.closed.Store(true)
}

// BackpressureEvents returns the process-wide backpressure-events counter.
func (c *Channel) BackpressureEvents() int64 { return c.backpressureEvents.Load() }

// Dropped returns the process-wide dropped-messages counter.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Len reports the number of commands currently buffered, for health/debug
// use; it is a snapshot and may be stale immediately after returning.
func (c *Channel) Len() int { return len(c.ch) }

// warnStderr rate-limits a backpressure warning to at most once per
// warnInterval, matching the spec's "rate-limits a warning to stderr to at
// most once per 5 s" requirement.
func (c *Channel) warnStderr() {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastWarn) < warnInterval {
		return
	}
	c.lastWarn = now
	fmt.Fprintf(os.Stderr, "dlogd: command channel full, policy=%s, backpressure_events=%d, dropped=%d\n",
		c.policy, c.backpressureEvents.Load(), c.dropped.Load())
}
