// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gwdash/gwdash/lib/clock"
)

// DispatcherConfig configures a [Dispatcher].
type DispatcherConfig struct {
	// BufferSize is the queue capacity. Default: 16.
	BufferSize int

	// DropIfFull drops a notification when the queue is full instead
	// of blocking the caller until there is room or its context ends.
	DropIfFull bool

	// Clock stamps notifications that arrive without a time.
	// Default: clock.Real().
	Clock clock.Clock

	// Logger records dropped notifications. Default: slog.Default().
	Logger *slog.Logger
}

// Dispatcher queues notifications and delivers them to a Sink from a
// single goroutine, preserving submission order.
type Dispatcher struct {
	config DispatcherConfig
	sink   Sink

	queue   chan Notification
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	// sendMu is held for reading across the closed check and the
	// enqueue, and for writing by Close, so every accepted
	// notification is queued before the final drain starts.
	sendMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher delivering to sink. Call Close to
// drain the queue and stop the goroutine.
func NewDispatcher(config DispatcherConfig, sink Sink) *Dispatcher {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if sink == nil {
		sink = Discard
	}

	d := &Dispatcher{
		config: config,
		sink:   sink,
		queue:  make(chan Notification, config.BufferSize),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case notification := <-d.queue:
			d.sink.Deliver(context.Background(), notification)
		case <-d.done:
			for {
				select {
				case notification := <-d.queue:
					d.sink.Deliver(context.Background(), notification)
				default:
					return
				}
			}
		}
	}
}

// Notify queues a notification. After Close it is a no-op.
func (d *Dispatcher) Notify(ctx context.Context, notification Notification) {
	d.sendMu.RLock()
	defer d.sendMu.RUnlock()
	if d.closed {
		return
	}
	if notification.Time.IsZero() {
		notification.Time = d.config.Clock.Now()
	}

	if d.config.DropIfFull {
		select {
		case d.queue <- notification:
		default:
			d.dropped.Add(1)
			d.config.Logger.Warn("notification dropped, queue full",
				"kind", string(notification.Kind),
				"request_id", notification.RequestID,
			)
		}
		return
	}

	select {
	case d.queue <- notification:
	case <-ctx.Done():
	}
}

// Close stops accepting notifications, delivers everything already
// queued, and waits for the delivery goroutine to exit. Idempotent.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.sendMu.Lock()
		d.closed = true
		d.sendMu.Unlock()
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of notifications dropped because the
// queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
