package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelhold/internal/logging"
	"reelhold/internal/outbox"
)

// Flusher pushes the pending-sync queue to the backend on an interval and on
// demand. A failed push restores the drained records so nothing is lost;
// records superseded by a newer local mutation in the meantime stay dropped.
type Flusher struct {
	client   *Client
	queue    *outbox.Outbox
	logger   *slog.Logger
	interval time.Duration

	mu sync.Mutex // serializes flushes

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewFlusher builds a flusher over the given client and queue. A non-positive
// interval disables the periodic loop; FlushNow still works.
func NewFlusher(client *Client, queue *outbox.Outbox, logger *slog.Logger, interval time.Duration) *Flusher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Flusher{
		client:   client,
		queue:    queue,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic flush loop. It returns immediately when the
// interval is disabled.
func (f *Flusher) Start(ctx context.Context) {
	if f.interval <= 0 {
		close(f.done)
		return
	}
	go f.run(ctx)
}

func (f *Flusher) run(ctx context.Context) {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		case <-ticker.C:
			if _, err := f.FlushNow(ctx); err != nil {
				f.logger.Warn("periodic flush failed", logging.Error(err))
			}
		}
	}
}

// Stop terminates the periodic loop and waits for it to exit.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}

// FlushNow drains the queue and pushes it. On failure the drained records are
// restored and the error returned. Returns the number of records pushed.
func (f *Flusher) FlushNow(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.queue.Drain(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := f.client.Push(ctx, records); err != nil {
		if restoreErr := f.queue.Restore(ctx, records); restoreErr != nil {
			f.logger.Error("restore pending queue after failed push",
				logging.Int(logging.FieldCount, len(records)),
				logging.Error(restoreErr),
			)
		}
		return 0, err
	}

	f.logger.Info("pushed pending progress records", logging.Int(logging.FieldCount, len(records)))
	return len(records), nil
}
