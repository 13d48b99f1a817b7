// Package outbox persists the queue of progress mutations awaiting a backend
// push. Entries are keyed by record key with last-write-wins replacement, so
// the queue never holds more than one pending state per title.
package outbox

import (
	"context"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"reelhold/internal/logging"
	"reelhold/internal/progress"
)

// Outbox is the durable pending-sync queue. All methods are safe for
// concurrent use; every mutation is written through to the store before it
// returns.
type Outbox struct {
	mu     sync.Mutex
	store  storageAPI
	logger *slog.Logger
	items  []progress.Record
}

type storageAPI interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Open loads the persisted queue. A corrupt blob degrades to an empty queue
// rather than blocking startup; the next enqueue rewrites the slot.
func Open(ctx context.Context, store storageAPI, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = logging.NewNop()
	}
	ob := &Outbox{store: store, logger: logger}

	raw, found, err := store.Read(ctx, progress.PendingSyncSlot)
	if err != nil {
		logger.Warn("pending sync slot unreadable, starting empty", logging.Error(err))
		return ob
	}
	if !found || len(raw) == 0 {
		return ob
	}
	var items []progress.Record
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("pending sync slot corrupt, starting empty", logging.Error(err))
		return ob
	}
	ob.items = items
	return ob
}

// Enqueue adds or replaces the pending entry for the record's key, preserving
// the original queue position on replacement.
func (o *Outbox) Enqueue(ctx context.Context, record progress.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := record.Key()
	replaced := false
	for i := range o.items {
		if o.items[i].Key() == key {
			o.items[i] = record.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		o.items = append(o.items, record.Clone())
	}
	return o.persistLocked(ctx)
}

// Drain removes and returns every queued record, oldest first. The caller
// re-enqueues via Restore if the push fails.
func (o *Outbox) Drain(ctx context.Context) ([]progress.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.items) == 0 {
		return nil, nil
	}
	drained := o.items
	o.items = nil
	if err := o.persistLocked(ctx); err != nil {
		o.items = drained
		return nil, err
	}
	return drained, nil
}

// Restore puts drained records back after a failed push. Records whose key
// already has a newer pending entry are dropped, since the newer mutation
// supersedes them.
func (o *Outbox) Restore(ctx context.Context, records []progress.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	present := make(map[string]struct{}, len(o.items))
	for i := range o.items {
		present[o.items[i].Key()] = struct{}{}
	}

	restored := make([]progress.Record, 0, len(records)+len(o.items))
	for _, record := range records {
		if _, exists := present[record.Key()]; exists {
			continue
		}
		restored = append(restored, record)
	}
	o.items = append(restored, o.items...)
	return o.persistLocked(ctx)
}

// List returns a snapshot of the queued records, oldest first.
func (o *Outbox) List() []progress.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]progress.Record, 0, len(o.items))
	for i := range o.items {
		out = append(out, o.items[i].Clone())
	}
	return out
}

// Len reports the number of queued records.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Clear discards every queued record.
func (o *Outbox) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.items = nil
	return o.store.Remove(ctx, progress.PendingSyncSlot)
}

func (o *Outbox) persistLocked(ctx context.Context) error {
	if len(o.items) == 0 {
		return o.store.Remove(ctx, progress.PendingSyncSlot)
	}
	raw, err := json.Marshal(o.items)
	if err != nil {
		return err
	}
	return o.store.Write(ctx, progress.PendingSyncSlot, raw)
}
