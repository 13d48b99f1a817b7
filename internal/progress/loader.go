package progress

import (
	"context"
	"log/slog"

	"reelhold/internal/logging"
	"reelhold/internal/storage"
)

// Slot names in the backing store. ProgressSlot is the active location;
// LegacyProgressSlot is read once and removed after migration.
const (
	ProgressSlot       = "watch_progress_v2"
	LegacyProgressSlot = "watch_progress"
	PendingSyncSlot    = "pending_sync"
)

// LoadState reads the persisted record set, recovering what it can from
// corrupted blobs and migrating from the legacy slot. Whenever migration
// happened or corruption was repaired, the cleaned set is re-persisted under
// the active slot and the legacy slot is removed. Parse failures never
// propagate; the worst case is an empty cache.
func LoadState(ctx context.Context, store storage.Store, logger *slog.Logger) map[string]Record {
	if logger == nil {
		logger = logging.NewNop()
	}

	raw, found, err := store.Read(ctx, ProgressSlot)
	if err != nil {
		logger.Warn("progress slot unreadable, starting empty", logging.String(logging.FieldSlot, ProgressSlot), logging.Error(err))
		return map[string]Record{}
	}

	migrated := false
	if !found {
		legacy, legacyFound, legacyErr := store.Read(ctx, LegacyProgressSlot)
		if legacyErr != nil {
			logger.Warn("legacy progress slot unreadable", logging.String(logging.FieldSlot, LegacyProgressSlot), logging.Error(legacyErr))
		} else if legacyFound {
			raw = legacy
			migrated = true
		}
	}

	records, topLevel := ExtractRecords(raw)
	byKey := make(map[string]Record, len(records))
	for _, rec := range records {
		byKey[rec.Key()] = rec
	}

	if migrated || len(records) != topLevel {
		if migrated {
			logger.Info("migrated progress records from legacy slot", logging.Int(logging.FieldCount, len(records)))
		} else {
			logger.Warn("repaired corrupted progress blob",
				logging.Int("raw_items", topLevel),
				logging.Int(logging.FieldCount, len(records)),
			)
		}
		persistRepaired(ctx, store, byKey, logger)
	}

	return byKey
}

func persistRepaired(ctx context.Context, store storage.Store, byKey map[string]Record, logger *slog.Logger) {
	blob, err := EncodeRecords(byKey)
	if err != nil {
		logger.Warn("encode repaired progress set", logging.Error(err))
		return
	}
	if err := store.Write(ctx, ProgressSlot, blob); err != nil {
		logger.Warn("persist repaired progress set", logging.Error(err))
		return
	}
	if err := store.Remove(ctx, LegacyProgressSlot); err != nil {
		logger.Warn("remove legacy progress slot", logging.Error(err))
	}
}
