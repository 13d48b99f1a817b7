package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelhold/internal/api"
	"reelhold/internal/backend"
	"reelhold/internal/config"
	"reelhold/internal/logging"
	"reelhold/internal/notifications"
	"reelhold/internal/outbox"
	"reelhold/internal/storage"
	"reelhold/internal/tracker"
)

// Daemon owns the progress engine for the host: the store, tracker, pending
// queue, backend flusher, and the HTTP API. It enforces single-instance
// execution with a lock file in the state directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	tracker  *tracker.Tracker
	queue    *outbox.Outbox
	service  *api.ProgressService
	notifier notifications.Service

	client  *backend.Client
	flusher *backend.Flusher

	apiSrv *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	DatabasePath   string
	LockFilePath   string
	RecordCount    int
	PendingCount   int
	BackendEnabled bool
}

// New constructs a daemon over an opened store. The tracker loads and cleans
// persisted state immediately so a construction-time crash never loses more
// than the corrupted records themselves.
func New(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	queue := outbox.Open(ctx, store, logger.With(logging.String(logging.FieldComponent, "outbox")))
	trk := tracker.New(ctx, store, queue, logger.With(logging.String(logging.FieldComponent, "tracker")))

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		tracker:  trk,
		queue:    queue,
		service:  api.NewProgressService(trk, queue),
		notifier: notifications.NewService(cfg),
		lockPath: filepath.Join(cfg.Paths.StateDir, "reelholdd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	if cfg.Backend.Enabled {
		clientID, err := backend.ClientID(cfg.Paths.StateDir)
		if err != nil {
			return nil, fmt.Errorf("resolve client id: %w", err)
		}
		d.client = backend.NewClient(cfg, clientID)
		interval := time.Duration(cfg.Backend.FlushInterval) * time.Second
		d.flusher = backend.NewFlusher(d.client, queue, logger.With(logging.String(logging.FieldComponent, "flusher")), interval)
	}

	srv, err := newAPIServer(cfg, d, logger.With(logging.String(logging.FieldComponent, "api-server")))
	if err != nil {
		return nil, err
	}
	d.apiSrv = srv
	return d, nil
}

// Start acquires the instance lock, launches the API server, and when a
// backend is configured kicks off the startup import and the periodic flush
// loop. The import runs in the background so a slow backend never delays
// local availability.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelhold daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.apiSrv != nil {
		if err := d.apiSrv.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return err
		}
	}

	if d.flusher != nil {
		d.flusher.Start(d.ctx)
	}
	if d.client != nil && d.cfg.Backend.ImportOnStart {
		go d.importOnStart(d.ctx)
	}

	d.running.Store(true)
	d.logger.Info("reelhold daemon started",
		logging.String("lock", d.lockPath),
		logging.Int(logging.FieldCount, d.tracker.Len()),
	)
	return nil
}

func (d *Daemon) importOnStart(ctx context.Context) {
	records, err := d.client.Fetch(ctx)
	if err != nil {
		d.logger.Warn("startup import failed", logging.Error(err))
		_ = d.notifier.NotifyError(ctx, err, "startup import")
		return
	}
	accepted, err := d.tracker.ImportBackend(ctx, records)
	if err != nil {
		d.logger.Warn("startup import merge failed", logging.Error(err))
		return
	}
	d.logger.Info("imported backend progress",
		logging.Int("received", len(records)),
		logging.Int("accepted", accepted),
	)
	if accepted > 0 {
		_ = d.notifier.NotifyImportCompleted(ctx, accepted)
	}
}

// FlushNow drains the pending queue to the backend. Without a configured
// backend it reports zero pushed and leaves the queue intact.
func (d *Daemon) FlushNow(ctx context.Context) (int, error) {
	if d.flusher == nil {
		return 0, nil
	}
	pushed, err := d.flusher.FlushNow(ctx)
	if err != nil {
		_ = d.notifier.NotifySyncFailed(ctx, d.queue.Len(), err)
		return 0, err
	}
	if pushed > 0 {
		_ = d.notifier.NotifySyncCompleted(ctx, pushed)
	}
	return pushed, nil
}

// ImportNow fetches the backend record set and merges it immediately.
func (d *Daemon) ImportNow(ctx context.Context) (int, error) {
	if d.client == nil {
		return 0, errors.New("backend sync is not configured")
	}
	records, err := d.client.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return d.tracker.ImportBackend(ctx, records)
}

// Service exposes the progress service for embedding callers.
func (d *Daemon) Service() *api.ProgressService {
	return d.service
}

// APIAddr reports the bound API listen address once started. Useful when the
// configured bind uses an ephemeral port.
func (d *Daemon) APIAddr() string {
	return d.apiSrv.addr()
}

// Status reports current daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		DatabasePath:   d.cfg.DatabasePath(),
		LockFilePath:   d.lockPath,
		RecordCount:    d.tracker.Len(),
		PendingCount:   d.queue.Len(),
		BackendEnabled: d.cfg.Backend.Enabled,
	}
}

// Stop halts the flush loop and the API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.flusher != nil {
		d.flusher.Stop()
	}
	if d.apiSrv != nil {
		d.apiSrv.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reelhold daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
