package archive

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/poll"
)

const drainTimeout = 5 * time.Second

// Writer decouples the session loop from the database. Entries that do not
// fit in the buffer are dropped.
type Writer struct {
	store Store
	queue chan poll.HistoryEntry
	log   *zap.Logger
}

func NewWriter(store Store, size int, log *zap.Logger) *Writer {
	if size <= 0 {
		size = 64
	}
	return &Writer{store: store, queue: make(chan poll.HistoryEntry, size), log: log.Named("archive")}
}

func (w *Writer) Submit(e poll.HistoryEntry) {
	select {
	case w.queue <- e:
	default:
		w.log.Warn("archive buffer full, dropping poll", zap.String("poll", e.ID))
	}
}

// Run saves entries until ctx ends, then flushes whatever is still
// buffered. The returned error aggregates failed flushes only.
func (w *Writer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return w.drain()
		}
		select {
		case <-ctx.Done():
			return w.drain()
		case e := <-w.queue:
			if err := w.save(ctx, e); err != nil {
				w.log.Error("archive failed", zap.String("poll", e.ID), zap.Error(err))
			}
		}
	}
}

func (w *Writer) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	var errs error
	for {
		select {
		case e := <-w.queue:
			errs = multierr.Append(errs, w.save(ctx, e))
		default:
			return errs
		}
	}
}

func (w *Writer) save(ctx context.Context, e poll.HistoryEntry) error {
	rec := FromEntry(e)
	if err := w.store.Save(ctx, &rec); err != nil {
		return err
	}
	w.log.Debug("poll archived", zap.String("poll", e.ID), zap.String("status", string(e.Status)))
	return nil
}
