package mearec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radovskyb/watcher"
	"go.uber.org/zap"
)

// DefaultPollInterval is used by followers created with a zero interval.
const DefaultPollInterval = 250 * time.Millisecond

// Update is a newly valid sample range [Start, End). The last update of a
// finalized recording has Live set to false and may be empty.
type Update struct {
	Start, End uint64
	Live       bool
}

// Follower delivers the samples of a recording as a writer in another
// process publishes them.
type Follower struct {
	f        *DataFile
	path     string
	interval time.Duration
	cursor   uint64
	log      *zap.SugaredLogger
}

// NewFollower opens path read-only for following. Changes are picked up
// from file write notifications and, as a fallback, every interval.
func NewFollower(path string, interval time.Duration, opts ...Option) (*Follower, error) {
	if interval < time.Millisecond {
		interval = DefaultPollInterval
	}
	o := newOptions(opts)
	f, err := open(path, false, o)
	if err != nil {
		return nil, err
	}
	return &Follower{
		f:        f,
		path:     path,
		interval: interval,
		log:      o.log("follower").With("path", path),
	}, nil
}

// File returns the followed recording. Its state reflects the last update.
func (fl *Follower) File() *DataFile { return fl.f }

// Seek sets the first sample of the next update.
func (fl *Follower) Seek(sample uint64) { fl.cursor = sample }

// Run calls fn for every newly valid range until the recording is
// finalized, fn fails or ctx ends. It returns nil once the final update of a
// finalized recording was delivered.
func (fl *Follower) Run(ctx context.Context, fn func(*DataFile, Update) error) error {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Rename)
	if err := w.Add(fl.path); err != nil {
		return fmt.Errorf("watching %s: %w", fl.path, err)
	}
	go func() {
		if err := w.Start(fl.interval); err != nil {
			fl.log.Errorw("file watcher stopped", "error", err)
		}
	}()
	w.Wait()
	defer stopWatcher(w)

	ticker := time.NewTicker(fl.interval)
	defer ticker.Stop()

	for {
		done, err := fl.poll(fn)
		if err != nil || done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Event:
		case err := <-w.Error:
			if errors.Is(err, watcher.ErrWatchedFileDeleted) {
				return fmt.Errorf("following %s: %w", fl.path, err)
			}
			fl.log.Warnw("file watcher error", "error", err)
		case <-w.Closed:
			return nil
		case <-ticker.C:
		}
	}
}

// poll re-reads the watermark and delivers the range past the cursor. It
// reports whether the recording is finalized.
func (fl *Follower) poll(fn func(*DataFile, Update) error) (bool, error) {
	wm, err := fl.f.Snapshot()
	if err != nil {
		return false, err
	}
	end := max(wm.Readable(), fl.cursor)
	if end == fl.cursor && wm.Live {
		return false, nil
	}

	u := Update{Start: fl.cursor, End: end, Live: wm.Live}
	if err := fn(fl.f, u); err != nil {
		return false, err
	}
	fl.cursor = end
	followerUpdates.WithLabelValues(fl.path).Inc()
	fl.log.Debugw("delivered update", "start", u.Start, "end", u.End, "live", u.Live)
	return !wm.Live, nil
}

// stopWatcher closes w while draining its channels, since the polling loop
// blocks on unread events.
func stopWatcher(w *watcher.Watcher) {
	go w.Close()
	for {
		select {
		case <-w.Event:
		case <-w.Error:
		case <-w.Closed:
			return
		}
	}
}

// Close closes the followed recording.
func (fl *Follower) Close() error {
	return fl.f.Close()
}
