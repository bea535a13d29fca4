package mearec

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Watermark is a consistent view of the reader-facing extent of a
// recording.
type Watermark struct {
	Live            bool
	LastValidSample uint64
	NumSamples      uint64
}

// Readable returns the number of samples a reader may consume: the
// watermark while live, the full extent once finalized.
func (w Watermark) Readable() uint64 {
	if w.Live {
		return w.LastValidSample
	}
	return w.NumSamples
}

// Live reports whether a writer is still appending.
func (f *DataFile) Live() bool { return f.live }

// LastValidSample returns the published watermark.
func (f *DataFile) LastValidSample() uint64 { return f.lastValid }

// SetLastValidSample publishes n as the new watermark. The watermark never
// moves backwards and never passes the committed extent. Unless disabled
// with WithSyncOnPublish, sample data is synced before the watermark is
// written, so readers never see a watermark ahead of durable data.
func (f *DataFile) SetLastValidSample(n uint64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	if n < f.lastValid || n > f.nsamples {
		return &RangeError{Axis: "watermark", Start: f.lastValid, End: n, Limit: f.nsamples}
	}
	if n == f.lastValid {
		return nil
	}
	if err := f.publish(f.live, n); err != nil {
		return err
	}
	f.log.Debugw("published watermark", "last-valid-sample", n)
	return nil
}

// SetLive sets the live flag. Finalizing a recording (live=false) also
// publishes the full committed extent as the watermark, so that
// LastValidSample equals NumSamples from then on. A finalized recording
// cannot be made live again.
func (f *DataFile) SetLive(live bool) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	if live {
		if err := f.checkLive(); err != nil {
			return err
		}
	}
	lvs := f.lastValid
	if !live {
		lvs = f.nsamples
	}
	if live == f.live && lvs == f.lastValid {
		return nil
	}
	if err := f.publish(live, lvs); err != nil {
		return err
	}
	f.log.Infow("changed live state", "live", live, "last-valid-sample", lvs)
	return nil
}

// checkLive rejects sample writes to a finalized recording.
func (f *DataFile) checkLive() error {
	if !f.live {
		return fmt.Errorf("%w: %s is finalized", ErrReadOnly, f.path)
	}
	return nil
}

// publish rewrites the file-scoped protocol attributes in one header write.
func (f *DataFile) publish(live bool, lvs uint64) error {
	if f.syncOnPublish && lvs > f.lastValid {
		if err := f.file.Sync(); err != nil {
			return fmt.Errorf("syncing samples before watermark: %w", err)
		}
	}
	liveFlag := uint8(0)
	if live {
		liveFlag = 1
	}
	h := f.root.hdr.Clone()
	for _, a := range []*message.Attribute{
		attr(attrLive, Uint8(liveFlag)),
		attr(attrLastValidSample, Uint64(lvs)),
	} {
		h.SetAttribute(a)
	}
	if err := f.commit(f.root, h); err != nil {
		return fmt.Errorf("publishing watermark: %w", err)
	}
	f.live, f.lastValid = live, lvs
	lastValidSampleGauge.WithLabelValues(f.path).Set(float64(lvs))
	return nil
}

// Refresh reloads the recording state from disk, picking up samples and
// attributes published by a writer in another process. It is a no-op for
// writable handles, which are the source of that state.
func (f *DataFile) Refresh() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.writable {
		return nil
	}
	st, err := f.load()
	if err != nil {
		return err
	}
	if st.nsamples < f.nsamples || (f.live && st.lastValid < f.lastValid) {
		f.log.Warnw("recording shrank since last refresh",
			"samples", st.nsamples, "previous-samples", f.nsamples, "last-valid-sample", st.lastValid)
	}
	f.state = st
	return nil
}

// Snapshot refreshes the handle and returns its watermark.
func (f *DataFile) Snapshot() (Watermark, error) {
	if err := f.Refresh(); err != nil {
		return Watermark{}, err
	}
	lastValidSampleGauge.WithLabelValues(f.path).Set(float64(f.lastValid))
	return Watermark{Live: f.live, LastValidSample: f.lastValid, NumSamples: f.nsamples}, nil
}
