package mearec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatermarkMonotonic(t *testing.T) {
	f, err := Create(tempPath(t), WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, WriteRaw(f, 0, patternBlock(2, 20, 0)))

	require.ErrorIs(t, f.SetLastValidSample(21), ErrRange)
	require.NoError(t, f.SetLastValidSample(10))
	require.NoError(t, f.SetLastValidSample(10))
	require.ErrorIs(t, f.SetLastValidSample(9), ErrRange)
	require.NoError(t, f.SetLastValidSample(20))
	require.EqualValues(t, 20, f.LastValidSample())
	require.LessOrEqual(t, f.LastValidSample(), f.DatasetSize())
}

func TestReaderBoundedByWatermark(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path, WithChannels(3), WithBlockSize(64))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, WriteRaw(w, 0, patternBlock(3, 300, 0)))
	require.NoError(t, w.SetLastValidSample(100))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.Live())
	require.EqualValues(t, 300, r.NumSamples())
	require.EqualValues(t, 100, r.ReadableSamples())

	_, err = r.Data(Span(0, 3), Span(0, 101))
	require.ErrorIs(t, err, ErrRange)
	b, err := ReadRaw[int16](r, Span(0, 3), Span(0, 100))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)

	// the reader keeps its view until it refreshes
	require.NoError(t, w.SetLastValidSample(300))
	require.EqualValues(t, 100, r.ReadableSamples())
	wm, err := r.Snapshot()
	require.NoError(t, err)
	require.Equal(t, Watermark{Live: true, LastValidSample: 300, NumSamples: 300}, wm)
	require.EqualValues(t, 300, wm.Readable())

	require.NoError(t, WriteRaw(w, 300, patternBlock(3, 50, 300)))
	require.NoError(t, w.SetLive(false))
	wm, err = r.Snapshot()
	require.NoError(t, err)
	require.False(t, wm.Live)
	require.Equal(t, wm.NumSamples, wm.LastValidSample)
	require.EqualValues(t, 350, r.ReadableSamples())
}

func TestFinalizePublishesExtent(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(1), WithBlockSize(16))
	require.NoError(t, err)
	require.NoError(t, WriteRaw(f, 0, patternBlock(1, 40, 0)))
	require.NoError(t, f.SetLive(false))
	require.EqualValues(t, 40, f.LastValidSample())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Live())
	require.EqualValues(t, 40, r.LastValidSample())
	require.EqualValues(t, 40, r.ReadableSamples())
}

func TestFinalizedRecordingRejectsWrites(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	require.NoError(t, WriteRaw(f, 0, patternBlock(2, 10, 0)))
	require.NoError(t, f.SetLive(false))

	err = WriteRaw(f, 10, patternBlock(2, 10, 10))
	require.ErrorIs(t, err, ErrReadOnly)
	// overwriting published samples is rejected too
	require.ErrorIs(t, WriteRaw(f, 0, patternBlock(2, 4, 0)), ErrReadOnly)
	require.ErrorIs(t, f.SetLive(true), ErrReadOnly)
	require.EqualValues(t, 10, f.NumSamples())
	require.EqualValues(t, 16, f.DatasetSize())
	// finalizing twice is a no-op
	require.NoError(t, f.SetLive(false))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Live())
	require.EqualValues(t, 10, r.NumSamples())
	require.Equal(t, r.NumSamples(), r.LastValidSample())
	b, err := ReadRaw[int16](r, Span(0, 2), Span(0, 10))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)
}

func TestRefreshOnWritableIsNoop(t *testing.T) {
	f, err := Create(tempPath(t), WithChannels(1), WithBlockSize(4))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Refresh())
	wm, err := f.Snapshot()
	require.NoError(t, err)
	require.True(t, wm.Live)
}

// A reader that reads up to the watermark it observed must only ever see
// samples the writer wrote, while the writer keeps extending the file.
func TestConcurrentWriterReader(t *testing.T) {
	const (
		channels = 4
		feed     = 70
		blocks   = 40
	)
	path := tempPath(t)
	w, err := Create(path, WithChannels(channels), WithBlockSize(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	errc := make(chan error, 1)
	go func() {
		defer wg.Done()
		defer close(errc)
		for i := 0; i < blocks; i++ {
			start := i * feed
			if err := WriteRaw(w, uint64(start), patternBlock(channels, feed, start)); err != nil {
				errc <- err
				return
			}
			if err := w.SetLastValidSample(uint64(start + feed)); err != nil {
				errc <- err
				return
			}
		}
		if err := w.SetLive(false); err != nil {
			errc <- err
			return
		}
		errc <- w.Close()
	}()

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var seen uint64
	for {
		select {
		case err := <-errc:
			require.NoError(t, err)
		default:
		}
		wm, err := r.Snapshot()
		require.NoError(t, err)
		require.LessOrEqual(t, wm.LastValidSample, wm.NumSamples)
		require.GreaterOrEqual(t, wm.LastValidSample, seen)
		if n := wm.Readable(); n > seen {
			b, err := ReadRaw[int16](r, Span(0, channels), Range{seen, n})
			require.NoError(t, err)
			requirePattern(t, b, 0, int(seen))
			seen = n
		}
		if !wm.Live {
			break
		}
	}
	wg.Wait()
	require.NoError(t, <-errc)
	require.EqualValues(t, feed*blocks, seen)
}
