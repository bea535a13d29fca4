package mearec

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// readable returns the exclusive sample bound for reads. Read-only handles
// on a live recording stop at the published watermark.
func (f *DataFile) readable() uint64 {
	if !f.writable && f.live {
		return f.lastValid
	}
	return f.nsamples
}

// ReadableSamples returns the number of samples reads may currently cover.
func (f *DataFile) ReadableSamples() uint64 { return f.readable() }

func (f *DataFile) checkRead(channels, samples Range) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if err := channels.check("channel", uint64(f.nchannels)); err != nil {
		return err
	}
	return samples.check("sample", f.readable())
}

// readRaw reads a channel-major window of stored bytes.
func (f *DataFile) readRaw(channels, samples Range) ([]byte, error) {
	if err := f.checkRead(channels, samples); err != nil {
		return nil, err
	}
	buf := make([]byte, channels.Len()*samples.Len()*uint64(f.sampleType.Size()))
	if err := f.chunks.ReadWindow(f.file, channels.Start, channels.End, samples.Start, samples.End, buf); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	bytesRead.WithLabelValues(f.path).Add(float64(len(buf)))
	return buf, nil
}

// ReadRaw returns the stored codes of a window without unit conversion. T
// must be the recording's sample type.
func ReadRaw[T dtype.Sample](f *DataFile, channels, samples Range) (*Block[T], error) {
	if t := sampleTypeFor[T](); t != f.sampleType {
		return nil, fmt.Errorf("%w: recording stores %s, requested %s", ErrTypeMismatch, f.sampleType, t)
	}
	buf, err := f.readRaw(channels, samples)
	if err != nil {
		return nil, err
	}
	b := NewBlock[T](int(channels.Len()), int(samples.Len()))
	if err := dtype.DecodeInto(f.sampleType.datatype(), buf, b.Data); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteRaw stores a block covering every channel at samples
// [start, start+b.Samples). The dataset grows by whole blocks when the
// window ends past the allocated extent. start may not lie beyond the
// committed extent. The watermark is not advanced. A finalized recording
// rejects writes with ErrReadOnly.
func WriteRaw[T dtype.Sample](f *DataFile, start uint64, b *Block[T]) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	if t := sampleTypeFor[T](); t != f.sampleType {
		return fmt.Errorf("%w: recording stores %s, block holds %s", ErrTypeMismatch, f.sampleType, t)
	}
	if err := b.valid(); err != nil {
		return err
	}
	if b.Channels != int(f.nchannels) {
		return fmt.Errorf("%w: block has %d channels, recording has %d", ErrRange, b.Channels, f.nchannels)
	}
	return f.writeRaw(Span(start, uint64(b.Samples)), dtype.Encode(b.Data))
}

// writeRaw extends the dataset if needed, writes the samples and commits
// the new extent by rewriting the dataset header. Any failure before the
// commit leaves the committed extent and the allocator unchanged.
func (f *DataFile) writeRaw(samples Range, data []byte) error {
	if err := f.checkLive(); err != nil {
		return err
	}
	if samples.End <= samples.Start || samples.Start > f.nsamples {
		return &RangeError{Axis: "sample", Start: samples.Start, End: samples.End, Limit: f.nsamples}
	}

	m := f.alloc.Mark()
	eof := f.alloc.EOFAddr()
	fail := func(err error) error {
		f.alloc.Rollback(m)
		if terr := f.file.Truncate(int64(eof)); terr != nil {
			f.log.Warnw("trimming abandoned extension", "error", terr)
		}
		return err
	}

	chunks := f.chunks
	grown := 0
	if need := chunks.ChunksFor(samples.End); need > len(chunks.Chunks) {
		grown = need - len(chunks.Chunks)
		g, err := chunks.Grow(f.file, f.alloc, grown)
		if err != nil {
			return fail(fmt.Errorf("extending dataset: %w", err))
		}
		chunks = g
	}
	if err := chunks.WriteWindow(f.file, samples.Start, samples.End, data); err != nil {
		return fail(fmt.Errorf("writing samples: %w", err))
	}

	nsamples := max(f.nsamples, samples.End)
	if grown > 0 || nsamples != f.nsamples {
		h := f.data.hdr.Clone()
		h.Replace(&message.Dataspace{
			Dims:    []uint64{uint64(f.nchannels), nsamples},
			MaxDims: []uint64{uint64(f.nchannels), message.Unlimited},
		})
		h.Replace(chunks.Layout())
		if err := f.commit(f.data, h); err != nil {
			return fail(err)
		}
	}

	if grown > 0 {
		datasetExtensions.WithLabelValues(f.path).Inc()
		f.log.Debugw("extended dataset", "chunks", grown, "allocated", chunks.Samples())
	}
	f.chunks, f.nsamples = chunks, nsamples
	samplesWritten.WithLabelValues(f.path).Add(float64(samples.Len()))
	return nil
}
