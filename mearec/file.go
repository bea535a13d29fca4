package mearec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robert-malhotra/go-mearec/internal/alloc"
	"github.com/robert-malhotra/go-mearec/internal/layout"
	"github.com/robert-malhotra/go-mearec/internal/object"
	"github.com/robert-malhotra/go-mearec/internal/superblock"
	"go.uber.org/zap"
)

// Link names in the root group.
const (
	dataName          = "data"
	configurationName = "configuration"
)

// DataFile is an open recording. A handle is not safe for concurrent use;
// independent handles on the same file are.
type DataFile struct {
	path     string
	file     *os.File
	writable bool
	closed   bool

	log           *zap.SugaredLogger
	retry         object.Retry
	syncOnPublish bool
	configuration bool

	// alloc is nil for read-only handles
	alloc *alloc.Allocator

	*state
}

// state is everything loaded from disk. Refresh replaces it as a whole.
type state struct {
	sb   *superblock.Superblock
	root *node
	data *node

	chunks     *layout.Chunked
	sampleType SampleType
	nchannels  uint32
	nsamples   uint64

	live      bool
	lastValid uint64

	sampleRate       float32
	gain             float32
	offset           float32
	blockSize        uint32
	date             string
	room             string
	array            string
	uuid             string
	analogOutputSize uint64
	means            []float64
}

func newDataFile(path string, file *os.File, writable bool, o *options) *DataFile {
	log := o.log("datafile")
	retry := o.retry
	retry.OnRetry = func(addr uint64, attempt int) {
		checksumRetries.Inc()
		log.Debugw("retrying torn header read", "address", addr, "attempt", attempt)
	}
	return &DataFile{
		path:          path,
		file:          file,
		writable:      writable,
		log:           log.With("path", path),
		retry:         retry,
		syncOnPublish: o.syncOnPublish,
		configuration: o.configuration,
	}
}

// Open opens an existing recording read-only.
func Open(path string, opts ...Option) (*DataFile, error) {
	return open(path, false, newOptions(opts))
}

// OpenAppend reopens a live recording for writing, for a writer that
// resumes after a restart. A finalized recording is rejected with
// ErrReadOnly.
func OpenAppend(path string, opts ...Option) (*DataFile, error) {
	return open(path, true, newOptions(opts))
}

// OpenOrCreate opens path read-only if it exists and creates a new recording
// otherwise.
func OpenOrCreate(path string, opts ...Option) (*DataFile, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Create(path, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	return Open(path, opts...)
}

func open(path string, writable bool, o *options) (*DataFile, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	f := newDataFile(path, file, writable, o)
	st, err := f.load()
	if err != nil {
		file.Close()
		return nil, err
	}
	f.state = st

	if !writable {
		if st.sb.WriteOpen() && !st.live {
			f.log.Warnw("recording was not closed cleanly")
		}
		return f, nil
	}

	if !st.live {
		file.Close()
		return nil, fmt.Errorf("%w: %s is finalized", ErrReadOnly, path)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	f.alloc = alloc.Resume(superblock.Size, max(st.sb.EOFAddress, uint64(info.Size())))
	sb := *st.sb
	sb.Flags |= superblock.FlagWriteOpen
	if err := f.writeSuperblock(&sb); err != nil {
		file.Close()
		return nil, err
	}
	f.log.Infow("reopened live recording for append", "samples", st.nsamples, "last-valid-sample", st.lastValid)
	return f, nil
}

func (f *DataFile) readSuperblock() (*superblock.Superblock, error) {
	attempts := max(f.retry.Attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			checksumRetries.Inc()
			time.Sleep(f.retry.Backoff * time.Duration(i))
		}
		var sb *superblock.Superblock
		if sb, err = superblock.Read(f.file); err == nil {
			return sb, nil
		}
		if !errors.Is(err, superblock.ErrChecksum) {
			break
		}
	}
	switch {
	case errors.Is(err, superblock.ErrNotRecording),
		errors.Is(err, superblock.ErrChecksum),
		errors.Is(err, superblock.ErrUnsupportedVersion):
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFormat, f.path, err)
	}
	return nil, fmt.Errorf("reading superblock: %w", err)
}

// load reads the superblock, the root group and the data dataset. Missing
// mandatory metadata is ErrCorruptRecording; unreadable optional metadata is
// logged and replaced by its zero value.
func (f *DataFile) load() (*state, error) {
	sb, err := f.readSuperblock()
	if err != nil {
		return nil, err
	}
	rootHdr, err := f.readHeader(sb.RootAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: reading root header: %w", ErrCorruptRecording, err)
	}
	st := &state{sb: sb, root: &node{hdr: rootHdr}}

	live, err := requireUint(rootHdr, attrLive)
	if err != nil {
		return nil, err
	}
	st.live = live != 0
	if st.lastValid, err = requireUint(rootHdr, attrLastValidSample); err != nil {
		return nil, err
	}
	st.uuid = f.optionalString(rootHdr, attrUUID)

	if st.data, err = f.child(rootHdr, dataName); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecording, err)
	}
	if st.data == nil {
		return nil, corrupt("no %q dataset", dataName)
	}
	if err := f.loadDataset(st); err != nil {
		return nil, err
	}
	if st.lastValid > st.nsamples {
		return nil, corrupt("last valid sample %d beyond %d samples", st.lastValid, st.nsamples)
	}
	return st, nil
}

func (f *DataFile) loadDataset(st *state) error {
	h := st.data.hdr
	ds, dt, l := h.Dataspace(), h.Datatype(), h.Layout()
	if ds == nil || dt == nil || l == nil {
		return corrupt("%q lacks dataspace, datatype or layout", dataName)
	}
	if ds.Rank() != 2 {
		return corrupt("%q has rank %d", dataName, ds.Rank())
	}
	t, ok := sampleTypeOf(dt)
	if !ok {
		return corrupt("unsupported sample type %s", dt)
	}
	chunks, err := layout.Open(f.file, l)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecording, err)
	}
	if chunks.Channels != ds.Dims[0] || chunks.ElementSize != uint64(dt.Size) || ds.Dims[1] > chunks.Samples() {
		return corrupt("%q extent %v does not match its %d chunks of %dx%d",
			dataName, ds.Dims, len(chunks.Chunks), chunks.Channels, chunks.BlockSize)
	}
	st.chunks, st.sampleType = chunks, t
	st.nchannels, st.nsamples = uint32(ds.Dims[0]), ds.Dims[1]

	for _, a := range []struct {
		name string
		dst  *float32
	}{
		{attrSampleRate, &st.sampleRate},
		{attrGain, &st.gain},
		{attrOffset, &st.offset},
	} {
		v, err := requireFloat(h, a.name)
		if err != nil {
			return err
		}
		*a.dst = float32(v)
	}
	bs, err := requireUint(h, attrBlockSize)
	if err != nil {
		return err
	}
	if bs != chunks.BlockSize {
		return corrupt("block size %d, chunks hold %d samples", bs, chunks.BlockSize)
	}
	st.blockSize = uint32(bs)

	st.date = f.optionalString(h, attrDate)
	st.room = f.optionalString(h, attrRoom)
	st.array = f.optionalString(h, attrArray)
	st.analogOutputSize = f.optionalUint(h, attrAnalogOutputSize)
	st.means = f.optionalFloats(h, attrChannelMeans)
	return nil
}

// Close releases the handle. A writable handle first rewrites its
// attributes, clears the write-open flag and syncs. Closing twice is a no-op.
func (f *DataFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.writable {
		if err := f.closeWritable(); err != nil {
			f.file.Close()
			return err
		}
	}
	return f.file.Close()
}

// Path returns the file path.
func (f *DataFile) Path() string { return f.path }

// NumChannels returns the fixed channel count.
func (f *DataFile) NumChannels() uint32 { return f.nchannels }

// NumSamples returns the committed extent along the sample axis.
func (f *DataFile) NumSamples() uint64 { return f.nsamples }

// DatasetSize returns the allocated extent along the sample axis, always a
// multiple of BlockSize.
func (f *DataFile) DatasetSize() uint64 { return f.chunks.Samples() }

// BlockSize returns the number of samples per chunk.
func (f *DataFile) BlockSize() uint32 { return f.blockSize }

// SampleRate returns the sampling frequency in Hz.
func (f *DataFile) SampleRate() float32 { return f.sampleRate }

// Gain returns the factor applied to raw codes by physical reads.
func (f *DataFile) Gain() float32 { return f.gain }

// Offset returns the constant added to scaled codes by physical reads.
func (f *DataFile) Offset() float32 { return f.offset }

// Date returns the recording date in DateFormat, or "".
func (f *DataFile) Date() string { return f.date }

// Room returns where the recording was made.
func (f *DataFile) Room() string { return f.room }

// Array returns the electrode array type.
func (f *DataFile) Array() string { return f.array }

// SampleType returns the stored sample type.
func (f *DataFile) SampleType() SampleType { return f.sampleType }

// UUID returns the identifier assigned at creation.
func (f *DataFile) UUID() string { return f.uuid }

// Writable reports whether the handle may modify the recording.
func (f *DataFile) Writable() bool { return f.writable }

// Length returns the committed duration in seconds.
func (f *DataFile) Length() float64 {
	if f.sampleRate == 0 {
		return 0
	}
	return float64(f.nsamples) / float64(f.sampleRate)
}

// AnalogOutputSize returns the number of samples of the analog output
// channel, or 0.
func (f *DataFile) AnalogOutputSize() uint64 { return f.analogOutputSize }

// Means returns the stored per-channel means, or nil if none were stored.
func (f *DataFile) Means() []float64 {
	if f.means == nil {
		return nil
	}
	return append([]float64(nil), f.means...)
}

// HasConfiguration reports whether the recording carries an electrode
// configuration sidecar.
func (f *DataFile) HasConfiguration() bool {
	return f.configuration ||
		strings.HasPrefix(strings.ToLower(f.array), hidensPrefix) ||
		f.root.hdr.Link(configurationName) != nil
}

func (f *DataFile) checkOpen() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *DataFile) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	return nil
}
