package mearec

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robert-malhotra/go-mearec/internal/alloc"
	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/layout"
	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/robert-malhotra/go-mearec/internal/object"
	"github.com/robert-malhotra/go-mearec/internal/superblock"
)

// Create creates a new live recording at path, truncating any existing
// file. The dataset starts with one block of allocated samples and none
// committed.
func Create(path string, opts ...Option) (*DataFile, error) {
	o := newOptions(opts)
	if o.channels == 0 || o.blockSize == 0 {
		return nil, fmt.Errorf("creating recording: %d channels with block size %d", o.channels, o.blockSize)
	}
	if o.sampleRate <= 0 {
		return nil, fmt.Errorf("creating recording: sample rate %v", o.sampleRate)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	f := newDataFile(path, file, true, o)
	if err := f.create(o); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	f.log.Infow("created recording",
		"channels", f.nchannels, "block-size", f.blockSize, "sample-rate", f.sampleRate, "sample-type", f.sampleType.String())
	return f, nil
}

// create lays out a new file. The superblock is written last, so a crash
// leaves a file that does not open as a recording.
func (f *DataFile) create(o *options) error {
	f.alloc = alloc.New(superblock.Size)
	chunks, err := layout.Create(f.file, f.alloc, uint64(o.channels), uint64(o.blockSize), uint64(o.sampleType.Size()), 1)
	if err != nil {
		return err
	}

	st := &state{
		chunks:     chunks,
		sampleType: o.sampleType,
		nchannels:  o.channels,
		live:       true,
		sampleRate: o.sampleRate,
		gain:       o.gain,
		offset:     o.offset,
		blockSize:  o.blockSize,
		date:       o.date,
		room:       o.room,
		array:      o.array,
		uuid:       uuid.NewString(),
	}
	if st.date == "" {
		st.date = time.Now().Format(DateFormat)
	}

	w := binary.NewWriter(f.file)
	dataHdr := object.New(st.datasetMessages())
	dataHdr.Address = f.alloc.AllocTagged(dataHdr.TotalSize(), "header")
	if err := dataHdr.Write(w); err != nil {
		return fmt.Errorf("writing dataset header: %w", err)
	}
	rootHdr := object.New(st.rootMessages(dataHdr.Address))
	rootHdr.Address = f.alloc.AllocTagged(rootHdr.TotalSize(), "header")
	if err := rootHdr.Write(w); err != nil {
		return fmt.Errorf("writing root header: %w", err)
	}
	st.data = &node{name: dataName, hdr: dataHdr}
	st.root = &node{hdr: rootHdr}
	f.state = st

	if err := f.writeSuperblock(superblock.New(rootHdr.Address, f.alloc.EOFAddr())); err != nil {
		return err
	}
	return f.file.Sync()
}

func attr(name string, v Value) *message.Attribute {
	a, err := v.attribute(name)
	if err != nil {
		panic(err)
	}
	return a
}

func (st *state) datasetMessages() []message.Message {
	msgs := []message.Message{
		&message.Dataspace{
			Dims:    []uint64{uint64(st.nchannels), st.nsamples},
			MaxDims: []uint64{uint64(st.nchannels), message.Unlimited},
		},
		st.sampleType.datatype(),
		st.chunks.Layout(),
	}
	for _, a := range st.datasetAttributes() {
		msgs = append(msgs, a)
	}
	return msgs
}

func (st *state) datasetAttributes() []*message.Attribute {
	attrs := []*message.Attribute{
		attr(attrSampleRate, Float32(st.sampleRate)),
		attr(attrGain, Float32(st.gain)),
		attr(attrOffset, Float32(st.offset)),
		attr(attrBlockSize, Uint32(st.blockSize)),
		attr(attrDate, String(st.date)),
		attr(attrRoom, String(st.room)),
		attr(attrArray, String(st.array)),
	}
	if st.analogOutputSize > 0 {
		attrs = append(attrs, attr(attrAnalogOutputSize, Uint64(st.analogOutputSize)))
	}
	if st.means != nil {
		attrs = append(attrs, attr(attrChannelMeans, Float64s(st.means)))
	}
	return attrs
}

func (st *state) rootMessages(dataAddr uint64) []message.Message {
	msgs := []message.Message{}
	for _, a := range st.rootAttributes() {
		msgs = append(msgs, a)
	}
	return append(msgs, &message.Link{Name: dataName, Address: dataAddr})
}

func (st *state) rootAttributes() []*message.Attribute {
	live := uint8(0)
	if st.live {
		live = 1
	}
	return []*message.Attribute{
		attr(attrLive, Uint8(live)),
		attr(attrLastValidSample, Uint64(st.lastValid)),
		attr(attrUUID, String(st.uuid)),
	}
}

// Flush records the current end of file in the superblock and syncs the
// file. It is a no-op for read-only handles.
func (f *DataFile) Flush() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if !f.writable {
		return nil
	}
	sb := *f.sb
	sb.EOFAddress = f.alloc.EOFAddr()
	if err := f.writeSuperblock(&sb); err != nil {
		return err
	}
	st := f.alloc.Stats()
	f.log.Debugw("flushed",
		"eof", sb.EOFAddress,
		"allocations", st.TotalAllocations,
		"allocated-bytes", st.TotalBytesAlloc)
	return f.file.Sync()
}

func (f *DataFile) writeSuperblock(sb *superblock.Superblock) error {
	if err := sb.Write(binary.NewWriter(f.file)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	f.sb = sb
	return nil
}

// closeWritable writes every cached attribute back, then clears the
// write-open flag.
func (f *DataFile) closeWritable() error {
	data := f.data.hdr.Clone()
	for _, a := range f.datasetAttributes() {
		data.SetAttribute(a)
	}
	if err := f.commit(f.data, data); err != nil {
		return err
	}
	root := f.root.hdr.Clone()
	for _, a := range f.rootAttributes() {
		root.SetAttribute(a)
	}
	if err := f.commit(f.root, root); err != nil {
		return err
	}

	sb := *f.sb
	sb.Flags &^= superblock.FlagWriteOpen
	sb.EOFAddress = f.alloc.EOFAddr()
	if err := f.writeSuperblock(&sb); err != nil {
		return err
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing recording: %w", err)
	}
	f.log.Infow("closed recording", "samples", f.nsamples, "last-valid-sample", f.lastValid, "live", f.live)
	return nil
}

func (f *DataFile) setAttr(n *node, name string, v Value) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	a, err := v.attribute(name)
	if err != nil {
		return err
	}
	h := n.hdr.Clone()
	h.SetAttribute(a)
	if err := f.commit(n, h); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	return nil
}

// setOptional writes an optional dataset attribute. I/O failures are logged
// and dropped; it reports whether the value was stored.
func (f *DataFile) setOptional(name string, v Value) (bool, error) {
	err := f.setAttr(f.data, name, v)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrReadOnly), errors.Is(err, ErrClosed):
		return false, err
	}
	f.log.Warnw("dropping optional attribute", "attribute", name, "error", fmt.Errorf("%w: %w", ErrAttributeAccess, err))
	return false, nil
}

// SetSampleRate stores the sampling frequency in Hz, which must be positive.
func (f *DataFile) SetSampleRate(hz float32) error {
	if hz <= 0 {
		return fmt.Errorf("sample rate %v is not positive", hz)
	}
	if err := f.setAttr(f.data, attrSampleRate, Float32(hz)); err != nil {
		return err
	}
	f.sampleRate = hz
	return nil
}

// SetGain stores the gain used by physical reads.
func (f *DataFile) SetGain(g float32) error {
	if err := f.setAttr(f.data, attrGain, Float32(g)); err != nil {
		return err
	}
	f.gain = g
	return nil
}

// SetOffset stores the offset used by physical reads.
func (f *DataFile) SetOffset(off float32) error {
	if err := f.setAttr(f.data, attrOffset, Float32(off)); err != nil {
		return err
	}
	f.offset = off
	return nil
}

// SetDate stores t formatted with DateFormat.
func (f *DataFile) SetDate(t time.Time) error {
	s := t.Format(DateFormat)
	ok, err := f.setOptional(attrDate, String(s))
	if ok {
		f.date = s
	}
	return err
}

// SetDateNow stores the current local time as the recording date.
func (f *DataFile) SetDateNow() error {
	return f.SetDate(time.Now())
}

// SetRoom stores where the recording was made.
func (f *DataFile) SetRoom(room string) error {
	ok, err := f.setOptional(attrRoom, String(room))
	if ok {
		f.room = room
	}
	return err
}

// SetArray stores the electrode array type. A HiDens array name enables
// the electrode configuration.
func (f *DataFile) SetArray(array string) error {
	ok, err := f.setOptional(attrArray, String(array))
	if ok {
		f.array = array
	}
	return err
}

// SetAnalogOutputSize stores how many samples of the analog output channel
// are valid.
func (f *DataFile) SetAnalogOutputSize(n uint64) error {
	ok, err := f.setOptional(attrAnalogOutputSize, Uint64(n))
	if ok {
		f.analogOutputSize = n
	}
	return err
}

// SetMeans stores one mean per channel.
func (f *DataFile) SetMeans(means []float64) error {
	if uint64(len(means)) != uint64(f.nchannels) {
		return &RangeError{Axis: "channel", Start: 0, End: uint64(len(means)), Limit: uint64(f.nchannels)}
	}
	ok, err := f.setOptional(attrChannelMeans, Float64s(means))
	if ok {
		f.means = append([]float64(nil), means...)
	}
	return err
}
