package mearec

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/internal/filter"
	"github.com/robert-malhotra/go-mearec/internal/layout"
	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/robert-malhotra/go-mearec/internal/object"
)

// HiDens defaults
const (
	HidensChannels   = 126
	HidensSampleRate = 20000
	HidensArray      = "hidens-v2"

	hidensPrefix = "hidens"
)

// Unrouted is the channel of an electrode that is connected but not routed
// to a recording channel.
const Unrouted = -1

// Electrode is one physically connected electrode of a high-density array.
type Electrode struct {
	Index      uint32
	XPos, YPos uint32
	X, Y       uint16
	Label      byte
	Channel    int32
}

// Configuration lists the connected electrodes in routing order.
type Configuration []Electrode

// Sidecar array names
const (
	arrXPos     = "xpos"
	arrYPos     = "ypos"
	arrX        = "x"
	arrY        = "y"
	arrLabel    = "label"
	arrChannels = "channels"
	arrIndices  = "indices"
)

var errMissingArray = errors.New("missing array")

// CreateHidens creates a recording for a HiDens array: 126 channels at
// 20 kHz with 8-bit unsigned codes and an electrode configuration sidecar.
// opts may override any of these.
func CreateHidens(path string, opts ...Option) (*DataFile, error) {
	base := []Option{
		WithChannels(HidensChannels),
		WithSampleRate(HidensSampleRate),
		WithSampleType(SampleUint8),
		WithArray(HidensArray),
		WithConfiguration(),
	}
	return Create(path, append(base, opts...)...)
}

type sidecarArray struct {
	name string
	dt   *message.Datatype
	data []byte
}

func (c Configuration) arrays() []sidecarArray {
	n := len(c)
	xpos, ypos := make([]uint32, n), make([]uint32, n)
	x, y := make([]uint16, n), make([]uint16, n)
	labels := make([]byte, n)
	channels := make([]int32, n)
	indices := make([]uint32, n)
	for i, e := range c {
		xpos[i], ypos[i] = e.XPos, e.YPos
		x[i], y[i] = e.X, e.Y
		labels[i] = e.Label
		channels[i] = e.Channel
		indices[i] = e.Index
	}
	return []sidecarArray{
		{arrXPos, dtype.Of[uint32](), dtype.Encode(xpos)},
		{arrYPos, dtype.Of[uint32](), dtype.Encode(ypos)},
		{arrX, dtype.Of[uint16](), dtype.Encode(x)},
		{arrY, dtype.Of[uint16](), dtype.Encode(y)},
		{arrLabel, dtype.StringType(1), labels},
		{arrChannels, dtype.Of[int32](), dtype.Encode(channels)},
		{arrIndices, dtype.Of[uint32](), dtype.Encode(indices)},
	}
}

// SetConfiguration replaces the electrode configuration. The new arrays and
// group are written first; relinking the group from the root commits them,
// so readers see either the old or the new configuration.
func (f *DataFile) SetConfiguration(c Configuration) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	if !f.HasConfiguration() {
		return fmt.Errorf("%w: array %q", ErrNoConfiguration, f.array)
	}

	m := f.alloc.Mark()
	fail := func(err error) error {
		f.alloc.Rollback(m)
		return fmt.Errorf("writing configuration: %w", err)
	}

	w := binary.NewWriter(f.file)
	var links []message.Message
	for _, arr := range c.arrays() {
		p := filter.Standard(int(arr.dt.Size))
		enc, err := p.Encode(arr.data)
		if err != nil {
			return fail(err)
		}
		l, err := layout.WriteContiguous(f.file, f.alloc, enc, "configuration-"+arr.name)
		if err != nil {
			return fail(err)
		}
		h := object.New([]message.Message{message.Simple(uint64(len(c))), arr.dt, p.Message(), l})
		h.Address = f.alloc.AllocTagged(h.TotalSize(), "header")
		if err := h.Write(w); err != nil {
			return fail(err)
		}
		links = append(links, &message.Link{Name: arr.name, Address: h.Address})
	}

	group := object.New(links)
	group.Address = f.alloc.AllocTagged(group.TotalSize(), "header")
	if err := group.Write(w); err != nil {
		return fail(err)
	}
	root := f.root.hdr.Clone()
	root.SetLink(&message.Link{Name: configurationName, Address: group.Address})
	if err := f.commit(f.root, root); err != nil {
		return fail(err)
	}
	f.log.Infow("stored electrode configuration", "electrodes", len(c))
	return nil
}

// Configuration reads the electrode configuration. It returns
// ErrNoConfiguration when none was stored.
func (f *DataFile) Configuration() (Configuration, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	group, err := f.child(f.root.hdr, configurationName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecording, err)
	}
	if group == nil {
		return nil, ErrNoConfiguration
	}
	g := group.hdr

	xpos, err := readSidecar[uint32](f, g, arrXPos)
	if err != nil {
		return nil, err
	}
	ypos, err := readSidecar[uint32](f, g, arrYPos)
	if err != nil {
		return nil, err
	}
	x, err := readSidecar[uint16](f, g, arrX)
	if err != nil {
		return nil, err
	}
	y, err := readSidecar[uint16](f, g, arrY)
	if err != nil {
		return nil, err
	}
	channels, err := readSidecar[int32](f, g, arrChannels)
	if err != nil {
		return nil, err
	}
	dt, labels, err := f.readArray(g, arrLabel)
	if err != nil {
		return nil, err
	}
	if dt.Class != message.ClassString || dt.Size != 1 {
		return nil, corrupt("configuration %s has type %s", arrLabel, dt)
	}
	indices, err := readSidecar[uint32](f, g, arrIndices)
	if errors.Is(err, errMissingArray) {
		indices = nil
	} else if err != nil {
		return nil, err
	}

	n := len(xpos)
	for name, l := range map[string]int{
		arrYPos: len(ypos), arrX: len(x), arrY: len(y), arrLabel: len(labels), arrChannels: len(channels),
	} {
		if l != n {
			return nil, corrupt("configuration %s holds %d electrodes, %s holds %d", name, l, arrXPos, n)
		}
	}
	if indices != nil && len(indices) != n {
		return nil, corrupt("configuration %s holds %d electrodes, %s holds %d", arrIndices, len(indices), arrXPos, n)
	}

	c := make(Configuration, n)
	for i := range c {
		c[i] = Electrode{
			Index:   uint32(i),
			XPos:    xpos[i],
			YPos:    ypos[i],
			X:       x[i],
			Y:       y[i],
			Label:   labels[i],
			Channel: channels[i],
		}
		if indices != nil {
			c[i].Index = indices[i]
		}
	}
	return c, nil
}

func readSidecar[T dtype.Number](f *DataFile, group *object.Header, name string) ([]T, error) {
	dt, data, err := f.readArray(group, name)
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Decode[T](dt, data)
	if err != nil {
		return nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, err)
	}
	return vals, nil
}

// readArray reads and unfilters one configuration array.
func (f *DataFile) readArray(group *object.Header, name string) (*message.Datatype, []byte, error) {
	l := group.Link(name)
	if l == nil {
		return nil, nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, errMissingArray)
	}
	h, err := f.readHeader(l.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, err)
	}
	ds, dt, lay := h.Dataspace(), h.Datatype(), h.Layout()
	if ds == nil || dt == nil || lay == nil {
		return nil, nil, corrupt("configuration %s lacks dataspace, datatype or layout", name)
	}
	raw, err := layout.ReadContiguous(f.file, lay)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, err)
	}
	p, err := filter.NewPipeline(h.FilterPipeline())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, err)
	}
	data, err := p.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: configuration %s: %w", ErrCorruptRecording, name, err)
	}
	if want := ds.NumElements() * uint64(dt.Size); uint64(len(data)) != want {
		return nil, nil, corrupt("configuration %s holds %d bytes, want %d", name, len(data), want)
	}
	return dt, data, nil
}
