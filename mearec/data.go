package mearec

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AnalogOutputChannel is the channel that carries the stimulator output.
const AnalogOutputChannel = 1

// toPhysical converts stored codes to raw*gain + offset.
func (f *DataFile) toPhysical(raw []byte, dst []float64) error {
	if err := dtype.ToFloat64(f.sampleType.datatype(), raw, dst); err != nil {
		return err
	}
	floats.Scale(float64(f.gain), dst)
	floats.AddConst(float64(f.offset), dst)
	return nil
}

// Data returns a window in physical units, one row per channel.
func (f *DataFile) Data(channels, samples Range) (*mat.Dense, error) {
	raw, err := f.readRaw(channels, samples)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, channels.Len()*samples.Len())
	if err := f.toPhysical(raw, vals); err != nil {
		return nil, err
	}
	return mat.NewDense(int(channels.Len()), int(samples.Len()), vals), nil
}

// Channel returns one channel in physical units.
func (f *DataFile) Channel(c uint32, samples Range) ([]float64, error) {
	d, err := f.Data(Span(uint64(c), 1), samples)
	if err != nil {
		return nil, err
	}
	return d.RawRowView(0), nil
}

// DataChannels returns an arbitrary selection of channels in physical
// units; row i holds channels[i]. Every channel is validated before any
// sample is read.
func (f *DataFile) DataChannels(channels []uint32, samples Range) (*mat.Dense, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels selected", ErrRange)
	}
	for _, c := range channels {
		if err := f.checkRead(Span(uint64(c), 1), samples); err != nil {
			return nil, err
		}
	}
	out := mat.NewDense(len(channels), int(samples.Len()), nil)
	for i, c := range channels {
		raw, err := f.readRaw(Span(uint64(c), 1), samples)
		if err != nil {
			return nil, err
		}
		if err := f.toPhysical(raw, out.RawRowView(i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AnalogOutput returns the analog output channel over
// [0, AnalogOutputSize), or nil when there is none.
func (f *DataFile) AnalogOutput() ([]float64, error) {
	if f.analogOutputSize == 0 {
		return nil, nil
	}
	return f.Channel(AnalogOutputChannel, Span(0, f.analogOutputSize))
}

// ComputeMeans stores the mean of every channel over samples and returns
// them.
func (f *DataFile) ComputeMeans(samples Range) ([]float64, error) {
	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	d, err := f.Data(Span(0, uint64(f.nchannels)), samples)
	if err != nil {
		return nil, err
	}
	means := make([]float64, f.nchannels)
	for i := range means {
		means[i] = stat.Mean(d.RawRowView(i), nil)
	}
	if err := f.SetMeans(means); err != nil {
		return nil, err
	}
	return means, nil
}
