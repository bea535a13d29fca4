package mearec

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// SampleType is the integer type of the stored ADC codes.
type SampleType uint8

// Sample types
const (
	SampleInt16 SampleType = iota
	SampleInt8
	SampleInt32
	SampleUint8
)

func (t SampleType) String() string {
	switch t {
	case SampleInt8:
		return "int8"
	case SampleInt16:
		return "int16"
	case SampleInt32:
		return "int32"
	case SampleUint8:
		return "uint8"
	}
	return fmt.Sprintf("SampleType(%d)", uint8(t))
}

// Size is the width of one sample in bytes.
func (t SampleType) Size() int {
	switch t {
	case SampleInt8, SampleUint8:
		return 1
	case SampleInt32:
		return 4
	}
	return 2
}

// ParseSampleType parses the names produced by SampleType.String.
func ParseSampleType(s string) (SampleType, error) {
	for _, t := range []SampleType{SampleInt8, SampleInt16, SampleInt32, SampleUint8} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown sample type %q", s)
}

func (t SampleType) datatype() *message.Datatype {
	switch t {
	case SampleInt8:
		return dtype.Of[int8]()
	case SampleInt32:
		return dtype.Of[int32]()
	case SampleUint8:
		return dtype.Of[uint8]()
	}
	return dtype.Of[int16]()
}

func sampleTypeOf(dt *message.Datatype) (SampleType, bool) {
	for _, t := range []SampleType{SampleInt8, SampleInt16, SampleInt32, SampleUint8} {
		if dt.Equal(t.datatype()) {
			return t, true
		}
	}
	return 0, false
}

func sampleTypeFor[T dtype.Sample]() SampleType {
	t, _ := sampleTypeOf(dtype.Of[T]())
	return t
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start, End uint64
}

// Span returns a range of n elements starting at start.
func Span(start, n uint64) Range {
	return Range{Start: start, End: start + n}
}

// Len returns the number of elements in r.
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) check(axis string, limit uint64) error {
	if r.End <= r.Start || r.End > limit {
		return &RangeError{Axis: axis, Start: r.Start, End: r.End, Limit: limit}
	}
	return nil
}

// Block is a channel-major matrix of raw ADC codes: row c holds the samples
// of one channel.
type Block[T dtype.Sample] struct {
	Channels int
	Samples  int
	Data     []T
}

// NewBlock allocates a zeroed block.
func NewBlock[T dtype.Sample](channels, samples int) *Block[T] {
	return &Block[T]{
		Channels: channels,
		Samples:  samples,
		Data:     make([]T, channels*samples),
	}
}

// At returns channel c, sample s.
func (b *Block[T]) At(c, s int) T {
	return b.Data[c*b.Samples+s]
}

// Set stores v at channel c, sample s.
func (b *Block[T]) Set(c, s int, v T) {
	b.Data[c*b.Samples+s] = v
}

// Channel returns the row of channel c. It aliases the block's storage.
func (b *Block[T]) Channel(c int) []T {
	return b.Data[c*b.Samples : (c+1)*b.Samples]
}

func (b *Block[T]) valid() error {
	if b.Channels < 0 || b.Samples < 0 || len(b.Data) != b.Channels*b.Samples {
		return fmt.Errorf("block of %dx%d holds %d values", b.Channels, b.Samples, len(b.Data))
	}
	return nil
}
