package object

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/stretchr/testify/require"
)

func f32Attr(name string, raw []byte) *message.Attribute {
	return &message.Attribute{
		Name:      name,
		Datatype:  &message.Datatype{Class: message.ClassFloatPoint, Size: 4},
		Dataspace: message.Scalar(),
		Data:      raw,
	}
}

func datasetHeader() *Header {
	return New([]message.Message{
		&message.Dataspace{Dims: []uint64{64, 0}, MaxDims: []uint64{64, message.Unlimited}},
		&message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true},
		&message.Layout{Class: message.LayoutChunked, ChunkDims: []uint32{64, 20000}, ElementSize: 2, IndexAddress: 64, IndexCapacity: 8, NumChunks: 1},
		f32Attr("gain", []byte{0, 0, 0x80, 0x3f}),
	})
}

func TestWriteReadHeader(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "h.bin"))
	require.NoError(t, err)
	defer f.Close()

	h := datasetHeader()
	h.Address = 128
	require.GreaterOrEqual(t, h.Capacity, uint32(MinCapacity))
	require.NoError(t, h.Write(binary.NewWriter(f)))

	got, err := Read(f, 128)
	require.NoError(t, err)
	require.Equal(t, h.Capacity, got.Capacity)
	require.Equal(t, h.Messages, got.Messages)
	require.Equal(t, []uint64{64, 0}, got.Dataspace().Dims)
	require.Equal(t, uint32(2), got.Datatype().Size)
	require.Equal(t, uint64(1), got.Layout().NumChunks)
	require.NotNil(t, got.Attribute("gain"))
	require.Nil(t, got.Attribute("offset"))
	require.Nil(t, got.FilterPipeline())
}

func TestRewriteInPlace(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "h.bin"))
	require.NoError(t, err)
	defer f.Close()
	w := binary.NewWriter(f)

	h := datasetHeader()
	h.Address = 32
	require.NoError(t, h.Write(w))

	c := h.Clone()
	space := c.Dataspace().Clone()
	space.Dims[1] = 25000
	c.Replace(space)
	c.SetAttribute(f32Attr("gain", []byte{0, 0, 0, 0x40}))
	c.SetAttribute(f32Attr("offset", []byte{0, 0, 0, 0}))
	require.True(t, c.Fits())
	require.NoError(t, c.Write(w))

	// the original header value is untouched by edits to the clone
	require.Equal(t, uint64(0), h.Dataspace().Dims[1])

	got, err := Read(f, 32)
	require.NoError(t, err)
	require.Equal(t, uint64(25000), got.Dataspace().Dims[1])
	require.Len(t, got.Attributes(), 2)
	require.Equal(t, []byte{0, 0, 0, 0x40}, got.Attribute("gain").Data)
}

func TestEncodeOverflow(t *testing.T) {
	h := New([]message.Message{&message.Link{Name: "data", Address: 1}})
	require.Equal(t, uint32(MinCapacity), h.Capacity)

	h.SetLink(&message.Link{Name: strings.Repeat("x", 400), Address: 2})
	require.False(t, h.Fits())
	_, err := h.Encode()
	require.ErrorIs(t, err, ErrOverflow)

	h.Capacity = GrowCapacity(h.Capacity, h.MessagesSize())
	require.Equal(t, uint32(2*MinCapacity), h.Capacity)
	_, err = h.Encode()
	require.NoError(t, err)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 64)), 0)
	require.ErrorIs(t, err, ErrInvalidHeader)
}

// tornReader serves a corrupted copy of the data for the first n reads.
type tornReader struct {
	good, torn []byte
	n          int
}

func (r *tornReader) ReadAt(p []byte, off int64) (int, error) {
	src := r.good
	if r.n > 0 {
		src = r.torn
		r.n--
	}
	return bytes.NewReader(src).ReadAt(p, off)
}

func TestReadRetryRecoversFromTornRead(t *testing.T) {
	h := datasetHeader()
	good, err := h.Encode()
	require.NoError(t, err)
	torn := append([]byte(nil), good...)
	torn[prefixSize+8] ^= 0xff

	// each Read issues two ReadAt calls; tear the first attempt only
	r := &tornReader{good: good, torn: torn, n: 2}
	retries := 0
	got, err := ReadRetry(r, 0, Retry{Attempts: 3, OnRetry: func(uint64, int) { retries++ }})
	require.NoError(t, err)
	require.Equal(t, 1, retries)
	require.Equal(t, h.Messages, got.Messages)

	r = &tornReader{good: good, torn: torn, n: 100}
	_, err = ReadRetry(r, 0, Retry{Attempts: 3})
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
