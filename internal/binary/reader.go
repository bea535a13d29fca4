// Package binary provides the low-level little-endian I/O used by the
// recording container: positioned readers over io.ReaderAt, positioned
// writers over io.WriterAt, in-memory encode buffers and metadata checksums.
package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrShortBuffer is returned when a decode runs past the end of its input.
var ErrShortBuffer = errors.New("binary: short buffer")

// Undefined is the all-ones sentinel for an unset file address.
const Undefined = math.MaxUint64

// OffsetSize is the width in bytes of every file address and length.
const OffsetSize = 8

var order = binary.LittleEndian

// Reader reads little-endian values from an io.ReaderAt, advancing an
// independent position.
type Reader struct {
	r   io.ReaderAt
	pos int64
}

// NewReader creates a reader positioned at offset 0.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// NewBytesReader creates a reader over an in-memory buffer.
func NewBytesReader(b []byte) *Reader {
	return &Reader{r: bytes.NewReader(b)}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFull fills buf from the current position.
func (r *Reader) ReadFull(buf []byte) error {
	n, err := r.r.ReadAt(buf, r.pos)
	if n == len(buf) {
		r.pos += int64(n)
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	var buf [1]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return order.Uint16(buf[:]), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return order.Uint32(buf[:]), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return order.Uint64(buf[:]), nil
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUint64()
}

// ReadString reads a u16 length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Uint16 decodes a little-endian u16 from b.
func Uint16(b []byte) uint16 { return order.Uint16(b) }

// Uint32 decodes a little-endian u32 from b.
func Uint32(b []byte) uint32 { return order.Uint32(b) }

// Uint64 decodes a little-endian u64 from b.
func Uint64(b []byte) uint64 { return order.Uint64(b) }

// PutUint16 encodes v into b.
func PutUint16(b []byte, v uint16) { order.PutUint16(b, v) }

// PutUint32 encodes v into b.
func PutUint32(b []byte, v uint32) { order.PutUint32(b, v) }

// PutUint64 encodes v into b.
func PutUint64(b []byte, v uint64) { order.PutUint64(b, v) }
