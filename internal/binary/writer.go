package binary

import (
	"io"
)

// Writer writes bytes to an io.WriterAt at an independent position.
type Writer struct {
	w   io.WriterAt
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w}
}

// At returns a new writer positioned at the given offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes data at the current position with a single WriteAt.
// Callers that need a structure to appear atomically to concurrent readers
// encode it into a Buffer first and emit it through one WriteBytes call.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	return err
}

// Buffer is an append-only encode buffer. Structures are assembled here,
// checksummed, then written out in one piece.
type Buffer struct {
	b []byte
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{b: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes.
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the number of encoded bytes.
func (b *Buffer) Len() int { return len(b.b) }

// PutBytes appends raw bytes.
func (b *Buffer) PutBytes(p []byte) { b.b = append(b.b, p...) }

// PutUint8 appends an unsigned 8-bit integer.
func (b *Buffer) PutUint8(v uint8) { b.b = append(b.b, v) }

// PutUint16 appends an unsigned 16-bit integer.
func (b *Buffer) PutUint16(v uint16) { b.b = order.AppendUint16(b.b, v) }

// PutUint32 appends an unsigned 32-bit integer.
func (b *Buffer) PutUint32(v uint32) { b.b = order.AppendUint32(b.b, v) }

// PutUint64 appends an unsigned 64-bit integer.
func (b *Buffer) PutUint64(v uint64) { b.b = order.AppendUint64(b.b, v) }

// PutOffset appends a file address.
func (b *Buffer) PutOffset(v uint64) { b.PutUint64(v) }

// PutString appends a u16 length-prefixed string.
func (b *Buffer) PutString(s string) {
	b.PutUint16(uint16(len(s)))
	b.b = append(b.b, s...)
}

// Pad appends n zero bytes.
func (b *Buffer) Pad(n int) {
	for i := 0; i < n; i++ {
		b.b = append(b.b, 0)
	}
}
