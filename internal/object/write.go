package object

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// MinCapacity is the smallest message area allocated for a header.
const MinCapacity = 256

// New returns an unplaced header for msgs with room to grow: the capacity
// is at least twice the encoded message size.
func New(msgs []message.Message) *Header {
	h := &Header{Messages: msgs}
	h.Capacity = GrowCapacity(0, 2*h.MessagesSize())
	return h
}

// GrowCapacity returns the smallest capacity, doubling from current (or
// MinCapacity), that holds need bytes of messages.
func GrowCapacity(current uint32, need int) uint32 {
	c := current
	if c < MinCapacity {
		c = MinCapacity
	}
	for int(c) < need {
		c *= 2
	}
	return c
}

// MessagesSize returns the encoded size of the message area contents.
func (h *Header) MessagesSize() int {
	n := 0
	for _, m := range h.Messages {
		n += msgPrefix + len(message.Encode(m))
	}
	return n
}

// TotalSize returns the on-disk size of the header, including padding and
// checksum.
func (h *Header) TotalSize() uint64 {
	return uint64(prefixSize) + uint64(h.Capacity) + checksumSize
}

// Fits reports whether the messages fit the current capacity.
func (h *Header) Fits() bool {
	return h.MessagesSize() <= int(h.Capacity)
}

// Encode serializes the header into a buffer of TotalSize bytes.
func (h *Header) Encode() ([]byte, error) {
	if len(h.Messages) > 0xffff {
		return nil, fmt.Errorf("%w: %d messages", ErrOverflow, len(h.Messages))
	}
	buf := binary.NewBuffer(int(h.TotalSize()))
	buf.PutBytes(Signature)
	buf.PutUint8(Version)
	buf.PutUint8(0)
	buf.PutUint16(uint16(len(h.Messages)))
	buf.PutUint32(h.Capacity)

	for _, m := range h.Messages {
		body := message.Encode(m)
		if len(body) > 0xffff {
			return nil, fmt.Errorf("%w: %s message of %d bytes", ErrOverflow, m.Type(), len(body))
		}
		buf.PutUint8(uint8(m.Type()))
		buf.PutUint8(0)
		buf.PutUint16(uint16(len(body)))
		buf.PutBytes(body)
	}

	used := buf.Len() - prefixSize
	if used > int(h.Capacity) {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrOverflow, used, h.Capacity)
	}
	buf.Pad(int(h.Capacity) - used)
	buf.PutUint32(binary.Checksum(buf.Bytes()))
	return buf.Bytes(), nil
}

// Write encodes the header and writes it at h.Address with a single
// positioned write.
func (h *Header) Write(w *binary.Writer) error {
	data, err := h.Encode()
	if err != nil {
		return err
	}
	return w.At(int64(h.Address)).WriteBytes(data)
}
