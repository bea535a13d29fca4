package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Signature marks the start of an object header.
var Signature = []byte{'M', 'O', 'H', 'D'}

// Version is the object header format version.
const Version = 1

const (
	prefixSize   = 12
	checksumSize = 4
	msgPrefix    = 4

	// MaxCapacity bounds the message area of a header.
	MaxCapacity = 1 << 24
)

// Errors
var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
	ErrOverflow           = errors.New("object header messages exceed capacity")
)

// Header represents an object header.
//
// Messages are shared between a header and its clones; replace a message
// with a modified copy instead of mutating it.
type Header struct {
	// Address is the file address of the header
	Address uint64

	// Capacity is the size of the message area in bytes
	Capacity uint32

	Messages []message.Message
}

// Read parses the object header at the given address.
func Read(r io.ReaderAt, address uint64) (*Header, error) {
	br := binary.NewReader(r).At(int64(address))

	prefix, err := br.ReadBytes(prefixSize)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	if !bytes.Equal(prefix[:4], Signature) {
		return nil, fmt.Errorf("%w: bad signature at 0x%x", ErrInvalidHeader, address)
	}
	if prefix[4] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, prefix[4])
	}
	nmsgs := binary.Uint16(prefix[6:8])
	capacity := binary.Uint32(prefix[8:12])
	if capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d at 0x%x", ErrInvalidHeader, capacity, address)
	}

	body, err := br.ReadBytes(int(capacity) + checksumSize)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}

	raw := make([]byte, 0, prefixSize+int(capacity))
	raw = append(raw, prefix...)
	raw = append(raw, body[:capacity]...)
	if !binary.VerifyChecksum(raw, binary.Uint32(body[capacity:])) {
		return nil, fmt.Errorf("%w at 0x%x", ErrChecksumMismatch, address)
	}

	h := &Header{Address: address, Capacity: capacity}
	mr := binary.NewBytesReader(body[:capacity])
	for i := 0; i < int(nmsgs); i++ {
		typ, err := mr.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrInvalidHeader, i, err)
		}
		mr.Skip(1) // flags
		size, err := mr.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrInvalidHeader, i, err)
		}
		data, err := mr.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrInvalidHeader, i, err)
		}
		msg, err := message.Parse(message.Type(typ), data)
		if err != nil {
			return nil, err
		}
		h.Messages = append(h.Messages, msg)
	}
	return h, nil
}

// Retry controls how ReadRetry handles checksum mismatches.
type Retry struct {
	Attempts int
	Backoff  time.Duration

	// OnRetry, if set, is called before every repeated read.
	OnRetry func(addr uint64, attempt int)
}

// DefaultRetry is used by readers of files that may be rewritten
// concurrently.
var DefaultRetry = Retry{Attempts: 8, Backoff: time.Millisecond}

// ReadRetry reads a header, retrying when the checksum does not match.
// A mismatch that persists across all attempts is returned as is.
func ReadRetry(r io.ReaderAt, address uint64, policy Retry) (*Header, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if policy.OnRetry != nil {
				policy.OnRetry(address, i)
			}
			time.Sleep(policy.Backoff * time.Duration(i))
		}
		var h *Header
		h, err = Read(r, address)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, ErrChecksumMismatch) {
			return nil, err
		}
	}
	return nil, err
}

// Clone returns a copy whose message slice can be modified independently.
func (h *Header) Clone() *Header {
	c := *h
	c.Messages = append([]message.Message(nil), h.Messages...)
	return &c
}

// Find returns the first message of the given type, or nil.
func (h *Header) Find(t message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == t {
			return m
		}
	}
	return nil
}

// Replace swaps the first message of m's type for m, or appends m.
func (h *Header) Replace(m message.Message) {
	for i, old := range h.Messages {
		if old.Type() == m.Type() {
			h.Messages[i] = m
			return
		}
	}
	h.Messages = append(h.Messages, m)
}

// Dataspace returns the dataspace message, or nil.
func (h *Header) Dataspace() *message.Dataspace {
	ds, _ := h.Find(message.TypeDataspace).(*message.Dataspace)
	return ds
}

// Datatype returns the datatype message, or nil.
func (h *Header) Datatype() *message.Datatype {
	dt, _ := h.Find(message.TypeDatatype).(*message.Datatype)
	return dt
}

// Layout returns the data layout message, or nil.
func (h *Header) Layout() *message.Layout {
	l, _ := h.Find(message.TypeDataLayout).(*message.Layout)
	return l
}

// FilterPipeline returns the filter pipeline message, or nil.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	fp, _ := h.Find(message.TypeFilterPipeline).(*message.FilterPipeline)
	return fp
}

// Attributes returns all attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.Messages {
		if a, ok := m.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Attribute returns the named attribute, or nil.
func (h *Header) Attribute(name string) *message.Attribute {
	for _, m := range h.Messages {
		if a, ok := m.(*message.Attribute); ok && a.Name == name {
			return a
		}
	}
	return nil
}

// SetAttribute overwrites the attribute of the same name, or appends it.
func (h *Header) SetAttribute(a *message.Attribute) {
	for i, m := range h.Messages {
		if old, ok := m.(*message.Attribute); ok && old.Name == a.Name {
			h.Messages[i] = a
			return
		}
	}
	h.Messages = append(h.Messages, a)
}

// Link returns the named link, or nil.
func (h *Header) Link(name string) *message.Link {
	for _, m := range h.Messages {
		if l, ok := m.(*message.Link); ok && l.Name == name {
			return l
		}
	}
	return nil
}

// SetLink overwrites the link of the same name, or appends it.
func (h *Header) SetLink(l *message.Link) {
	for i, m := range h.Messages {
		if old, ok := m.(*message.Link); ok && old.Name == l.Name {
			h.Messages[i] = l
			return
		}
	}
	h.Messages = append(h.Messages, l)
}
