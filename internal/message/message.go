package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Type represents a header message type.
type Type uint8

// Header message types
const (
	TypeNIL            Type = 0x00
	TypeDataspace      Type = 0x01
	TypeDatatype       Type = 0x03
	TypeLink           Type = 0x06
	TypeDataLayout     Type = 0x08
	TypeFilterPipeline Type = 0x0B
	TypeAttribute      Type = 0x0C
)

func (t Type) String() string {
	switch t {
	case TypeNIL:
		return "nil"
	case TypeDataspace:
		return "dataspace"
	case TypeDatatype:
		return "datatype"
	case TypeLink:
		return "link"
	case TypeDataLayout:
		return "layout"
	case TypeFilterPipeline:
		return "filter-pipeline"
	case TypeAttribute:
		return "attribute"
	default:
		return fmt.Sprintf("type-0x%02x", uint8(t))
	}
}

// ErrMalformed is returned when a message body cannot be decoded.
var ErrMalformed = errors.New("malformed header message")

// Message is the interface implemented by all header messages.
type Message interface {
	Type() Type
	// Encode appends the message body to b.
	Encode(b *binary.Buffer)
}

// Parse decodes a message body of the given type.
func Parse(typ Type, data []byte) (Message, error) {
	r := binary.NewBytesReader(data)
	var (
		m   Message
		err error
	)
	switch typ {
	case TypeDataspace:
		m, err = decodeDataspace(r)
	case TypeDatatype:
		m, err = decodeDatatype(r)
	case TypeLink:
		m, err = decodeLink(r)
	case TypeDataLayout:
		m, err = decodeLayout(r)
	case TypeFilterPipeline:
		m, err = decodeFilterPipeline(r)
	case TypeAttribute:
		m, err = decodeAttribute(r)
	default:
		return &Unknown{typ: typ, data: append([]byte(nil), data...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	return m, nil
}

// Encode returns the encoded body of m.
func Encode(m Message) []byte {
	b := binary.NewBuffer(64)
	m.Encode(b)
	return b.Bytes()
}

// Unknown represents an unrecognized message type.
type Unknown struct {
	typ  Type
	data []byte
}

// Type returns the message type.
func (u *Unknown) Type() Type { return u.typ }

// Data returns the raw message body.
func (u *Unknown) Data() []byte { return u.data }

// Encode appends the body unchanged.
func (u *Unknown) Encode(b *binary.Buffer) { b.PutBytes(u.data) }
