package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Class is a datatype class.
type Class uint8

// Datatype classes
const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassString     Class = 3
)

func (c Class) String() string {
	switch c {
	case ClassFixedPoint:
		return "fixed"
	case ClassFloatPoint:
		return "float"
	case ClassString:
		return "string"
	default:
		return fmt.Sprintf("class-%d", uint8(c))
	}
}

// Datatype describes the element type of a dataset or attribute.
type Datatype struct {
	Class  Class
	Size   uint32
	Signed bool
}

func (*Datatype) Type() Type { return TypeDatatype }

func (dt *Datatype) String() string {
	switch dt.Class {
	case ClassFixedPoint:
		if dt.Signed {
			return fmt.Sprintf("int%d", dt.Size*8)
		}
		return fmt.Sprintf("uint%d", dt.Size*8)
	case ClassFloatPoint:
		return fmt.Sprintf("float%d", dt.Size*8)
	case ClassString:
		return fmt.Sprintf("string[%d]", dt.Size)
	}
	return dt.Class.String()
}

// Equal reports whether two datatypes describe the same element type.
func (dt *Datatype) Equal(o *Datatype) bool {
	return dt.Class == o.Class && dt.Size == o.Size && dt.Signed == o.Signed
}

func (dt *Datatype) Encode(b *binary.Buffer) {
	b.PutUint8(uint8(dt.Class))
	var flags uint8
	if dt.Signed {
		flags |= 0x01
	}
	b.PutUint8(flags)
	b.PutUint32(dt.Size)
}

func decodeDatatype(r *binary.Reader) (*Datatype, error) {
	class, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	dt := &Datatype{Class: Class(class), Size: size, Signed: flags&0x01 != 0}
	switch dt.Class {
	case ClassFixedPoint:
		if size != 1 && size != 2 && size != 4 && size != 8 {
			return nil, fmt.Errorf("integer size %d", size)
		}
	case ClassFloatPoint:
		if size != 4 && size != 8 {
			return nil, fmt.Errorf("float size %d", size)
		}
	case ClassString:
	default:
		return nil, fmt.Errorf("datatype class %d", class)
	}
	return dt, nil
}
