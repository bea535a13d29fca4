package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Attribute is a named value stored in an object header.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (*Attribute) Type() Type { return TypeAttribute }

func (a *Attribute) Encode(b *binary.Buffer) {
	b.PutString(a.Name)
	a.Datatype.Encode(b)
	a.Dataspace.Encode(b)
	b.PutUint32(uint32(len(a.Data)))
	b.PutBytes(a.Data)
}

func decodeAttribute(r *binary.Reader) (*Attribute, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	a := &Attribute{Name: name}
	if a.Datatype, err = decodeDatatype(r); err != nil {
		return nil, err
	}
	if a.Dataspace, err = decodeDataspace(r); err != nil {
		return nil, err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if a.Data, err = r.ReadBytes(int(n)); err != nil {
		return nil, err
	}
	if want := a.Dataspace.NumElements() * uint64(a.Datatype.Size); want != uint64(n) {
		return nil, fmt.Errorf("attribute %q: %d data bytes, want %d", name, n, want)
	}
	return a, nil
}
