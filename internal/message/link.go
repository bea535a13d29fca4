package message

import (
	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Link is a named reference from a group to another object header.
type Link struct {
	Name    string
	Address uint64
}

func (*Link) Type() Type { return TypeLink }

func (l *Link) Encode(b *binary.Buffer) {
	b.PutString(l.Name)
	b.PutOffset(l.Address)
}

func decodeLink(r *binary.Reader) (*Link, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	addr, err := r.ReadOffset()
	if err != nil {
		return nil, err
	}
	return &Link{Name: name, Address: addr}, nil
}
