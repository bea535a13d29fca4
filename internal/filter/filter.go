package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/message"
)

// ErrChecksum is returned when a Fletcher-32 check fails.
var ErrChecksum = errors.New("filter checksum mismatch")

// Filter is the interface implemented by all filters.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// ClientData returns the parameters stored with the filter.
	ClientData() []uint32

	// Encode transforms data to its stored form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms stored data back to its original form.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to filter constructors.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

// New creates a filter from a FilterInfo.
func New(info message.FilterInfo) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		return nil, fmt.Errorf("unsupported filter ID: %d", info.ID)
	}
	return constructor(info.ClientData), nil
}
