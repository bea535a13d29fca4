package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Pipeline applies an ordered list of filters.
type Pipeline struct {
	filters []Filter
}

// NewPipeline creates a filter pipeline from a FilterPipeline message.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return &Pipeline{}, nil
	}

	p := &Pipeline{
		filters: make([]Filter, 0, len(fp.Filters)),
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Of creates a pipeline from filters, applied in the given order on write.
func Of(filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters}
}

// Standard returns the shuffle, deflate, fletcher32 pipeline used for
// arrays of elemSize-byte elements.
func Standard(elemSize int) *Pipeline {
	return Of(
		NewShuffle([]uint32{uint32(elemSize)}),
		NewDeflate([]uint32{DefaultLevel}),
		NewFletcher32(nil),
	)
}

// Encode applies the filters in order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		data, err = f.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
	}
	return data, nil
}

// Decode applies the filters in reverse order.
func (p *Pipeline) Decode(input []byte) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Message returns the header message describing the pipeline.
func (p *Pipeline) Message() *message.FilterPipeline {
	fp := &message.FilterPipeline{}
	for _, f := range p.filters {
		fp.Filters = append(fp.Filters, message.FilterInfo{ID: f.ID(), ClientData: f.ClientData()})
	}
	return fp
}
