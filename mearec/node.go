package mearec

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/robert-malhotra/go-mearec/internal/object"
)

// node is an object header reachable from the root group. name is the link
// name in the root; the root itself has an empty name.
type node struct {
	name string
	hdr  *object.Header
}

func (n *node) isRoot() bool { return n.name == "" }

// commit makes h the new content of n. A header that still fits its block
// is rewritten in place with a single write; otherwise it moves to a larger
// block and the root link (or the superblock, for the root) is updated,
// which is then the commit point.
func (f *DataFile) commit(n *node, h *object.Header) error {
	h.Address, h.Capacity = n.hdr.Address, n.hdr.Capacity
	if h.Fits() {
		if err := h.Write(binary.NewWriter(f.file)); err != nil {
			return fmt.Errorf("rewriting %s header: %w", n, err)
		}
		n.hdr = h
		return nil
	}
	return f.relocate(n, h)
}

func (f *DataFile) relocate(n *node, h *object.Header) error {
	m := f.alloc.Mark()
	h.Capacity = object.GrowCapacity(n.hdr.Capacity, h.MessagesSize())
	if h.Capacity > object.MaxCapacity {
		return fmt.Errorf("%s header: %w", n, object.ErrOverflow)
	}
	h.Address = f.alloc.AllocTagged(h.TotalSize(), "header")
	if err := h.Write(binary.NewWriter(f.file)); err != nil {
		f.alloc.Rollback(m)
		return fmt.Errorf("relocating %s header: %w", n, err)
	}

	if n.isRoot() {
		sb := *f.sb
		sb.RootAddress = h.Address
		sb.EOFAddress = f.alloc.EOFAddr()
		if err := sb.Write(binary.NewWriter(f.file)); err != nil {
			f.alloc.Rollback(m)
			return fmt.Errorf("repointing root: %w", err)
		}
		f.sb = &sb
	} else {
		root := f.root.hdr.Clone()
		root.SetLink(&message.Link{Name: n.name, Address: h.Address})
		if err := f.commit(f.root, root); err != nil {
			f.alloc.Rollback(m)
			return err
		}
	}

	f.log.Debugw("relocated object header", "object", n.String(), "address", h.Address, "capacity", h.Capacity)
	headerRelocations.Inc()
	n.hdr = h
	return nil
}

func (n *node) String() string {
	if n.isRoot() {
		return "root"
	}
	return n.name
}

func (f *DataFile) readHeader(addr uint64) (*object.Header, error) {
	return object.ReadRetry(f.file, addr, f.retry)
}

// child reads the header linked from the root under name. It returns nil
// when no such link exists.
func (f *DataFile) child(root *object.Header, name string) (*node, error) {
	l := root.Link(name)
	if l == nil {
		return nil, nil
	}
	h, err := f.readHeader(l.Address)
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", name, err)
	}
	return &node{name: name, hdr: h}, nil
}
