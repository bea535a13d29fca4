package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-mearec/internal/binary"
)

// Signature identifies a recording file: 0x89 M E A \r \n 0x1a \n
var Signature = []byte{0x89, 'M', 'E', 'A', '\r', '\n', 0x1a, '\n'}

// Version is the only superblock version this package writes and reads.
const Version = 1

// Size is the encoded size of the superblock including its checksum.
const Size = 32

// FlagWriteOpen is set while a writable handle has the file open.
const FlagWriteOpen = 0x01

var (
	ErrNotRecording       = errors.New("not a recording file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// Superblock contains the file-level container metadata.
type Superblock struct {
	Version uint8

	// Flags holds consistency flags, see FlagWriteOpen
	Flags uint8

	// EOFAddress is the logical end of file recorded at the last flush
	EOFAddress uint64

	// RootAddress is the address of the root object header
	RootAddress uint64
}

// New returns a superblock for a freshly created file.
func New(root, eof uint64) *Superblock {
	return &Superblock{
		Version:     Version,
		Flags:       FlagWriteOpen,
		EOFAddress:  eof,
		RootAddress: root,
	}
}

// Read parses the superblock at offset 0.
func Read(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, Size)
	n, err := r.ReadAt(buf, 0)
	if n < len(Signature) || !bytes.Equal(buf[:len(Signature)], Signature) {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, ErrNotRecording
	}
	if n < Size {
		return nil, fmt.Errorf("%w: truncated superblock", ErrChecksum)
	}
	return Decode(buf)
}

// Decode parses an encoded superblock.
func Decode(buf []byte) (*Superblock, error) {
	if len(buf) < Size || !bytes.Equal(buf[:len(Signature)], Signature) {
		return nil, ErrNotRecording
	}
	if !binpkg.VerifyChecksum(buf[:Size-4], binpkg.Uint32(buf[Size-4:])) {
		return nil, ErrChecksum
	}

	sb := &Superblock{
		Version: buf[8],
		Flags:   buf[11],
	}
	if sb.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, sb.Version)
	}
	if buf[9] != binpkg.OffsetSize || buf[10] != binpkg.OffsetSize {
		return nil, fmt.Errorf("%w: offset size %d, length size %d", ErrUnsupportedVersion, buf[9], buf[10])
	}
	sb.EOFAddress = binpkg.Uint64(buf[12:20])
	sb.RootAddress = binpkg.Uint64(buf[20:28])
	return sb, nil
}

// WriteOpen reports whether the file was last left open by a writer.
func (sb *Superblock) WriteOpen() bool {
	return sb.Flags&FlagWriteOpen != 0
}
