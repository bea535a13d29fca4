package superblock

import (
	binpkg "github.com/robert-malhotra/go-mearec/internal/binary"
)

// Encode serializes the superblock and appends its checksum.
func (sb *Superblock) Encode() []byte {
	buf := binpkg.NewBuffer(Size)
	buf.PutBytes(Signature)
	buf.PutUint8(Version)
	buf.PutUint8(binpkg.OffsetSize)
	buf.PutUint8(binpkg.OffsetSize)
	buf.PutUint8(sb.Flags)
	buf.PutOffset(sb.EOFAddress)
	buf.PutOffset(sb.RootAddress)
	buf.PutUint32(binpkg.Checksum(buf.Bytes()))
	return buf.Bytes()
}

// Write writes the superblock at offset 0 with a single positioned write.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	return w.At(0).WriteBytes(sb.Encode())
}
