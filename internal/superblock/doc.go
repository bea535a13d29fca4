// Package superblock handles the fixed-size superblock at offset 0 of a
// recording file.
//
// The superblock is the entry point of the container. It identifies the file
// as a recording, records the address of the root object header and the
// logical end of file, and carries a consistency flag that is set while a
// writable handle has the file open.
//
// # Layout
//
//	0   signature   0x89 'M' 'E' 'A' '\r' '\n' 0x1a '\n'
//	8   version     1
//	9   offset size 8
//	10  length size 8
//	11  flags       bit 0: open for writing
//	12  EOF address
//	20  root object header address
//	28  checksum of bytes [0, 28)
//
// The whole structure is rewritten with a single positioned write when the
// root header relocates, so a concurrent reader sees either the old or the
// new superblock, or a checksum mismatch it can retry.
//
// # Errors
//
//   - [ErrNotRecording]: the file does not start with the signature
//   - [ErrUnsupportedVersion]: the version byte is unknown
//   - [ErrChecksum]: the stored checksum does not match
package superblock
