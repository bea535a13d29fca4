// Package layout reads and writes dataset storage.
//
// Two layouts are used by recording files:
//
//   - Chunked ([Chunked]): the sample dataset. Every chunk holds all
//     channels for blockSize consecutive samples, channel-major, so channel
//     c, sample s of a chunk lives at element c*blockSize + s. A window of
//     (channel range x sample range) therefore touches one contiguous span
//     per chunk. Chunk addresses live in an append-only chunk index block.
//
//   - Contiguous ([ReadContiguous], [WriteContiguous]): small arrays such as
//     the electrode configuration, stored once through a filter pipeline.
//
// # Chunk Index
//
//	0   signature "MCKI"
//	4   version   1
//	5   reserved  (3 bytes)
//	8   capacity  (u64)
//	16  checksum of bytes [0, 16)
//	20  capacity chunk addresses (u64)
//
// Only the first NumChunks slots (recorded in the layout message) are
// meaningful. Slots are written before the layout message that commits them
// and are never rewritten afterwards. An index that runs out of slots is
// copied to a new block of twice the capacity.
//
// # Growth
//
// [Chunked.Grow] allocates zero-filled chunks and records them in the index
// but returns a new value instead of modifying the receiver. The caller
// publishes the new extent by rewriting the dataset header; until then
// readers keep using the old chunk count.
package layout
