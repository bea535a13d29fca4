// Package filter implements the filter pipeline applied to contiguous
// arrays such as the electrode configuration.
//
// Filters run in pipeline order when writing and in reverse order when
// reading:
//
//   - Shuffle (ID 2): byte shuffling via [Shuffle]. Groups byte 0 of every
//     element, then byte 1, and so on, which makes small integer arrays
//     compress much better.
//
//   - Deflate (ID 1): zlib compression via [Deflate], backed by
//     github.com/klauspost/compress/zlib.
//
//   - Fletcher32 (ID 3): integrity check via [Fletcher32Filter]. A 32-bit
//     Fletcher checksum is appended on write and verified on read.
//
// A [Pipeline] is built from a message.FilterPipeline (read path) or from
// filters directly (write path, [Standard]); [Pipeline.Message] produces the
// header message that is stored next to the data.
package filter
