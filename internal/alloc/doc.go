// Package alloc provides space allocation for recording file writing.
//
// Object headers, chunk index blocks, sample chunks and sidecar arrays are
// placed at file offsets handed out by an [Allocator]. Allocation is
// append-only and 8-byte aligned:
//
//	a := alloc.New(superblock.Size)
//	idx := a.AllocTagged(indexSize, "chunk-index")
//	chunk := a.AllocTagged(chunkSize, "chunk")
//
// Space is never freed. A relocated structure leaves its old copy intact,
// which is what lets a reader that resolved the old address finish its read
// without locking. A multi-step operation that fails part way gives its
// space back with [Allocator.Mark] and [Allocator.Rollback].
package alloc
