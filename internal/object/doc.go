// Package object reads and writes object headers.
//
// Every object in a recording file (the root group, the sample dataset, the
// configuration group and its arrays) has an object header holding its
// metadata as a list of header messages.
//
// # Header Structure
//
//	0   signature "MOHD"
//	4   version   1
//	5   flags     reserved
//	6   message count (u16)
//	8   capacity of the message area in bytes (u32)
//	12  messages: type (u8), flags (u8), body size (u16), body
//	    zero padding up to capacity
//	    checksum of everything before it (u32)
//
// The message area has a fixed capacity so a header can be rewritten in
// place with one positioned write whenever its messages still fit. A header
// that outgrows its capacity is written to a new, larger block and the
// caller repoints whatever referenced it; see [GrowCapacity].
//
// # Concurrent Readers
//
// In-place rewrites are not atomic with respect to a reader in another
// process. A reader that catches a rewrite half way sees a checksum
// mismatch, and [ReadRetry] simply reads the header again.
//
// # Usage
//
//	h, err := object.Read(file, addr)
//	space := h.Dataspace()
//	gain := h.Attribute("gain")
package object
