// Package message encodes and decodes object header messages.
//
// Object headers hold a sequence of messages that describe the object they
// belong to. Each message has a type, flags, and a type-specific body:
//
//   - Dataspace (0x01): dimensions and maximum dimensions. See [Dataspace].
//   - Link (0x06): a named reference to another object header. See [Link].
//   - Datatype (0x03): element class, size and signedness. See [Datatype].
//   - Data Layout (0x08): contiguous or chunked storage. See [Layout].
//   - Filter Pipeline (0x0B): ordered filters for stored bytes. See [FilterPipeline].
//   - Attribute (0x0C): a named, typed value. See [Attribute].
//
// Unrecognized message types decode to [Unknown] and are re-encoded
// unchanged, so a header rewrite never drops a message it does not
// understand.
//
// Every body is little-endian with 8-byte addresses. Message types that
// carry a Datatype or Dataspace embed the same encoding used by the
// stand-alone messages.
package message
