// Package dtype maps Go numeric types to datatype messages and converts
// stored element bytes to Go values.
//
// Sample chunks and attribute values are stored little-endian with the
// element width recorded in a [message.Datatype]. Typed access goes through
// the generic helpers ([Of], [Encode], [DecodeInto]); physical-unit reads
// use [ToFloat64], which widens any numeric datatype to float64 without
// knowing the sample type at compile time.
package dtype
