package mearec

import (
	"fmt"
	"strconv"

	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds
const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindFloat64s
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindFloat64s: "float64[]",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is an attribute value: a fixed-width scalar, a string or a vector
// of float64. The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	fs   []float64
}

// Constructors for each scalar kind.
func Int8(v int8) Value       { return Value{kind: KindInt8, i: int64(v)} }
func Int16(v int16) Value     { return Value{kind: KindInt16, i: int64(v)} }
func Int32(v int32) Value     { return Value{kind: KindInt32, i: int64(v)} }
func Int64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func Uint8(v uint8) Value     { return Value{kind: KindUint8, u: uint64(v)} }
func Uint16(v uint16) Value   { return Value{kind: KindUint16, u: uint64(v)} }
func Uint32(v uint32) Value   { return Value{kind: KindUint32, u: uint64(v)} }
func Uint64(v uint64) Value   { return Value{kind: KindUint64, u: v} }
func Float32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func String(v string) Value   { return Value{kind: KindString, s: v} }

// Float64s copies v into a vector value.
func Float64s(v []float64) Value {
	return Value{kind: KindFloat64s, fs: append([]float64(nil), v...)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns signed and unsigned integers as int64.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return int64(v.u), true
	}
	return 0, false
}

// AsUint returns non-negative integers as uint64.
func (v Value) AsUint() (uint64, bool) {
	switch v.kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.u, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		if v.i >= 0 {
			return uint64(v.i), true
		}
	}
	return 0, false
}

// AsFloat returns any numeric scalar as float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.f, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return float64(v.i), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return float64(v.u), true
	}
	return 0, false
}

// AsString returns the string value if v holds one.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsFloats returns a copy of the vector value if v holds one.
func (v Value) AsFloats() ([]float64, bool) {
	if v.kind != KindFloat64s {
		return nil, false
	}
	return append([]float64(nil), v.fs...), true
}

func (v Value) String() string {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(v.u, 10)
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindFloat64s:
		return fmt.Sprint(v.fs)
	}
	return "<invalid>"
}

func (v Value) attribute(name string) (*message.Attribute, error) {
	a := &message.Attribute{Name: name, Dataspace: message.Scalar()}
	switch v.kind {
	case KindInt8:
		a.Datatype, a.Data = dtype.Of[int8](), dtype.Encode([]int8{int8(v.i)})
	case KindInt16:
		a.Datatype, a.Data = dtype.Of[int16](), dtype.Encode([]int16{int16(v.i)})
	case KindInt32:
		a.Datatype, a.Data = dtype.Of[int32](), dtype.Encode([]int32{int32(v.i)})
	case KindInt64:
		a.Datatype, a.Data = dtype.Of[int64](), dtype.Encode([]int64{v.i})
	case KindUint8:
		a.Datatype, a.Data = dtype.Of[uint8](), dtype.Encode([]uint8{uint8(v.u)})
	case KindUint16:
		a.Datatype, a.Data = dtype.Of[uint16](), dtype.Encode([]uint16{uint16(v.u)})
	case KindUint32:
		a.Datatype, a.Data = dtype.Of[uint32](), dtype.Encode([]uint32{uint32(v.u)})
	case KindUint64:
		a.Datatype, a.Data = dtype.Of[uint64](), dtype.Encode([]uint64{v.u})
	case KindFloat32:
		a.Datatype, a.Data = dtype.Of[float32](), dtype.Encode([]float32{float32(v.f)})
	case KindFloat64:
		a.Datatype, a.Data = dtype.Of[float64](), dtype.Encode([]float64{v.f})
	case KindString:
		a.Datatype, a.Data = dtype.StringType(len(v.s)), []byte(v.s)
	case KindFloat64s:
		a.Datatype, a.Data = dtype.Of[float64](), dtype.Encode(v.fs)
		a.Dataspace = message.Simple(uint64(len(v.fs)))
	default:
		return nil, fmt.Errorf("attribute %q: invalid value", name)
	}
	return a, nil
}

func valueOf(a *message.Attribute) (Value, error) {
	dt := a.Datatype
	if dt.Class == message.ClassString {
		s, err := dtype.String(dt, a.Data)
		return String(s), err
	}
	if a.Dataspace.Rank() > 0 {
		fs := make([]float64, a.Dataspace.NumElements())
		if err := dtype.ToFloat64(dt, a.Data, fs); err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat64s, fs: fs}, nil
	}
	if dt.Class == message.ClassFloatPoint {
		f := make([]float64, 1)
		if err := dtype.ToFloat64(dt, a.Data, f); err != nil {
			return Value{}, err
		}
		if dt.Size == 4 {
			return Value{kind: KindFloat32, f: f[0]}, nil
		}
		return Float64(f[0]), nil
	}
	n, err := dtype.Int64(dt, a.Data)
	if err != nil {
		return Value{}, err
	}
	switch {
	case dt.Signed && dt.Size == 1:
		return Int8(int8(n)), nil
	case dt.Signed && dt.Size == 2:
		return Int16(int16(n)), nil
	case dt.Signed && dt.Size == 4:
		return Int32(int32(n)), nil
	case dt.Signed:
		return Int64(n), nil
	case dt.Size == 1:
		return Uint8(uint8(n)), nil
	case dt.Size == 2:
		return Uint16(uint16(n)), nil
	case dt.Size == 4:
		return Uint32(uint32(n)), nil
	}
	return Uint64(uint64(n)), nil
}
