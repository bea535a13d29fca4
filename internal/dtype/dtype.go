package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-mearec/internal/message"
)

// ErrMismatch is returned when stored bytes do not match the requested type.
var ErrMismatch = errors.New("datatype mismatch")

// Sample is the set of raw ADC code types a recording can store.
type Sample interface {
	int8 | int16 | int32 | uint8
}

// Number is the set of fixed-width numeric types that have a datatype.
type Number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

var le = binary.LittleEndian

// Of returns the datatype describing T.
func Of[T Number]() *message.Datatype {
	var z T
	switch any(z).(type) {
	case int8:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 1, Signed: true}
	case int16:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true}
	case int32:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true}
	case int64:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 8, Signed: true}
	case uint8:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 1}
	case uint16:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 2}
	case uint32:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 4}
	case uint64:
		return &message.Datatype{Class: message.ClassFixedPoint, Size: 8}
	case float32:
		return &message.Datatype{Class: message.ClassFloatPoint, Size: 4}
	default:
		return &message.Datatype{Class: message.ClassFloatPoint, Size: 8}
	}
}

// StringType returns a fixed-length string datatype of n bytes.
func StringType(n int) *message.Datatype {
	return &message.Datatype{Class: message.ClassString, Size: uint32(n)}
}

// IsNumeric reports whether dt is an integer or floating-point type.
func IsNumeric(dt *message.Datatype) bool {
	return dt.Class == message.ClassFixedPoint || dt.Class == message.ClassFloatPoint
}

// Encode returns the little-endian encoding of src.
func Encode[T Number](src []T) []byte {
	out, err := binary.Append(make([]byte, 0, len(src)*int(Of[T]().Size)), le, src)
	if err != nil {
		// every Number is fixed size
		panic(err)
	}
	return out
}

// DecodeInto decodes len(dst) elements of dt from data into dst. dt must
// describe T exactly.
func DecodeInto[T Number](dt *message.Datatype, data []byte, dst []T) error {
	if want := Of[T](); !dt.Equal(want) {
		return fmt.Errorf("%w: stored %s, requested %s", ErrMismatch, dt, want)
	}
	if need := len(dst) * int(dt.Size); len(data) < need {
		return fmt.Errorf("%w: %d bytes for %d elements", ErrMismatch, len(data), len(dst))
	}
	_, err := binary.Decode(data, le, dst)
	return err
}

// Decode decodes every element of data.
func Decode[T Number](dt *message.Datatype, data []byte) ([]T, error) {
	if dt.Size == 0 {
		return nil, fmt.Errorf("%w: zero-size datatype", ErrMismatch)
	}
	dst := make([]T, len(data)/int(dt.Size))
	if err := DecodeInto(dt, data, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ToFloat64 widens len(dst) elements of any numeric datatype to float64.
func ToFloat64(dt *message.Datatype, data []byte, dst []float64) error {
	size := int(dt.Size)
	if !IsNumeric(dt) {
		return fmt.Errorf("%w: %s is not numeric", ErrMismatch, dt)
	}
	if len(data) < len(dst)*size {
		return fmt.Errorf("%w: %d bytes for %d elements", ErrMismatch, len(data), len(dst))
	}

	switch {
	case dt.Class == message.ClassFloatPoint && size == 4:
		for i := range dst {
			dst[i] = float64(math.Float32frombits(le.Uint32(data[i*4:])))
		}
	case dt.Class == message.ClassFloatPoint && size == 8:
		for i := range dst {
			dst[i] = math.Float64frombits(le.Uint64(data[i*8:]))
		}
	case size == 1 && dt.Signed:
		for i := range dst {
			dst[i] = float64(int8(data[i]))
		}
	case size == 1:
		for i := range dst {
			dst[i] = float64(data[i])
		}
	case size == 2 && dt.Signed:
		for i := range dst {
			dst[i] = float64(int16(le.Uint16(data[i*2:])))
		}
	case size == 2:
		for i := range dst {
			dst[i] = float64(le.Uint16(data[i*2:]))
		}
	case size == 4 && dt.Signed:
		for i := range dst {
			dst[i] = float64(int32(le.Uint32(data[i*4:])))
		}
	case size == 4:
		for i := range dst {
			dst[i] = float64(le.Uint32(data[i*4:]))
		}
	case size == 8 && dt.Signed:
		for i := range dst {
			dst[i] = float64(int64(le.Uint64(data[i*8:])))
		}
	case size == 8:
		for i := range dst {
			dst[i] = float64(le.Uint64(data[i*8:]))
		}
	default:
		return fmt.Errorf("%w: unsupported %s", ErrMismatch, dt)
	}
	return nil
}

// Int64 decodes a single integer element.
func Int64(dt *message.Datatype, data []byte) (int64, error) {
	if dt.Class != message.ClassFixedPoint || len(data) < int(dt.Size) {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMismatch, dt)
	}
	switch dt.Size {
	case 1:
		if dt.Signed {
			return int64(int8(data[0])), nil
		}
		return int64(data[0]), nil
	case 2:
		if dt.Signed {
			return int64(int16(le.Uint16(data))), nil
		}
		return int64(le.Uint16(data)), nil
	case 4:
		if dt.Signed {
			return int64(int32(le.Uint32(data))), nil
		}
		return int64(le.Uint32(data)), nil
	default:
		return int64(le.Uint64(data)), nil
	}
}

// String decodes a fixed-length string, dropping NUL padding.
func String(dt *message.Datatype, data []byte) (string, error) {
	if dt.Class != message.ClassString {
		return "", fmt.Errorf("%w: %s is not a string", ErrMismatch, dt)
	}
	n := int(dt.Size)
	if n > len(data) {
		n = len(data)
	}
	s := data[:n]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}
