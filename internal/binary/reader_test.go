package binary

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderValues(t *testing.T) {
	data := []byte{
		0x01,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x03, 0x00, 'a', 'b', 'c',
	}
	r := NewBytesReader(data)

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), u32)

	u64, err := r.ReadOffset()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "abc", s)
	require.Equal(t, int64(len(data)), r.Pos())
}

func TestReaderAtIsIndependent(t *testing.T) {
	r := NewBytesReader([]byte{0, 1, 2, 3, 4, 5})
	sub := r.At(4)
	v, err := sub.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(4), v)
	require.Equal(t, int64(0), r.Pos())
	require.Equal(t, int64(5), sub.Pos())
}

func TestReaderShortRead(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3})
	_, err := r.ReadUint64()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, int64(0), r.Pos())
}
