package binary

import "github.com/cespare/xxhash/v2"

// Checksum computes the 32-bit metadata checksum stored at the end of the
// superblock, object headers and chunk index blocks. It folds the 64-bit
// xxhash digest so that every input bit affects the stored value.
func Checksum(data []byte) uint32 {
	h := xxhash.Sum64(data)
	return uint32(h) ^ uint32(h>>32)
}

// VerifyChecksum reports whether data matches an expected metadata checksum.
func VerifyChecksum(data []byte, expected uint32) bool {
	return Checksum(data) == expected
}

// Fletcher32 computes the Fletcher-32 checksum over 16-bit little-endian
// words, used by the fletcher32 filter.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32

	length := len(data)
	i := 0
	for ; i+1 < length; i += 2 {
		word := uint32(data[i]) | uint32(data[i+1])<<8
		sum1 = (sum1 + word) % 65535
		sum2 = (sum2 + sum1) % 65535
	}

	// Odd trailing byte is zero padded
	if i < length {
		word := uint32(data[i])
		sum1 = (sum1 + word) % 65535
		sum2 = (sum2 + sum1) % 65535
	}

	return (sum2 << 16) | sum1
}
