package mearec

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/layout"
	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "r.dat")
}

// code is the value every test writes for channel c at sample s. It is
// never zero, so unwritten (zero-filled) samples stand out.
func code(c, s int) int16 {
	return int16(1 + (c*31+s)%1000)
}

func patternBlock(channels, samples, start int) *Block[int16] {
	b := NewBlock[int16](channels, samples)
	for c := 0; c < channels; c++ {
		for s := 0; s < samples; s++ {
			b.Set(c, s, code(c, start+s))
		}
	}
	return b
}

func requirePattern(t *testing.T, b *Block[int16], ch0, s0 int) {
	t.Helper()
	for c := 0; c < b.Channels; c++ {
		for s := 0; s < b.Samples; s++ {
			if got, want := b.At(c, s), code(ch0+c, s0+s); got != want {
				t.Fatalf("channel %d sample %d: got %d, want %d", ch0+c, s0+s, got, want)
			}
		}
	}
}

func TestCreateNewRecording(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(64), WithBlockSize(20000), WithSampleRate(10000), WithGain(0.5), WithOffset(-3))
	require.NoError(t, err)
	defer f.Close()

	require.EqualValues(t, 0, f.NumSamples())
	require.True(t, f.Live())
	require.True(t, f.Writable())
	require.EqualValues(t, 20000, f.DatasetSize())
	require.EqualValues(t, 0, f.LastValidSample())
	require.Equal(t, DefaultRoom, f.Room())
	require.Equal(t, DefaultArray, f.Array())
	require.NotEmpty(t, f.UUID())
	require.NotEmpty(t, f.Date())

	b := patternBlock(64, 5000, 0)
	require.NoError(t, WriteRaw(f, 0, b))
	require.EqualValues(t, 5000, f.NumSamples())
	require.EqualValues(t, 20000, f.DatasetSize())

	got, err := f.Channel(3, Span(0, 5000))
	require.NoError(t, err)
	require.Len(t, got, 5000)
	for s, v := range got {
		require.InDelta(t, float64(b.At(3, s))*0.5-3, v, 1e-9)
	}
	require.InDelta(t, 0.5, f.Length(), 1e-9)
}

func TestExtensionByWholeBlocks(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(4), WithBlockSize(20000))
	require.NoError(t, err)

	require.NoError(t, WriteRaw(f, 0, patternBlock(4, 5000, 0)))
	require.EqualValues(t, 20000, f.DatasetSize())

	require.NoError(t, WriteRaw(f, 0, patternBlock(4, 25000, 0)))
	require.EqualValues(t, 40000, f.DatasetSize())
	require.EqualValues(t, 25000, f.NumSamples())

	// ends exactly on the allocated extent
	require.NoError(t, WriteRaw(f, 25000, patternBlock(4, 15000, 25000)))
	require.EqualValues(t, 40000, f.DatasetSize())
	require.EqualValues(t, 40000, f.NumSamples())

	require.NoError(t, WriteRaw(f, 40000, patternBlock(4, 1, 40000)))
	require.EqualValues(t, 60000, f.DatasetSize())
	require.NoError(t, f.alloc.Validate())
	require.NoError(t, f.SetLastValidSample(40001))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.EqualValues(t, 60000, r.DatasetSize())
	require.EqualValues(t, 40001, r.NumSamples())
	b, err := ReadRaw[int16](r, Span(0, 4), Span(0, 40001))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)
}

func TestFailedExtensionLeavesExtent(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	require.NoError(t, WriteRaw(f, 0, patternBlock(2, 8, 0)))
	require.NoError(t, f.SetLastValidSample(8))

	eof := f.alloc.EOFAddr()
	stats := f.alloc.Stats()

	// the chunk is allocated and zero-filled, then the sample write fails
	err = f.writeRaw(Span(8, 8), make([]byte, 3))
	require.ErrorIs(t, err, layout.ErrWindow)

	require.EqualValues(t, 8, f.NumSamples())
	require.EqualValues(t, 8, f.DatasetSize())
	require.Equal(t, eof, f.alloc.EOFAddr())
	require.Equal(t, stats, f.alloc.Stats())
	require.NoError(t, f.alloc.Validate())
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, eof, info.Size())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	require.EqualValues(t, 8, r.NumSamples())
	require.EqualValues(t, 8, r.DatasetSize())
	b, err := ReadRaw[int16](r, Span(0, 2), Span(0, 8))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)
	require.NoError(t, r.Close())

	// the writer resumes where the committed extent ends
	a, err := OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, WriteRaw(a, 8, patternBlock(2, 8, 8)))
	require.EqualValues(t, 16, a.DatasetSize())
	require.NoError(t, a.SetLive(false))
	require.NoError(t, a.Close())

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	b, err = ReadRaw[int16](r, Span(0, 2), Span(0, 16))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)
}

func TestRoundTripWindows(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(5), WithBlockSize(16))
	require.NoError(t, err)

	start := 0
	for _, n := range []int{7, 13, 30, 1, 16, 50} {
		require.NoError(t, WriteRaw(f, uint64(start), patternBlock(5, n, start)))
		start += n
		require.Zero(t, f.DatasetSize()%16)
		require.GreaterOrEqual(t, f.DatasetSize(), f.NumSamples())
	}
	require.EqualValues(t, start, f.NumSamples())
	require.NoError(t, f.SetLastValidSample(uint64(start)))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	tests := []struct {
		name     string
		channels Range
		samples  Range
	}{
		{"single sample", Span(0, 1), Span(0, 1)},
		{"inside one chunk", Span(1, 3), Span(2, 9)},
		{"chunk boundary", Span(0, 5), Span(15, 17)},
		{"many chunks", Span(2, 5), Span(3, 110)},
		{"everything", Span(0, 5), Span(0, uint64(start))},
		{"last sample", Span(4, 5), Span(uint64(start-1), uint64(start))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ReadRaw[int16](r, tt.channels, tt.samples)
			require.NoError(t, err)
			require.Equal(t, int(tt.channels.Len()), b.Channels)
			require.Equal(t, int(tt.samples.Len()), b.Samples)
			requirePattern(t, b, int(tt.channels.Start), int(tt.samples.Start))
		})
	}
}

func TestOverwriteInsideExtent(t *testing.T) {
	f, err := Create(tempPath(t), WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WriteRaw(f, 0, NewBlock[int16](2, 20)))
	require.NoError(t, WriteRaw(f, 5, patternBlock(2, 6, 5)))
	require.EqualValues(t, 20, f.NumSamples())

	b, err := ReadRaw[int16](f, Span(0, 2), Span(5, 11))
	require.NoError(t, err)
	requirePattern(t, b, 0, 5)
	z, err := ReadRaw[int16](f, Span(0, 2), Span(11, 20))
	require.NoError(t, err)
	for _, v := range z.Data {
		require.Zero(t, v)
	}
}

func TestPhysicalConversion(t *testing.T) {
	tests := []struct {
		name   string
		gain   float32
		offset float32
	}{
		{"identity", 1, 0},
		{"scaled", 0.195, 0},
		{"scaled and shifted", 2.5, -1024},
		{"negative gain", -0.25, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Create(tempPath(t), WithChannels(3), WithBlockSize(32), WithGain(tt.gain), WithOffset(tt.offset))
			require.NoError(t, err)
			defer f.Close()
			b := patternBlock(3, 100, 0)
			require.NoError(t, WriteRaw(f, 0, b))

			d, err := f.Data(Span(0, 3), Span(10, 90))
			require.NoError(t, err)
			rows, cols := d.Dims()
			require.Equal(t, 3, rows)
			require.Equal(t, 80, cols)
			for c := 0; c < rows; c++ {
				for s := 0; s < cols; s++ {
					want := float64(b.At(c, 10+s))*float64(tt.gain) + float64(tt.offset)
					require.InDelta(t, want, d.At(c, s), 1e-6)
				}
			}

			sel, err := f.DataChannels([]uint32{2, 0}, Span(0, 4))
			require.NoError(t, err)
			for s := 0; s < 4; s++ {
				require.InDelta(t, float64(b.At(2, s))*float64(tt.gain)+float64(tt.offset), sel.At(0, s), 1e-6)
				require.InDelta(t, float64(b.At(0, s))*float64(tt.gain)+float64(tt.offset), sel.At(1, s), 1e-6)
			}
		})
	}
}

func TestSampleTypes(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(2), WithBlockSize(4), WithSampleType(SampleInt8), WithGain(2))
	require.NoError(t, err)

	b := NewBlock[int8](2, 3)
	copy(b.Data, []int8{-128, 0, 127, 5, -5, 1})
	require.NoError(t, WriteRaw(f, 0, b))
	require.ErrorIs(t, WriteRaw(f, 3, patternBlock(2, 1, 0)), ErrTypeMismatch)
	_, err = ReadRaw[int16](f, Span(0, 2), Span(0, 3))
	require.ErrorIs(t, err, ErrTypeMismatch)

	row, err := f.Channel(0, Span(0, 3))
	require.NoError(t, err)
	require.Equal(t, []float64{-256, 0, 254}, row)
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, SampleInt8, r.SampleType())
}

func TestRangeRejection(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(4), WithBlockSize(10))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, WriteRaw(f, 0, patternBlock(4, 25, 0)))

	reads := []struct {
		name     string
		channels Range
		samples  Range
	}{
		{"empty samples", Span(0, 4), Range{5, 5}},
		{"reversed samples", Span(0, 4), Range{10, 5}},
		{"samples past extent", Span(0, 4), Range{0, 26}},
		{"empty channels", Range{2, 2}, Span(0, 5)},
		{"reversed channels", Range{3, 1}, Span(0, 5)},
		{"channels past extent", Range{0, 5}, Span(0, 5)},
	}
	for _, tt := range reads {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Data(tt.channels, tt.samples)
			require.ErrorIs(t, err, ErrRange)
			var re *RangeError
			require.True(t, errors.As(err, &re))
			_, err = ReadRaw[int16](f, tt.channels, tt.samples)
			require.ErrorIs(t, err, ErrRange)
		})
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	size := f.DatasetSize()

	require.ErrorIs(t, WriteRaw(f, 26, patternBlock(4, 10, 26)), ErrRange)
	require.ErrorIs(t, WriteRaw(f, 0, NewBlock[int16](4, 0)), ErrRange)
	require.ErrorIs(t, WriteRaw(f, 0, patternBlock(3, 10, 0)), ErrRange)
	_, err = f.DataChannels([]uint32{0, 4}, Span(0, 5))
	require.ErrorIs(t, err, ErrRange)

	require.Equal(t, size, f.DatasetSize())
	require.EqualValues(t, 25, f.NumSamples())
	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.Size(), after.Size())
}

func TestReadOnlyEnforcement(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(2), WithBlockSize(8), WithConfiguration())
	require.NoError(t, err)
	require.NoError(t, WriteRaw(f, 0, patternBlock(2, 10, 0)))
	require.NoError(t, f.SetLastValidSample(10))
	require.NoError(t, f.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	require.False(t, r.Writable())

	writes := map[string]error{
		"write":         WriteRaw(r, 10, patternBlock(2, 5, 10)),
		"gain":          r.SetGain(2),
		"sample rate":   r.SetSampleRate(1),
		"room":          r.SetRoom("elsewhere"),
		"means":         r.SetMeans([]float64{1, 2}),
		"watermark":     r.SetLastValidSample(10),
		"live":          r.SetLive(false),
		"attribute":     r.Attrs(ScopeFile).Set("operator", String("x")),
		"configuration": r.SetConfiguration(Configuration{{Channel: 1}}),
	}
	for name, err := range writes {
		require.ErrorIs(t, err, ErrReadOnly, name)
	}
	_, err = r.ComputeMeans(Span(0, 10))
	require.ErrorIs(t, err, ErrReadOnly)
	require.NoError(t, r.Flush())
	require.NoError(t, r.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.dat"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NotErrorIs(t, err, ErrInvalidFormat)
	require.NotErrorIs(t, err, ErrCorruptRecording)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("not a recording at all, just text"), 0o644))
	_, err = Open(text)
	require.ErrorIs(t, err, ErrInvalidFormat)

	empty := filepath.Join(dir, "empty.dat")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Open(empty)
	require.ErrorIs(t, err, ErrInvalidFormat)

	// flip a byte inside the superblock checksum range
	path := filepath.Join(dir, "r.dat")
	f, err := Create(path, WithChannels(1), WithBlockSize(4))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[20] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	_, err = Open(path, WithRetry(2, 0))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOpenCorruptRecording(t *testing.T) {
	without := func(h []message.Message, drop func(message.Message) bool) []message.Message {
		var out []message.Message
		for _, m := range h {
			if !drop(m) {
				out = append(out, m)
			}
		}
		return out
	}
	dropAttr := func(name string) func(message.Message) bool {
		return func(m message.Message) bool {
			a, ok := m.(*message.Attribute)
			return ok && a.Name == name
		}
	}

	tests := []struct {
		name   string
		mutate func(f *DataFile) error
	}{
		{"missing sample rate", func(f *DataFile) error {
			h := f.data.hdr.Clone()
			h.Messages = without(h.Messages, dropAttr(attrSampleRate))
			return f.commit(f.data, h)
		}},
		{"missing watermark", func(f *DataFile) error {
			h := f.root.hdr.Clone()
			h.Messages = without(h.Messages, dropAttr(attrLastValidSample))
			return f.commit(f.root, h)
		}},
		{"missing dataset", func(f *DataFile) error {
			h := f.root.hdr.Clone()
			h.Messages = without(h.Messages, func(m message.Message) bool { return m.Type() == message.TypeLink })
			return f.commit(f.root, h)
		}},
		{"missing layout", func(f *DataFile) error {
			h := f.data.hdr.Clone()
			h.Messages = without(h.Messages, func(m message.Message) bool { return m.Type() == message.TypeDataLayout })
			return f.commit(f.data, h)
		}},
		{"gain of the wrong kind", func(f *DataFile) error {
			return f.setAttr(f.data, attrGain, String("high"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempPath(t)
			f, err := Create(path, WithChannels(2), WithBlockSize(4))
			require.NoError(t, err)
			require.NoError(t, tt.mutate(f))
			// skip Close, which would rewrite the attributes
			require.NoError(t, f.file.Close())

			_, err = Open(path)
			require.ErrorIs(t, err, ErrCorruptRecording)
			require.NotErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestOpenOrCreate(t *testing.T) {
	path := tempPath(t)
	f, err := OpenOrCreate(path, WithChannels(3))
	require.NoError(t, err)
	require.True(t, f.Writable())
	require.NoError(t, f.Close())

	r, err := OpenOrCreate(path, WithChannels(9))
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Writable())
	require.EqualValues(t, 3, r.NumChannels())
}

func TestOpenAppend(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	require.NoError(t, WriteRaw(f, 0, patternBlock(2, 12, 0)))
	require.NoError(t, f.SetLastValidSample(12))
	require.NoError(t, f.Close())

	a, err := OpenAppend(path)
	require.NoError(t, err)
	require.True(t, a.Writable())
	require.True(t, a.Live())
	require.NoError(t, WriteRaw(a, 12, patternBlock(2, 20, 12)))
	require.NoError(t, a.SetLastValidSample(32))
	require.NoError(t, a.SetLive(false))
	require.NoError(t, a.Close())

	_, err = OpenAppend(path)
	require.ErrorIs(t, err, ErrReadOnly)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Live())
	require.EqualValues(t, 32, r.NumSamples())
	b, err := ReadRaw[int16](r, Span(0, 2), Span(0, 32))
	require.NoError(t, err)
	requirePattern(t, b, 0, 0)
}

func TestClosedHandle(t *testing.T) {
	f, err := Create(tempPath(t), WithChannels(1), WithBlockSize(4))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Data(Span(0, 1), Span(0, 1))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.SetGain(1), ErrClosed)
	require.ErrorIs(t, f.Flush(), ErrClosed)
	require.ErrorIs(t, f.Refresh(), ErrClosed)
}

func TestCreateRejectsBadShape(t *testing.T) {
	_, err := Create(tempPath(t), WithChannels(0))
	require.Error(t, err)
	_, err = Create(tempPath(t), WithBlockSize(0))
	require.Error(t, err)
	_, err = Create(tempPath(t), WithSampleRate(0))
	require.Error(t, err)
}

func binaryWriter(f *DataFile) *binary.Writer {
	return binary.NewWriter(f.file)
}
