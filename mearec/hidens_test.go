package mearec

import (
	"testing"

	"github.com/robert-malhotra/go-mearec/internal/message"
	"github.com/stretchr/testify/require"
)

func hidensConfiguration(n int) Configuration {
	c := make(Configuration, n)
	for i := range c {
		c[i] = Electrode{
			Index:   uint32(3*i + 1),
			XPos:    uint32(1000 + 17*i),
			YPos:    uint32(2000 + 31*i),
			X:       uint16(i % 32),
			Y:       uint16(i / 32),
			Label:   byte('A' + i%26),
			Channel: int32(i),
		}
		if i%9 == 0 {
			c[i].Channel = Unrouted
		}
	}
	return c
}

func TestHidensConfigurationRoundTrip(t *testing.T) {
	path := tempPath(t)
	f, err := CreateHidens(path)
	require.NoError(t, err)
	require.EqualValues(t, HidensChannels, f.NumChannels())
	require.EqualValues(t, HidensSampleRate, f.SampleRate())
	require.Equal(t, SampleUint8, f.SampleType())
	require.Equal(t, HidensArray, f.Array())
	require.True(t, f.HasConfiguration())

	_, err = f.Configuration()
	require.ErrorIs(t, err, ErrNoConfiguration)

	want := hidensConfiguration(126)
	require.NoError(t, f.SetConfiguration(want))

	b := NewBlock[uint8](HidensChannels, 50)
	for i := range b.Data {
		b.Data[i] = uint8(i * 7)
	}
	require.NoError(t, WriteRaw(f, 0, b))
	require.NoError(t, f.SetLive(false))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.HasConfiguration())
	got, err := r.Configuration()
	require.NoError(t, err)
	require.Len(t, got, 126)
	require.Equal(t, want, got)

	raw, err := ReadRaw[uint8](r, Span(0, HidensChannels), Span(0, 50))
	require.NoError(t, err)
	require.Equal(t, b.Data, raw.Data)
}

func TestConfigurationReplacedWholesale(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChannels(4), WithBlockSize(8), WithConfiguration())
	require.NoError(t, err)
	require.NoError(t, f.SetConfiguration(hidensConfiguration(40)))
	smaller := hidensConfiguration(3)
	require.NoError(t, f.SetConfiguration(smaller))

	got, err := f.Configuration()
	require.NoError(t, err)
	require.Equal(t, smaller, got)

	require.NoError(t, f.SetConfiguration(Configuration{}))
	got, err = f.Configuration()
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, f.Close())
}

func TestConfigurationRequiresSidecar(t *testing.T) {
	f, err := Create(tempPath(t), WithChannels(4), WithBlockSize(8))
	require.NoError(t, err)
	defer f.Close()
	require.False(t, f.HasConfiguration())
	require.ErrorIs(t, f.SetConfiguration(hidensConfiguration(2)), ErrNoConfiguration)
	_, err = f.Configuration()
	require.ErrorIs(t, err, ErrNoConfiguration)

	require.NoError(t, f.SetArray("hidens-v3"))
	require.True(t, f.HasConfiguration())
	require.NoError(t, f.SetConfiguration(hidensConfiguration(2)))
}

func TestConfigurationMismatchedArrays(t *testing.T) {
	path := tempPath(t)
	f, err := CreateHidens(path, WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	require.NoError(t, f.SetConfiguration(hidensConfiguration(5)))

	// point the x array of the group at the x array of a shorter configuration
	group, err := f.child(f.root.hdr, configurationName)
	require.NoError(t, err)
	short := hidensConfiguration(4)
	require.NoError(t, f.SetConfiguration(short))
	shortGroup, err := f.child(f.root.hdr, configurationName)
	require.NoError(t, err)

	h := group.hdr.Clone()
	h.SetLink(&message.Link{Name: arrX, Address: shortGroup.hdr.Link(arrX).Address})
	require.NoError(t, h.Write(binaryWriter(f)))
	root := f.root.hdr.Clone()
	root.SetLink(&message.Link{Name: configurationName, Address: group.hdr.Address})
	require.NoError(t, f.commit(f.root, root))

	_, err = f.Configuration()
	require.ErrorIs(t, err, ErrCorruptRecording)
	require.NoError(t, f.file.Close())
}

func TestConfigurationWithoutIndices(t *testing.T) {
	f, err := CreateHidens(tempPath(t), WithChannels(2), WithBlockSize(8))
	require.NoError(t, err)
	defer f.Close()
	want := hidensConfiguration(6)
	require.NoError(t, f.SetConfiguration(want))

	group, err := f.child(f.root.hdr, configurationName)
	require.NoError(t, err)
	h := group.hdr.Clone()
	var msgs []message.Message
	for _, m := range h.Messages {
		if l, ok := m.(*message.Link); ok && l.Name == arrIndices {
			continue
		}
		msgs = append(msgs, m)
	}
	h.Messages = msgs
	require.NoError(t, h.Write(binaryWriter(f)))

	got, err := f.Configuration()
	require.NoError(t, err)
	for i := range want {
		want[i].Index = uint32(i)
	}
	require.Equal(t, want, got)
}
