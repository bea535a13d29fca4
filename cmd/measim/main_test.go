package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/robert-malhotra/go-mearec/internal/config"
	"github.com/robert-malhotra/go-mearec/mearec"
	"github.com/stretchr/testify/require"
)

func TestSimulateFinalizesRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.mea")
	cfg := config.Default()
	cfg.Recording.Channels = 4
	cfg.Recording.BlockSize = 100
	cfg.Simulate.FeedBlock = 50
	cfg.Simulate.FeedInterval = 5 * time.Millisecond
	cfg.Simulate.Duration = 30 * time.Millisecond

	require.NoError(t, simulate(context.Background(), cfg, path))

	f, err := mearec.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.False(t, f.Live())
	require.Positive(t, f.NumSamples())
	require.Zero(t, f.NumSamples()%50)
	require.Equal(t, f.NumSamples(), f.LastValidSample())
	require.Len(t, f.Means(), 4)
	require.False(t, f.HasConfiguration())
}

func TestSimulateHidens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidens.mea")
	cfg := config.Default()
	cfg.Recording.Channels = 10
	cfg.Recording.SampleType = "uint8"
	cfg.Recording.Array = mearec.HidensArray
	cfg.Simulate.FeedBlock = 20
	cfg.Simulate.FeedInterval = time.Millisecond
	cfg.Simulate.Duration = 0

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, simulate(ctx, cfg, path))

	f, err := mearec.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.False(t, f.Live())
	c, err := f.Configuration()
	require.NoError(t, err)
	require.Len(t, c, 10)
	require.Equal(t, int32(9), c[9].Channel)
	require.Equal(t, byte('J'), c[9].Label)
}

func TestGeneratorClampsCodes(t *testing.T) {
	g := newGenerator(1000, 1e6, mearec.SampleInt8)
	for s := uint64(0); s < 1000; s++ {
		v := g.code(3, s)
		require.GreaterOrEqual(t, v, -128.0)
		require.LessOrEqual(t, v, 127.0)
	}

	g = newGenerator(1000, 0, mearec.SampleUint8)
	require.Equal(t, 128.0, g.code(0, 17))
}

func TestSyntheticConfigurationGrid(t *testing.T) {
	c := syntheticConfiguration(10)
	require.Len(t, c, 10)
	// 4x4 grid
	require.Equal(t, uint16(1), c[5].X)
	require.Equal(t, uint16(1), c[5].Y)
	require.Equal(t, uint32(17500), c[5].XPos)
}
