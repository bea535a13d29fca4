// Writes a synthetic live MEA recording.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robert-malhotra/go-mearec/internal/config"
	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/mearec"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: measim [-config file] <recording>")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.NewConfigFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, cfg, flag.Arg(0)); err != nil {
		zap.L().Sugar().Errorw("simulation failed", "error", err)
		os.Exit(1)
	}
}

// simulate creates the recording at path and feeds it until the configured
// duration has passed or ctx ends, then finalizes it.
func simulate(ctx context.Context, cfg *config.Config, path string) error {
	log := zap.L().Sugar().With("service", "measim", "path", path)
	r := cfg.Recording
	st, err := mearec.ParseSampleType(r.SampleType)
	if err != nil {
		return err
	}

	opts := []mearec.Option{
		mearec.WithChannels(r.Channels),
		mearec.WithBlockSize(r.BlockSize),
		mearec.WithSampleRate(r.SampleRate),
		mearec.WithSampleType(st),
		mearec.WithGain(r.Gain),
		mearec.WithOffset(r.Offset),
		mearec.WithRoom(r.Room),
		mearec.WithArray(r.Array),
	}
	f, err := mearec.Create(path, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	if f.HasConfiguration() {
		if err := f.SetConfiguration(syntheticConfiguration(r.Channels)); err != nil {
			return err
		}
	}
	log.Infow("recording created", "uuid", f.UUID(), "channels", r.Channels, "sample-type", st)

	g := newGenerator(float64(r.SampleRate), cfg.Simulate.Amplitude, st)
	switch st {
	case mearec.SampleInt8:
		err = feed[int8](ctx, f, g, cfg.Simulate)
	case mearec.SampleInt32:
		err = feed[int32](ctx, f, g, cfg.Simulate)
	case mearec.SampleUint8:
		err = feed[uint8](ctx, f, g, cfg.Simulate)
	default:
		err = feed[int16](ctx, f, g, cfg.Simulate)
	}
	if err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}

	if f.NumSamples() > 0 {
		if _, err := f.ComputeMeans(mearec.Range{Start: 0, End: f.NumSamples()}); err != nil {
			return err
		}
	}
	if err := f.SetLive(false); err != nil {
		return err
	}
	log.Infow("recording finalized", "samples", f.NumSamples(), "seconds", f.Length())
	return f.Close()
}

// feed appends one block every interval and publishes it.
func feed[T dtype.Sample](ctx context.Context, f *mearec.DataFile, g *generator, sim config.Simulate) error {
	b := mearec.NewBlock[T](int(f.NumChannels()), int(sim.FeedBlock))
	ticker := time.NewTicker(sim.FeedInterval)
	defer ticker.Stop()

	deadline := time.After(sim.Duration)
	if sim.Duration <= 0 {
		deadline = nil
	}
	for {
		start := f.NumSamples()
		fill(g, b, start)
		if err := mearec.WriteRaw(f, start, b); err != nil {
			return err
		}
		if err := f.SetLastValidSample(f.NumSamples()); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
}

// syntheticConfiguration routes the first channels electrodes of a square
// grid, 17.5 µm apart, to consecutive channels.
func syntheticConfiguration(channels uint32) mearec.Configuration {
	const pitch = 17500 // nm
	side := uint32(1)
	for side*side < channels {
		side++
	}
	c := make(mearec.Configuration, channels)
	for i := range c {
		x, y := uint32(i)%side, uint32(i)/side
		c[i] = mearec.Electrode{
			Index:   uint32(i),
			XPos:    x * pitch,
			YPos:    y * pitch,
			X:       uint16(x),
			Y:       uint16(y),
			Label:   byte('A' + i%26),
			Channel: int32(i),
		}
	}
	return c
}
