// Follows a live MEA recording and reports newly valid samples.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robert-malhotra/go-mearec/internal/config"
	"github.com/robert-malhotra/go-mearec/mearec"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	from := flag.Uint64("from", 0, "first sample to report")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: meafollow [-config file] [-from sample] <recording>")
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

	if err := run(ctx, cfg, flag.Arg(0), *from); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Sugar().Errorw("following failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string, from uint64) error {
	log := zap.L().Sugar().With("service", "meafollow", "path", path)

	if cfg.Follow.MetricsAddr != "" {
		e := serveMetrics(cfg.Follow.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Warnw("metrics server shutdown", "error", err)
			}
		}()
	}

	fl, err := mearec.NewFollower(path, cfg.Follow.PollInterval)
	if err != nil {
		return err
	}
	defer fl.Close()
	fl.Seek(from)

	f := fl.File()
	log.Infow("following recording",
		"uuid", f.UUID(),
		"channels", f.NumChannels(),
		"sample-rate", f.SampleRate(),
		"live", f.Live())

	err = fl.Run(ctx, func(f *mearec.DataFile, u mearec.Update) error {
		if u.End > u.Start {
			mean, err := windowMean(f, mearec.Range{Start: u.Start, End: u.End})
			if err != nil {
				return err
			}
			log.Infow("new samples",
				"start", u.Start,
				"end", u.End,
				"seconds", float64(u.End)/float64(f.SampleRate()),
				"mean", mean)
		}
		if !u.Live {
			log.Infow("recording finalized", "samples", f.NumSamples())
		}
		return nil
	})
	return err
}

// windowMean returns the mean physical value over all channels, read one
// block at a time.
func windowMean(f *mearec.DataFile, samples mearec.Range) (float64, error) {
	channels := mearec.Range{Start: 0, End: uint64(f.NumChannels())}
	step := uint64(f.BlockSize())
	var sum float64
	for start := samples.Start; start < samples.End; start += step {
		w := mearec.Range{Start: start, End: min(start+step, samples.End)}
		m, err := f.Data(channels, w)
		if err != nil {
			return 0, err
		}
		sum += mat.Sum(m)
	}
	return sum / float64(channels.Len()*samples.Len()), nil
}

func serveMetrics(addr string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Sugar().Errorw("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return e
}
