package main

import (
	"math"

	"github.com/robert-malhotra/go-mearec/internal/dtype"
	"github.com/robert-malhotra/go-mearec/mearec"
	"gonum.org/v1/gonum/stat/distuv"
)

// generator produces per-channel sine waves with gaussian noise. Channel c
// oscillates at (c%8+1) Hz around the midpoint of the code range.
type generator struct {
	rate      float64
	amplitude float64
	noise     distuv.Normal
	lo, hi    float64
	mid       float64
}

func newGenerator(rate, amplitude float64, t mearec.SampleType) *generator {
	lo, hi := codeRange(t)
	g := &generator{
		rate:      rate,
		amplitude: amplitude,
		noise:     distuv.Normal{Mu: 0, Sigma: amplitude / 20},
		lo:        lo,
		hi:        hi,
	}
	if lo == 0 {
		g.mid = math.Floor(hi/2) + 1
	}
	return g
}

func codeRange(t mearec.SampleType) (float64, float64) {
	switch t {
	case mearec.SampleInt8:
		return math.MinInt8, math.MaxInt8
	case mearec.SampleInt32:
		return math.MinInt32, math.MaxInt32
	case mearec.SampleUint8:
		return 0, math.MaxUint8
	default:
		return math.MinInt16, math.MaxInt16
	}
}

// code returns the clamped ADC code of channel c at sample s.
func (g *generator) code(c int, s uint64) float64 {
	freq := float64(c%8 + 1)
	v := g.mid + g.amplitude*math.Sin(2*math.Pi*freq*float64(s)/g.rate)
	if g.noise.Sigma > 0 {
		v += g.noise.Rand()
	}
	return math.Round(math.Max(g.lo, math.Min(g.hi, v)))
}

func fill[T dtype.Sample](g *generator, b *mearec.Block[T], start uint64) {
	for c := 0; c < b.Channels; c++ {
		for s := 0; s < b.Samples; s++ {
			b.Set(c, s, T(g.code(c, start+uint64(s))))
		}
	}
}
